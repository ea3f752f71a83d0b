package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"notemind/internal/model"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Upsert(ctx context.Context, id string, values []float32, metadata map[string]string) error
	DeleteOne(ctx context.Context, id string) error
}

type NoteGetter interface {
	GetByID(id string) (*model.Note, error)
}

// ReconcileWorker consumes reconcile tasks and converges the vector index on
// the note store. For an existing note it recomputes the embedding and
// overwrites the vector record; for a deleted note it removes the record.
type ReconcileWorker struct {
	conn      *amqp.Connection
	notes     NoteGetter
	embedder  Embedder
	vectors   VectorStore
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReconcileWorker(
	conn *amqp.Connection,
	notes NoteGetter,
	embedder Embedder,
	vectors VectorStore,
	queueName string,
) *ReconcileWorker {
	return &ReconcileWorker{
		conn:      conn,
		notes:     notes,
		embedder:  embedder,
		vectors:   vectors,
		queueName: queueName,
	}
}

func (w *ReconcileWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var task model.ReconcileTask
				if err := json.Unmarshal(d.Body, &task); err != nil {
					log.Printf("worker decode reconcile task failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.Reconcile(workerCtx, task); err != nil {
					log.Printf("worker reconcile note %s failed: %v", task.NoteID, err)
					_ = d.Nack(false, true)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// Reconcile performs one repair pass for the task's note. It is safe to run
// repeatedly for the same note id.
func (w *ReconcileWorker) Reconcile(ctx context.Context, task model.ReconcileTask) error {
	if task.NoteID == "" {
		return fmt.Errorf("reconcile task has no note id")
	}

	note, err := w.notes.GetByID(task.NoteID)
	if err != nil {
		return err
	}

	if note == nil {
		return w.vectors.DeleteOne(ctx, task.NoteID)
	}

	values, err := w.embedder.Embed(ctx, note.EmbeddingText())
	if err != nil {
		return err
	}
	return w.vectors.Upsert(ctx, note.ID, values, map[string]string{
		"userId": strconv.FormatUint(uint64(note.UserID), 10),
	})
}

func (w *ReconcileWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
