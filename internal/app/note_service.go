package app

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"notemind/internal/model"
	"notemind/internal/vectorindex"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the hosted nearest-neighbor index keyed by note id.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, values []float32, metadata map[string]string) error
	DeleteOne(ctx context.Context, id string) error
	Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]vectorindex.Match, error)
}

// NoteStore is the relational source of truth for notes. The mutating methods
// run sync inside the row's transaction so that a vector-write failure rolls
// the row change back.
type NoteStore interface {
	Create(note *model.Note, sync func() error) error
	Update(note *model.Note, sync func() error) error
	Delete(id string, sync func() error) error
	GetByID(id string) (*model.Note, error)
	ListByUserID(userID uint) ([]model.Note, error)
	ListByIDs(ids []string) ([]model.Note, error)
}

// ReconcilePublisher enqueues a repair task for a note whose row and vector
// record may have diverged.
type ReconcilePublisher interface {
	Publish(ctx context.Context, task model.ReconcileTask) error
}

// NoteListCache caches per-user note listings.
type NoteListCache interface {
	GetList(ctx context.Context, userID uint) ([]model.Note, bool, error)
	SetList(ctx context.Context, userID uint, notes []model.Note) error
	Invalidate(ctx context.Context, userID uint) error
}

// NoteService keeps exactly one vector record in step with exactly one note
// row across create, update and delete. The row is written first; the vector
// upsert runs inside the same transaction.
type NoteService struct {
	store      NoteStore
	embedder   Embedder
	vectors    VectorIndex
	reconciler ReconcilePublisher
	cache      NoteListCache
}

func NewNoteService(
	store NoteStore,
	embedder Embedder,
	vectors VectorIndex,
	reconciler ReconcilePublisher,
	cache NoteListCache,
) *NoteService {
	return &NoteService{
		store:      store,
		embedder:   embedder,
		vectors:    vectors,
		reconciler: reconciler,
		cache:      cache,
	}
}

type CreateNoteInput struct {
	UserID  uint
	Title   string
	Content string
}

type UpdateNoteInput struct {
	UserID  uint
	ID      string
	Title   string
	Content string
}

func (s *NoteService) Create(ctx context.Context, input CreateNoteInput) (*model.Note, error) {
	if input.UserID == 0 {
		return nil, ErrUnauthorized
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}

	note := &model.Note{
		ID:      uuid.NewString(),
		UserID:  input.UserID,
		Title:   title,
		Content: input.Content,
	}

	values, err := s.embedder.Embed(ctx, note.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("%w: embed note: %v", ErrDependency, err)
	}

	if err := s.writeThrough(ctx, note, values, s.store.Create); err != nil {
		return nil, err
	}

	s.invalidateList(ctx, input.UserID)
	return note, nil
}

func (s *NoteService) Update(ctx context.Context, input UpdateNoteInput) (*model.Note, error) {
	if input.UserID == 0 {
		return nil, ErrUnauthorized
	}
	title := strings.TrimSpace(input.Title)
	if strings.TrimSpace(input.ID) == "" || title == "" {
		return nil, ErrInvalidInput
	}

	note, err := s.store.GetByID(input.ID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}
	if note.UserID != input.UserID {
		return nil, ErrUnauthorized
	}

	note.Title = title
	note.Content = input.Content

	// Re-embed from the new title/content; the upsert overwrites the prior
	// vector for this id.
	values, err := s.embedder.Embed(ctx, note.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("%w: embed note: %v", ErrDependency, err)
	}

	if err := s.writeThrough(ctx, note, values, s.store.Update); err != nil {
		return nil, err
	}

	s.invalidateList(ctx, input.UserID)
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, userID uint, id string) error {
	if userID == 0 {
		return ErrUnauthorized
	}
	if strings.TrimSpace(id) == "" {
		return ErrInvalidInput
	}

	note, err := s.store.GetByID(id)
	if err != nil {
		return err
	}
	if note == nil {
		return ErrNoteNotFound
	}
	if note.UserID != userID {
		return ErrUnauthorized
	}

	synced := false
	err = s.store.Delete(id, func() error {
		if err := s.vectors.DeleteOne(ctx, id); err != nil {
			return fmt.Errorf("%w: delete note vector: %v", ErrDependency, err)
		}
		synced = true
		return nil
	})
	if err != nil {
		if synced {
			s.enqueueReconcile(ctx, id, userID)
		}
		return err
	}

	s.invalidateList(ctx, userID)
	return nil
}

func (s *NoteService) List(ctx context.Context, userID uint) ([]model.Note, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}

	if s.cache != nil {
		if notes, hit, err := s.cache.GetList(ctx, userID); err == nil && hit {
			return notes, nil
		}
	}

	notes, err := s.store.ListByUserID(userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetList(ctx, userID, notes); err != nil {
			log.Printf("cache note list failed: %v", err)
		}
	}
	return notes, nil
}

// writeThrough runs the row mutation with the vector upsert inside its
// transaction. If the upsert landed but the transaction still failed the two
// stores have diverged, so a reconcile task is enqueued before returning.
func (s *NoteService) writeThrough(
	ctx context.Context,
	note *model.Note,
	values []float32,
	mutate func(note *model.Note, sync func() error) error,
) error {
	synced := false
	err := mutate(note, func() error {
		metadata := map[string]string{"userId": userIDMetadata(note.UserID)}
		if err := s.vectors.Upsert(ctx, note.ID, values, metadata); err != nil {
			return fmt.Errorf("%w: sync note vector: %v", ErrDependency, err)
		}
		synced = true
		return nil
	})
	if err != nil {
		if synced {
			s.enqueueReconcile(ctx, note.ID, note.UserID)
		}
		return err
	}
	return nil
}

func (s *NoteService) enqueueReconcile(ctx context.Context, noteID string, userID uint) {
	if s.reconciler == nil {
		return
	}
	task := model.ReconcileTask{NoteID: noteID, UserID: userID}
	if err := s.reconciler.Publish(ctx, task); err != nil {
		log.Printf("enqueue reconcile for note %s failed: %v", noteID, err)
	}
}

func (s *NoteService) invalidateList(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Printf("invalidate note list cache failed: %v", err)
	}
}

func userIDMetadata(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
