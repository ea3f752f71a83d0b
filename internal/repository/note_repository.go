package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"notemind/internal/model"
)

type NoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts the note and then runs sync inside the same transaction.
// The note row is the source of truth: it is written first, and a sync
// failure rolls the insert back.
func (r *NoteRepository) Create(note *model.Note, sync func() error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(note).Error; err != nil {
			return fmt.Errorf("create note failed: %w", err)
		}
		return sync()
	})
}

// Update saves the note and then runs sync inside the same transaction.
func (r *NoteRepository) Update(note *model.Note, sync func() error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(note).Error; err != nil {
			return fmt.Errorf("update note failed: %w", err)
		}
		return sync()
	})
}

// Delete removes the note row and then runs sync inside the same transaction.
func (r *NoteRepository) Delete(id string, sync func() error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Delete(&model.Note{}).Error; err != nil {
			return fmt.Errorf("delete note failed: %w", err)
		}
		return sync()
	})
}

func (r *NoteRepository) GetByID(id string) (*model.Note, error) {
	var note model.Note
	if err := r.db.Where("id = ?", id).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query note by id failed: %w", err)
	}
	return &note, nil
}

func (r *NoteRepository) ListByUserID(userID uint) ([]model.Note, error) {
	var notes []model.Note
	if err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes failed: %w", err)
	}
	return notes, nil
}

// ListByIDs returns the notes with the given ids in one batched lookup.
// Result order is not guaranteed to match the input order.
func (r *NoteRepository) ListByIDs(ids []string) ([]model.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var notes []model.Note
	if err := r.db.Where("id IN ?", ids).Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes by ids failed: %w", err)
	}
	return notes, nil
}
