package model

import "time"

// Note is the primary record for a user's note. Its ID doubles as the id of
// the matching record in the vector index.
type Note struct {
	ID        string    `gorm:"size:36;primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmbeddingText is the text the note's vector embedding is computed from.
func (n *Note) EmbeddingText() string {
	return n.Title + "\n\n" + n.Content
}
