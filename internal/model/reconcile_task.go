package model

// ReconcileTask asks the background worker to bring the vector index back in
// step with the note row identified by NoteID. Tasks are idempotent: the
// worker re-derives the desired vector state from the current row.
type ReconcileTask struct {
	NoteID string `json:"note_id"`
	UserID uint   `json:"user_id"`
}
