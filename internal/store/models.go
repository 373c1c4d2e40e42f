package store

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

type Document struct {
	ID        string    `json:"id"` // UUID, collision-free under concurrent inserts
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"` // Stored as a JSON array in the DB, internal
	CreatedAt time.Time `json:"created_at"`
}
