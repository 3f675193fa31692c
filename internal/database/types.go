package database

import (
	"time"
)

// User represents an enrolled identity
type User struct {
	ID       int64
	Username string
}

// Template represents the single facial template stored for a user
type Template struct {
	ID              int64
	UserID          int64
	Username        string // joined from users, populated by every read
	Embedding       []byte // exactly what the active strategy returned
	SourceImageName string // uploaded file name, empty when unknown
	EnrolledAt      time.Time
}
