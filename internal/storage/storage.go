package storage

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrNoPendingCode = errors.New("no pending code")
	ErrNoteNotFound  = errors.New("note not found")
)
