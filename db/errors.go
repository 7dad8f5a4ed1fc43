package db

import "errors"

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("database closed")
)
