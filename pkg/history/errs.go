package history

import "errors"

var (
	ErrClosed = errors.New("history: recorder closed")
	ErrNoPath = errors.New("history: parquet path is empty")
)
