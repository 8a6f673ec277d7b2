package netusage

import "errors"

var (
	// ErrNoHeader indicates that the tool printed nothing usable as a header row.
	ErrNoHeader = errors.New("netusage: no header")

	// ErrMissingColumn indicates that the header lacks a required column.
	ErrMissingColumn = errors.New("netusage: missing column")

	// ErrNotUTF8 indicates that the tool output is not valid UTF-8.
	ErrNotUTF8 = errors.New("netusage: output is not utf-8")
)
