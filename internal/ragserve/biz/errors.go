package biz

import "errors"

var (
	// ErrEmptyDocument is returned when a document yields no usable text.
	ErrEmptyDocument = errors.New("could not extract text from the file")

	// ErrEmptyQuery is returned when a chat query is empty or whitespace.
	ErrEmptyQuery = errors.New("query cannot be empty")
)
