package table

import "errors"

var (
	// ErrUnsupportedFormat is returned when a file's content matches none of
	// the supported formats (delimited text, xlsx, JSON).
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrMalformedInput is returned when a file is of a supported format but
	// cannot be parsed (corrupt spreadsheet, invalid JSON, ragged CSV).
	ErrMalformedInput = errors.New("malformed input")
)
