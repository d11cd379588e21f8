package domain

import "errors"

var (
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrNoImageBound     = errors.New("no image bound")
	ErrRequestInFlight  = errors.New("request already in flight")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
	ErrUnsupportedImage = errors.New("unsupported image format")
)
