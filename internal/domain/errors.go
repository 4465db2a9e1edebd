package domain

import "errors"

var (
	ErrEmptyField   = errors.New("required field is empty")
	ErrUnknownField = errors.New("unknown form field")
	ErrBusy         = errors.New("generation already in progress")
)

var (
	ErrGenerationFailed = errors.New("story generation failed")
	ErrEmptyStory       = errors.New("empty story")
)

var (
	ErrInvalidHistory = errors.New("invalid stored history")
)
