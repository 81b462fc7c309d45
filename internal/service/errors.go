package service

import "errors"

var (
	ErrNoImage           = errors.New("no image selected")
	ErrSubmitInProgress  = errors.New("a request is already in progress")
	ErrAlreadySubmitted  = errors.New("image already submitted")
	ErrNoResult          = errors.New("no recognition result to edit")
	ErrNoForm            = errors.New("no record form open")
	ErrPollExhausted     = errors.New("recognition did not finish in time")
	ErrRecognitionFailed = errors.New("an error occurred during processing")
	ErrResultUnavailable = errors.New("failed to get recognition results")
	ErrRecordNotFound    = errors.New("record not found")
	errSuperseded        = errors.New("workflow was reset")
)
