package service

import "errors"

var (
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrUserNotFound       = errors.New("user not found")

	ErrFileRequired         = errors.New("file is required")
	ErrUploadTooLarge       = errors.New("file exceeds the upload size limit")
	ErrUploadTypeNotAllowed = errors.New("file type is not allowed")

	ErrChallengeClosed     = errors.New("challenge is no longer accepting submissions")
	ErrChallengeNotStarted = errors.New("challenge has not started yet")
	ErrValidationFailed    = errors.New("validation failed")
)
