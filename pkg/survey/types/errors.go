package types

import "errors"

var (
	ErrSessionNotFound         = errors.New("survey session not found")
	ErrSessionAlreadyCompleted = errors.New("survey session already completed")
	ErrQuestionNotFound        = errors.New("question not found")
)
