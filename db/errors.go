package db

import "errors"

// Failure kinds surfaced to callers. All of them are recoverable; the
// web layer maps each kind to a user-facing message.
var (
	ErrUsernameTaken        = errors.New("username already exists")
	ErrEmailTaken           = errors.New("email already exists")
	ErrWeakPassword         = errors.New("password does not meet the policy")
	ErrAccountNotFound      = errors.New("account not found")
	ErrPostNotFound         = errors.New("post not found")
	ErrContentTooLong       = errors.New("content exceeds the length limit")
	ErrRelationshipNotFound = errors.New("follow relationship not found")
)
