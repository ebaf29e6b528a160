package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserExists         = errors.New("username already taken")
	ErrReservedUsername   = errors.New("username is reserved")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ParsingError means the text-understanding service was unreachable or
// returned a malformed payload. The whole ingestion call aborts; nothing is
// persisted. It is never retried automatically.
type ParsingError struct {
	Err error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("parse text: %v", e.Err)
}

func (e *ParsingError) Unwrap() error { return e.Err }

// ItemNotOfferedError is the business-rule rejection: a parsed block had
// items but none survived the availability filter. The whole message is
// rejected and nothing is persisted.
type ItemNotOfferedError struct {
	Item string
}

func (e *ItemNotOfferedError) Error() string {
	return fmt.Sprintf("item %q is not in the current offer list", e.Item)
}
