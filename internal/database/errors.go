package database

import "errors"

// Domain conditions surfaced by the storage facade. Everything else is an
// infrastructure failure wrapped with context.
var (
	ErrNotFound        = errors.New("not found")
	ErrEmailRegistered = errors.New("email already registered")
	ErrUserNotFound    = errors.New("user not found")
	ErrPasswordError   = errors.New("password mismatch")
	ErrTokenError      = errors.New("token mismatch")
	ErrTokenExpired    = errors.New("token expired")
	ErrNotFriend       = errors.New("not friends")
	ErrNoPermission    = errors.New("no permission")
	ErrCursorAhead     = errors.New("read cursor ahead of last message")
	ErrNotGroupChat    = errors.New("not a group chat")
	ErrUserNotInChat   = errors.New("user not in chat")
	ErrAlreadySolved   = errors.New("request already solved")
	ErrAnswerUnsolved  = errors.New("unsolved is not an answer")
)
