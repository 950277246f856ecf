// Package services defines the business logic for direct messages, groups,
// and the AI conversation log. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer. The taxonomy:
//
//   - validation:   ErrEmptyContent, ErrTooLong, ErrSelfMessage, ErrInvalidInput
//   - not found:    ErrRecipientNotFound, ErrGroupNotFound, ErrUserNotFound,
//     ErrNotFoundOrUnauthorized
//   - forbidden:    ErrNotMember
//   - conflict:     ErrUsernameOrEmailTaken
//   - upstream:     ErrProviderUnavailable
//
// ErrNotFoundOrUnauthorized deliberately merges "message absent" and "caller
// not the owner": callers must not learn whether a message addressed to
// someone else exists. Do not split it.
package services

import "errors"

var (
	// ErrEmptyContent is returned when a message or prompt is empty after
	// trimming whitespace.
	ErrEmptyContent = errors.New("content is empty")

	// ErrTooLong is returned when content exceeds the configured rune cap.
	ErrTooLong = errors.New("content too long")

	// ErrSelfMessage is returned when a user attempts to message themselves.
	ErrSelfMessage = errors.New("cannot send a message to yourself")

	// ErrInvalidInput is returned for malformed registration or login input,
	// caught before any store access.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRecipientNotFound is returned when the recipient of a direct message
	// does not exist.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrGroupNotFound is returned when the requested group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrNotFoundOrUnauthorized is returned by mark-read and delete when the
	// message is absent or the caller does not own the required role. The two
	// causes are intentionally indistinguishable.
	ErrNotFoundOrUnauthorized = errors.New("message not found")

	// ErrNotMember is returned when the acting user holds no membership for
	// the group being read or written.
	ErrNotMember = errors.New("not a member of this group")

	// ErrUsernameOrEmailTaken is returned when registration collides with an
	// existing username or email.
	ErrUsernameOrEmailTaken = errors.New("username or email already taken")

	// ErrInvalidCredentials is returned on login failure. Whether the user is
	// unknown or the password wrong is not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnavailable is returned when the AI completion provider
	// fails. The exchange is not persisted and the call is never retried.
	ErrProviderUnavailable = errors.New("assistant is unavailable")
)
