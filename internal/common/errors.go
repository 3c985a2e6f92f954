package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")

	// Participant errors
	ErrUserNotFound = errors.New("user not found")

	// Room errors
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotRoomMember  = errors.New("not a member of this room")
	ErrNotRoomCreator = errors.New("only the room creator may do this")
	ErrAlreadyMember  = errors.New("already a member")
	ErrSelfTarget     = errors.New("cannot target yourself")
	ErrSelfChat       = errors.New("cannot open a chat room with yourself")

	// Message errors
	ErrMessageNotFound = errors.New("message not found")
	ErrNotSender       = errors.New("only the sender may delete a message")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)
