package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound     = "room_not_found"
	ErrCodeRoomFull         = "room_full"
	ErrCodeAlreadyJoined    = "already_joined"
	ErrCodeNotInRoom        = "not_in_room"
	ErrCodeInvalidProfile   = "invalid_profile"
	ErrCodeMalformedMessage = "malformed_message"
	ErrCodeRateLimited      = "rate_limited"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrAlreadyJoined    = errors.New("already joined")
	ErrNotInRoom        = errors.New("not in room")
	ErrInvalidProfile   = errors.New("invalid profile")
	ErrMalformedMessage = errors.New("malformed message")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// ToCoreError maps sentinel errors onto their wire codes.
// Unknown errors are reported as malformed messages.
func ToCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return coreError(ErrCodeRoomNotFound, err.Error())
	case errors.Is(err, ErrRoomFull):
		return coreError(ErrCodeRoomFull, err.Error())
	case errors.Is(err, ErrAlreadyJoined):
		return coreError(ErrCodeAlreadyJoined, err.Error())
	case errors.Is(err, ErrNotInRoom):
		return coreError(ErrCodeNotInRoom, err.Error())
	case errors.Is(err, ErrInvalidProfile):
		return coreError(ErrCodeInvalidProfile, err.Error())
	default:
		return coreError(ErrCodeMalformedMessage, err.Error())
	}
}
