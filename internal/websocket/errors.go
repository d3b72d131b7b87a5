package websocket

import (
	"errors"

	"chat-realtime/internal/adapters/storage"
	"chat-realtime/pkg/response"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrUnknownEvent       = errors.New("unknown event")
	// ErrNotParticipant also covers chats that do not exist, so callers
	// cannot discover which chat ids exist.
	ErrNotParticipant = errors.New("not a participant of chat")
	ErrPersistence    = errors.New("persistence failure")
	ErrRateLimited    = errors.New("rate limited")
)

// errorCode maps a handler error onto the code sent in the error event.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPayload):
		return response.CodeInvalidPayload
	case errors.Is(err, ErrUnknownEvent):
		return response.CodeUnknownEvent
	case errors.Is(err, ErrNotParticipant):
		return response.CodeForbidden
	case errors.Is(err, storage.ErrAttachmentNotFound):
		return response.CodeAttachment
	case errors.Is(err, ErrRateLimited):
		return response.CodeRateLimited
	case errors.Is(err, ErrPersistence):
		return response.CodePersistence
	default:
		return response.CodeInternal
	}
}

// clientMessage keeps validation detail but hides storage internals.
func clientMessage(err error) string {
	code := errorCode(err)
	if code == response.CodeInvalidPayload {
		return err.Error()
	}
	return response.Message(code)
}
