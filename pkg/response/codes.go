package response

// Error codes carried by `error` events and REST error bodies.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeInvalidPayload  = "invalid_payload"
	CodeUnknownEvent    = "unknown_event"
	CodePersistence     = "persistence_failure"
	CodeAttachment      = "attachment_invalid"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal_error"
)

// message
var msg = map[string]string{
	CodeUnauthenticated: "authentication required",
	CodeForbidden:       "chat not found or access denied",
	CodeInvalidPayload:  "invalid payload",
	CodeUnknownEvent:    "unknown event",
	CodePersistence:     "operation could not be saved, please retry",
	CodeAttachment:      "attachment is missing or invalid",
	CodeRateLimited:     "too many events, slow down",
	CodeInternal:        "internal error",
}

// Message returns the client-facing text for code.
func Message(code string) string {
	if m, ok := msg[code]; ok {
		return m
	}
	return msg[CodeInternal]
}
