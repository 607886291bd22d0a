package models

import "errors"

// Protocol errors. All are terminal and reported to the caller verbatim.
var (
	ErrInvalidRecipient     = errors.New("invalid recipient: a miv cannot be addressed to its sender")
	ErrNotParticipant       = errors.New("desk is not a participant in this conversation")
	ErrConversationArchived = errors.New("conversation is archived")
	ErrMessageNotFound      = errors.New("miv not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrForbidden            = errors.New("only the sender may forget a miv")
	ErrInvalidBasket        = errors.New("invalid basket")
)

// Error codes exposed to transports.
const (
	CodeInvalidRecipient     = "invalid_recipient"
	CodeNotParticipant       = "not_participant"
	CodeConversationArchived = "conversation_archived"
	CodeMessageNotFound      = "message_not_found"
	CodeConversationNotFound = "conversation_not_found"
	CodeNotificationNotFound = "notification_not_found"
	CodeForbidden            = "forbidden"
	CodeInvalidBasket        = "invalid_basket"
	CodeValidation           = "validation_failed"
	CodeInternal             = "internal"
)

// ErrorCode maps an error to a stable code. Unknown errors map to CodeInternal.
func ErrorCode(err error) string {
	var validation *ValidationErrors
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRecipient):
		return CodeInvalidRecipient
	case errors.Is(err, ErrNotParticipant):
		return CodeNotParticipant
	case errors.Is(err, ErrConversationArchived):
		return CodeConversationArchived
	case errors.Is(err, ErrMessageNotFound):
		return CodeMessageNotFound
	case errors.Is(err, ErrConversationNotFound):
		return CodeConversationNotFound
	case errors.Is(err, ErrNotificationNotFound):
		return CodeNotificationNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrInvalidBasket):
		return CodeInvalidBasket
	case errors.As(err, &validation),
		errors.Is(err, ErrInvalidDeskID),
		errors.Is(err, ErrEmptySubject),
		errors.Is(err, ErrSubjectTooLong),
		errors.Is(err, ErrEmptyBody),
		errors.Is(err, ErrMissingConversationID),
		errors.Is(err, ErrBodyTooLarge):
		return CodeValidation
	default:
		return CodeInternal
	}
}
