package notify

import "context"

// Payload keys.
const (
	KeyMessageType = "message_type"
	KeyMessageData = "message_data"
)

// Message is one push to a set of device tokens.
type Message struct {
	RecipientIDs []string
	Data         map[string]any
	// CollapseKey lets the push service replace an undelivered message with a
	// newer one carrying the same key.
	CollapseKey string
}

// NewMessage builds a message whose payload carries t and, when data is
// non-nil, a nested message_data object.
func NewMessage(recipients []string, t NotificationType, data map[string]any) *Message {
	payload := map[string]any{KeyMessageType: int(t)}
	if data != nil {
		payload[KeyMessageData] = data
	}
	return &Message{RecipientIDs: recipients, Data: payload}
}

// Transport delivers messages. Implementations must treat an empty recipient
// list as a no-op.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// SubscriptionResolver looks up who should receive a notification.
type SubscriptionResolver interface {
	// UsersSubscribedToMatch returns users subscribed to t for the match or
	// for the event it belongs to.
	UsersSubscribedToMatch(ctx context.Context, match MatchRef, t NotificationType) ([]string, error)
	// ClientIDs returns the registered push tokens of users on os.
	ClientIDs(ctx context.Context, os ClientOS, userIDs []string) ([]string, error)
}

// MatchRef identifies a match and its event.
type MatchRef struct {
	MatchKey string
	EventKey string
}
