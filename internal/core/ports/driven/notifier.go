package driven

import "context"

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers a message to a destination and returns a reference
// to the delivered notification (message ID, webhook receipt).
type Notifier interface {
	Notify(ctx context.Context, destination string, msg Message) (string, error)
}
