package transport

import "context"

// Update is one inbound chat message, normalized away from the platform shape.
type Update struct {
	Message *Message
}

type Message struct {
	ChatID       int64
	FromID       int64
	FromUsername string
	FirstName    string
	Text         string
}

// Adapter is the chat-protocol boundary. SendText failures come back as
// errors; the adapter never panics across this interface.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, chatID int64, text string) error
}
