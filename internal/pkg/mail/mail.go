package mail

import (
	"context"
	"io"
)

// Message is one transactional email: an OTP code or a registration
// confirmation. Exactly one recipient per message.
type Message struct {
	To      string
	Subject string
	Text    string
	// HTML is optional; when set the email is sent as multipart/alternative.
	HTML string
}

// Mail sends messages through a provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
