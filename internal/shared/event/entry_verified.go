// Package event holds the broker topics and payloads shared between modules.
package event

import "time"

// CorrelationIDHeader carries the request correlation id across the broker.
const CorrelationIDHeader string = "cID"

const EntryVerifiedDestination string = "entry_verified"
const EntryVerifiedConsumerNotification string = "entry_verified_notification"

type EntryVerifiedMessage struct {
	EntryID     int64     `json:"entry_id"`
	EntryNumber string    `json:"entry_number"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	WhatsApp    string    `json:"whatsapp"`
	VerifiedAt  time.Time `json:"verified_at"`
}
