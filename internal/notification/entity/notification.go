package entity

import "time"

// Log is one delivery attempt on one channel.
type Log struct {
	ID          int64
	EntryID     *int64
	EntryNumber string
	Channel     string
	Purpose     Purpose
	Recipient   string
	Subject     string
	Message     string
	Status      DeliveryStatus
	Diagnostic  string
	CreatedAt   time.Time
}

type LogListFilter struct {
	Channel string
	Status  DeliveryStatus
	Purpose Purpose
	Limit   int32
	Offset  int64
}

// Registration is the verified entry a confirmation is sent for.
type Registration struct {
	EntryID     int64
	EntryNumber string
	Name        string
	Email       string
	Phone       string
	WhatsApp    string
	VerifiedAt  time.Time
}
