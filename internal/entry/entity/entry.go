package entity

import (
	"time"
)

// EntryNumberPrefix starts every public entry number.
const EntryNumberPrefix = "LOTD"

type Entry struct {
	ID          int64
	EntryNumber string
	Name        string
	Phone       string
	WhatsApp    string
	Email       string
	IsVerified  bool
	VerifiedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Contact is the mutable part of an entry submitted on issuance.
type Contact struct {
	Name     string
	Phone    string
	WhatsApp string
	Email    string
}

type NewEntry struct {
	ID          int64
	EntryNumber string
	Contact     Contact
}

type EntryStatus string

const (
	EntryStatusAll      EntryStatus = ""
	EntryStatusVerified EntryStatus = "verified"
	EntryStatusPending  EntryStatus = "pending"
)

func ParseEntryStatus(s string) EntryStatus {
	switch EntryStatus(s) {
	case EntryStatusVerified:
		return EntryStatusVerified
	case EntryStatusPending:
		return EntryStatusPending
	default:
		return EntryStatusAll
	}
}

type EntryListFilter struct {
	Search string
	Status EntryStatus
	Limit  int32
	Offset int64
}

type Stats struct {
	TotalEntries       int64
	VerifiedEntries    int64
	PendingEntries     int64
	TodayEntries       int64
	TodayOTPsIssued    int64
	TodayFailedVerify  int64
	NotificationSent   int64
	NotificationFailed int64
}
