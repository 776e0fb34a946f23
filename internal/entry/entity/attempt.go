package entity

import (
	"time"

	"github.com/shandysiswandi/entryotp/internal/pkg/valueobject"
)

type AttemptKind string

const (
	AttemptKindIssue  AttemptKind = "issue"
	AttemptKindVerify AttemptKind = "verify"
)

// Outcome classifies an attempt record.
type Outcome string

const (
	OutcomeIssued           Outcome = "issued"
	OutcomeRateLimitedIP    Outcome = "rate_limited_ip"
	OutcomeRateLimitedEntry Outcome = "rate_limited_entry"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeExpired          Outcome = "expired"
	OutcomeExhausted        Outcome = "exhausted"
	OutcomeMismatch         Outcome = "mismatch"
	OutcomeVerified         Outcome = "verified"
)

// FailedVerifyOutcomes are the verify outcomes that count against a source
// address. Rate limited denials are excluded so a throttled client does not
// extend its own window.
var FailedVerifyOutcomes = []Outcome{OutcomeNotFound, OutcomeExpired, OutcomeExhausted, OutcomeMismatch}

type Attempt struct {
	ID         int64
	EntryID    *int64
	SourceIP   string
	Kind       AttemptKind
	Successful bool
	Outcome    Outcome
	// Detail holds outcome specific context such as the limit that was hit.
	Detail     valueobject.JSONMap
	CreatedAt  time.Time
}

// AttemptCountFilter selects attempts for a rate limit window. Zero values
// are not filtered on.
type AttemptCountFilter struct {
	SourceIP string
	EntryID  int64
	Kind     AttemptKind
	Outcomes []Outcome
	Since    time.Time
}

type AttemptListFilter struct {
	SourceIP string
	Kind     AttemptKind
	Limit    int32
	Offset   int64
}

// NotificationLog records one OTP delivery on one channel.
type NotificationLog struct {
	ID         int64
	EntryID    int64
	Channel    string
	Purpose    string
	Recipient  string
	Subject    string
	Message    string
	Status     string
	Diagnostic string
	CreatedAt  time.Time
}
