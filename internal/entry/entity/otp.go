package entity

import "time"

type OTP struct {
	ID           int64
	EntryID      int64
	CodeHash     string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	IsUsed       bool
	AttemptCount int
}

// Active reports whether the code may still be compared at now. Attempt
// exhaustion is judged separately by DecideVerify.
func (o OTP) Active(now time.Time) bool {
	return !o.IsUsed && now.Before(o.ExpiresAt)
}

// VerifyDecision is what a verification does to the locked OTP and entry.
type VerifyDecision struct {
	Outcome          Outcome
	MarkUsed         bool
	IncrementAttempt bool
	VerifyEntry      bool
}

// Successful reports whether the decision verifies the entry.
func (d VerifyDecision) Successful() bool {
	return d.Outcome == OutcomeVerified
}

// DecideVerify applies the verification state machine to the active OTP of an
// entry. otp is nil when no unused, unexpired code exists. matches is only
// consulted while attempts remain.
func DecideVerify(otp *OTP, now time.Time, maxAttempts int, matches func(codeHash string) bool) VerifyDecision {
	if otp == nil || !otp.Active(now) {
		return VerifyDecision{Outcome: OutcomeExpired}
	}

	if otp.AttemptCount >= maxAttempts {
		return VerifyDecision{Outcome: OutcomeExhausted, MarkUsed: true}
	}

	if !matches(otp.CodeHash) {
		return VerifyDecision{Outcome: OutcomeMismatch, IncrementAttempt: true}
	}

	return VerifyDecision{Outcome: OutcomeVerified, MarkUsed: true, VerifyEntry: true}
}

// VerifyResult is the committed state after a verification transaction.
// AlreadyVerified is set when a concurrent call verified the entry first;
// Decision then carries OutcomeVerified and nothing was written.
type VerifyResult struct {
	Decision        VerifyDecision
	AttemptCount    int
	Entry           Entry
	AlreadyVerified bool
}
