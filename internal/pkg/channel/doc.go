// Package channel delivers short messages to people over SMS, WhatsApp or
// email.
//
// Each provider implements Channel. A Gateway holds at most one Channel per
// Kind, bounds every send with a timeout, and reports the outcome as a Result
// so callers can log delivery without treating it as fatal.
package channel
