// Package clock provides a replaceable source of the current time.
//
// OTP expiry and rate-limit windows are computed from Clocker.Now so tests
// can move time with Fixed instead of sleeping.
package clock
