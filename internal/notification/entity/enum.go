package entity

import "strings"

type Purpose string

const (
	PurposeOTP                 Purpose = "otp"
	PurposeRegistrationSuccess Purpose = "registration_success"
	PurposeChannelTest         Purpose = "channel_test"
)

func (p Purpose) String() string {
	return string(p)
}

type DeliveryStatus string

const (
	DeliveryStatusUnknown DeliveryStatus = ""
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// DeliveryStatusFromString maps a query value, unknown values read as no
// filter.
func DeliveryStatusFromString(raw string) DeliveryStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sent":
		return DeliveryStatusSent
	case "failed":
		return DeliveryStatusFailed
	default:
		return DeliveryStatusUnknown
	}
}

func DeliveryStatusFromSuccess(ok bool) DeliveryStatus {
	if ok {
		return DeliveryStatusSent
	}
	return DeliveryStatusFailed
}

func (s DeliveryStatus) String() string {
	return string(s)
}
