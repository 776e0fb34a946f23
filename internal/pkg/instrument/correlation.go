package instrument

import "context"

type correlationKey struct{}

// SetCorrelationID returns a copy of ctx carrying the correlation id used to
// stitch together logs of one request or message.
func SetCorrelationID(ctx context.Context, cID string) context.Context {
	return context.WithValue(ctx, correlationKey{}, cID)
}

// GetCorrelationID returns the correlation id stored in ctx, or "" if none.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	cID, _ := ctx.Value(correlationKey{}).(string)
	return cID
}
