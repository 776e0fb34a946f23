package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := SetCorrelationID(context.Background(), "cid-1")

	assert.Equal(t, "cid-1", GetCorrelationID(ctx))
	assert.Empty(t, GetCorrelationID(context.Background()))
}

func TestLogger_MasksAndStamps(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := newLogger("entryotp",
		NewMasker([]string{"code", " OTP "}, []string{"phone", "email"}),
		slog.NewJSONHandler(&buf, nil),
	)
	ctx := SetCorrelationID(context.Background(), "cid-2")
	ctx, _ = WithTags(ctx)
	TagEntry(ctx, 42)

	// Act
	logger.InfoContext(ctx, "otp issued",
		"code", "042917",
		"payload", map[string]any{"otp": "111111", "phone": "9876543210", "email": "ana@example.test"},
	)

	// Assert
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "***", line["code"])
	assert.Equal(t, "cid-2", line["_cID"])
	assert.Equal(t, float64(42), line["_entry_id"])
	assert.Equal(t, "entryotp", line["service"])
	payload, ok := line["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***", payload["otp"])
	assert.Equal(t, "987***3210", payload["phone"])
	assert.Equal(t, "an***@example.test", payload["email"])
}

func TestLogger_WithAttrsKeepsStamps(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("entryotp", NewMasker([]string{"token"}, nil), slog.NewJSONHandler(&buf, nil)).
		With("token", "secret")

	logger.InfoContext(SetCorrelationID(context.Background(), "cid-3"), "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "***", line["token"])
	assert.Equal(t, "cid-3", line["_cID"])
}

func TestLogger_FanOut(t *testing.T) {
	var a, b bytes.Buffer
	logger := newLogger("entryotp", nil, slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))

	logger.Info("twice")

	assert.Contains(t, a.String(), "twice")
	assert.Contains(t, b.String(), "twice")
}

func TestMaskContact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "+919876543210", want: "+91******3210"},
		{in: "ana@example.test", want: "an***@example.test"},
		{in: "a@example.test", want: "a***@example.test"},
		{in: "Ana Lima", want: "A***"},
		{in: "12345", want: "1***"},
		{in: "  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskContact(tt.in))
		})
	}
}

func TestMasker_JSON(t *testing.T) {
	m := NewMasker([]string{"code"}, []string{"recipient"})

	got, ok := m.JSON([]byte(`{"data":[{"recipient":"+919876543210","code":"1"}]}`))
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"data": []any{map[string]any{"recipient": "+91******3210", "code": "***"}},
	}, got)

	_, ok = m.JSON([]byte("plain text"))
	assert.False(t, ok)
}

func TestTags(t *testing.T) {
	TagEntry(context.Background(), 7) // no tags attached, must not panic

	ctx, tags := WithTags(context.Background())
	TagEntry(ctx, 7)
	TagOutcome(ctx, "mismatch")
	TagOutcome(ctx, "verified")

	assert.Equal(t, int64(7), tags.EntryID())
	assert.Equal(t, "verified", tags.Outcome())
	assert.Equal(t, []attribute.KeyValue{AttrEntryID.Int64(7), AttrOutcome.String("verified")}, tags.Attributes())
}

func TestNew_DisabledReturnsNoop(t *testing.T) {
	ins, err := New(context.Background(), &Config{Enabled: false, ServiceName: "entryotp"})
	require.NoError(t, err)

	_, span := ins.Tracer("test").Start(context.Background(), "span")
	span.End()
	assert.NoError(t, ins.Shutdown(context.Background()))
}
