package instrument

import (
	"encoding/json"
	"log/slog"
	"strings"
	"unicode"
)

const redacted = "***"

// Masker redacts values by key before they reach a log sink. Secret keys are
// replaced outright. Contact keys keep a short prefix and suffix so a delivery
// can still be matched to a registrant without the log holding the value.
type Masker struct {
	secret  map[string]struct{}
	contact map[string]struct{}
}

// NewMasker builds a Masker. Keys are matched case-insensitively.
func NewMasker(secretKeys, contactKeys []string) *Masker {
	return &Masker{secret: keySet(secretKeys), contact: keySet(contactKeys)}
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func (m *Masker) field(key string, v any) (any, bool) {
	k := strings.ToLower(key)
	if _, ok := m.secret[k]; ok {
		return redacted, true
	}
	if _, ok := m.contact[k]; ok {
		switch s := v.(type) {
		case nil:
			return nil, true
		case string:
			return MaskContact(s), true
		default:
			return redacted, true
		}
	}
	return v, false
}

// Data walks decoded JSON and masks every matching key at any depth.
func (m *Masker) Data(v any) any {
	if m == nil {
		return v
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if masked, ok := m.field(k, v2); ok {
				out[k] = masked
				continue
			}
			out[k] = m.Data(v2)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			out[k], _ = m.field(k, v2)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v2 := range val {
			out[i] = m.Data(v2)
		}
		return out
	default:
		return v
	}
}

// JSON decodes payload and masks it; ok is false when payload is not a JSON
// object or array.
func (m *Masker) JSON(payload []byte) (any, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return nil, false
	}

	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, false
	}
	return m.Data(body), true
}

// Attr masks a slog attribute, descending into groups, maps and JSON strings.
func (m *Masker) Attr(a slog.Attr) slog.Attr {
	if m == nil {
		return a
	}
	if masked, ok := m.field(a.Key, a.Value.Any()); ok {
		return slog.Any(a.Key, masked)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = m.Attr(ga)
		}
		a.Value = slog.GroupValue(out...)
	case slog.KindString:
		if body, ok := m.JSON([]byte(a.Value.String())); ok {
			if b, err := json.Marshal(body); err == nil {
				a.Value = slog.StringValue(string(b))
			}
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any, map[string]string, []any:
			a.Value = slog.AnyValue(m.Data(v))
		case []byte:
			if body, ok := m.JSON(v); ok {
				a.Value = slog.AnyValue(body)
			}
		}
	}
	return a
}

// MaskContact shortens a phone number, email address or name to something
// recognisable but not reusable: "+919876543210" becomes "+91******3210",
// "ana@example.test" becomes "an***@example.test" and "Ana Lima" becomes "A***".
func MaskContact(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}

	if local, domain, ok := strings.Cut(v, "@"); ok {
		r := []rune(local)
		return string(r[:min(2, len(r))]) + redacted + "@" + domain
	}

	r := []rune(v)
	digits := 0
	for _, c := range r {
		if unicode.IsDigit(c) {
			digits++
		}
	}
	if digits < 7 || len(r) < 8 {
		return string(r[:1]) + redacted
	}
	return string(r[:3]) + strings.Repeat("*", len(r)-7) + string(r[len(r)-4:])
}
