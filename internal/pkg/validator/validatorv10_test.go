package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactInput struct {
	FullName string `validate:"required,min=2"`
	Phone    string `validate:"required,phone"`
	Email    string `validate:"omitempty,email"`
	Code     string `validate:"omitempty,otpcode"`
}

func TestV10Validator_Validate(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	tests := []struct {
		name       string
		in         contactInput
		wantFields []string
	}{
		{name: "valid", in: contactInput{FullName: "Jane Doe", Phone: "+91 98765-43210", Code: "042917"}},
		{name: "short phone", in: contactInput{FullName: "Jane", Phone: "12345"}, wantFields: []string{"phone"}},
		{name: "bad code", in: contactInput{FullName: "Jane", Phone: "9876543210", Code: "42917"}, wantFields: []string{"code"}},
		{name: "letters in code", in: contactInput{FullName: "Jane", Phone: "9876543210", Code: "04291a"}, wantFields: []string{"code"}},
		{name: "name and email", in: contactInput{FullName: "J", Phone: "9876543210", Email: "nope"}, wantFields: []string{"full_name", "email"}},
		{name: "phone with separators", in: contactInput{FullName: "Jane", Phone: "(987) 654-3210"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var verr V10ValidationError
			require.True(t, errors.As(err, &verr))
			for _, f := range tt.wantFields {
				assert.Contains(t, verr.Values(), f)
			}
		})
	}
}

func TestV10Validator_Messages(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	err = v.Validate(contactInput{FullName: "Jane", Phone: "123", Code: "1"})

	var verr V10ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Code must be exactly 6 digits", verr["code"])
	assert.Equal(t, "Phone must contain at least 10 digits", verr["phone"])
}
