package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/entryotp/internal/pkg/strcase"
)

var (
	reOTPCode  = regexp.MustCompile(`^[0-9]{6}$`)
	reNonDigit = regexp.MustCompile(`[^0-9]`)
)

// minPhoneDigits is the shortest phone number accepted, counting digits only.
const minPhoneDigits = 10

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// V10ValidationError maps snake_case field names to messages; the router
// renders it as the "error" object of a 400.
type V10ValidationError map[string]string

// Error implements the error interface.
func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// NewV10Validator constructs a V10Validator with English translations and custom rules.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	v10CustomValidation(validate, enTrans)

	return &V10Validator{
		validate:   validate,
		translator: enTrans,
	}, nil
}

// Validate validates a struct and returns a V10ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	if err := v.validate.Struct(data); err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			return err
		}

		errV10 := make(V10ValidationError)
		for _, fe := range validateErrs {
			errV10[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.translator)
		}

		return errV10
	}

	return nil
}

// customRule is a tag the OTP inputs use that go-playground does not ship.
type customRule struct {
	tag  string
	msg  string
	test func(s string) bool
}

var customRules = []customRule{
	{
		tag:  "otpcode",
		msg:  "{0} must be exactly 6 digits",
		test: reOTPCode.MatchString,
	},
	{
		// separators such as "+91 98765-43210" are fine, only digits count
		tag:  "phone",
		msg:  "{0} must contain at least 10 digits",
		test: func(s string) bool { return len(reNonDigit.ReplaceAllString(s, "")) >= minPhoneDigits },
	},
}

//nolint:errcheck,gosec // registration only fails on a duplicate or empty tag
func v10CustomValidation(validate *validator.Validate, enTrans ut.Translator) {
	for _, rule := range customRules {
		validate.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && rule.test(s)
		})
		validate.RegisterTranslation(rule.tag, enTrans,
			func(ut ut.Translator) error { return ut.Add(rule.tag, rule.msg, false) },
			translateField,
		)
	}
}

//nolint:forcetypeassert // FieldError is always an error
func translateField(tr ut.Translator, fe validator.FieldError) string {
	t, err := tr.T(fe.Tag(), fe.Field())
	if err != nil {
		slog.Warn("failed to translate validation message", "tag", fe.Tag(), "error", err)
		return fe.(error).Error()
	}
	return t
}
