// Package inputval validates request input. Struct-tag validation runs
// through go-playground/validator with a few custom rules; the standalone
// Is* helpers cover spots where a full struct is overkill.
package inputval

import (
	"net/mail"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report errors under the human-readable `label` tag when present.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})

	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return IsValidObjectID(fl.Field().String())
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return IsValidHTTPURL(fl.Field().String())
	})
	_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		return IsValidGender(fl.Field().String())
	})

	return v
}

// FieldError is one validation failure with a display-ready message.
type FieldError struct {
	Field   string
	Message string
}

// Result collects the failures from one Validate call.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any field failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first error message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the raw message list, for APIs that return arrays.
func (r *Result) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

// Validate runs struct-tag validation on input and converts the failures
// into display-ready messages.
func Validate(input any) *Result {
	res := &Result{}
	err := validate.Struct(input)
	if err == nil {
		return res
	}

	var verrs validator.ValidationErrors
	ok := false
	if verrs, ok = err.(validator.ValidationErrors); !ok {
		res.Errors = append(res.Errors, FieldError{Message: "Invalid input."})
		return res
	}

	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return res
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required."
	case "email":
		return "A valid email address is required."
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters."
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters."
	case "len":
		return fe.Field() + " must be exactly " + fe.Param() + " characters."
	case "objectid":
		return fe.Field() + " must be a valid ID."
	case "httpurl":
		return fe.Field() + " must be a valid http or https URL."
	case "gender":
		return fe.Field() + ` must be "M" or "F".`
	case "oneof":
		return fe.Field() + " has an invalid value."
	default:
		return fe.Field() + " is invalid."
	}
}

// IsValidEmail reports whether s is a plain RFC 5322 address (no display
// name, no angle brackets).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == s
}

// IsValidObjectID reports whether s is a 24-hex-char Mongo ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

// IsValidHTTPURL reports whether s parses as an absolute http(s) URL.
func IsValidHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidGender accepts the stored forms and common long spellings.
func IsValidGender(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "F", "MALE", "FEMALE":
		return true
	}
	return false
}
