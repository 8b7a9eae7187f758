// Package validation wraps go-playground/validator with readable messages.
// Every failure wraps common.ErrInvalidInput.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/policonsole/internal/common"
	"github.com/go-playground/validator/v10"
)

var nipPattern = regexp.MustCompile(`^[0-9]{1,16}$`)

// Validator validates tagged structs.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the console's custom tags registered:
//
//	nip         a numeric personnel number
//	identifier  a NIP or an email address
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("nip", func(fl validator.FieldLevel) bool {
		return nipPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if nipPattern.MatchString(s) {
			return true
		}
		return v.Var(s, "email") == nil
	})
	return &Validator{v: v}
}

// Struct validates s and returns an error wrapping common.ErrInvalidInput
// that lists every failed field.
func (vv *Validator) Struct(s any) error {
	if err := vv.v.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("%w: %s", common.ErrInvalidInput, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return nil
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "nip":
		return field + " must be a numeric NIP"
	case "identifier":
		return field + " must be a NIP or an email"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
