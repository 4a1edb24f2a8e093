package job

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

var sessionIDPattern = regexp.MustCompile(`^ses_[A-Za-z0-9]{4,60}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("gk_sessionid", func(fl validator.FieldLevel) bool {
		return sessionIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate runs struct-tag validation on j and additionally enforces
// the "TTL within configured maximum" rule, which is a runtime
// bound, not a fixed struct tag. It returns the first failing field as a
// *ValidationError.
func Validate(j Job, maxTTL time.Duration) error {
	if err := validate.Struct(j); err != nil {
		return translateValidationError(err)
	}

	if create, ok := j.(*CreateSessionJob); ok {
		maxMinutes := int(maxTTL / time.Minute)
		if create.TTLMinutes > maxMinutes {
			return NewValidationError("ttlMinutes", fmt.Sprintf("ttlMinutes %d exceeds configured maximum %d", create.TTLMinutes, maxMinutes))
		}
	}

	return nil
}

func translateValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return NewValidationError("", err.Error())
	}
	first := verrs[0]
	return NewValidationError(first.Field(), fmt.Sprintf("failed %q validation", first.Tag()))
}
