// Package validation checks inbound payloads before they reach a service.
//
// Rules live in the validate:"..." struct tags of the types package. This
// package adds what tags cannot express: trimming, the "at least one field"
// rule of partial updates, and readable messages. Every violation is
// collected and the messages are joined into one apperr validation error.
package validation

import (
	"reflect"
	"strings"

	"github.com/aanand-mishra/school-api/internal/apperr"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

// MsgEmptyUpdate is reported for a partial update that names no field.
const MsgEmptyUpdate = "at least one field must be provided"

// normalizer is implemented by payloads that clean themselves up before
// validation.
type normalizer interface {
	Normalize()
}

// emptier is implemented by partial update payloads.
type emptier interface {
	Empty() bool
}

// Validator wraps a configured *validator.Validate. It is safe for
// concurrent use and should be built once.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New builds a Validator that reports fields by their JSON names and
// renders messages in English.
func New() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report "parentEmail" rather than "ParentEmail".
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, errors.Wrap(err, "register translations")
	}

	return &Validator{validate: v, trans: trans}, nil
}

// Struct normalizes payload (a pointer) and validates it. The returned
// error is nil or a KindValidation *apperr.Error listing every violation.
func (v *Validator) Struct(payload any) error {
	if n, ok := payload.(normalizer); ok {
		n.Normalize()
	}

	var violations []string

	if e, ok := payload.(emptier); ok && e.Empty() {
		violations = append(violations, MsgEmptyUpdate)
	}

	if err := v.validate.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return errors.Wrap(err, "validate")
		}
		for _, fe := range fieldErrs {
			violations = append(violations, fe.Translate(v.trans))
		}
	}

	if len(violations) > 0 {
		return apperr.Validation(violations)
	}
	return nil
}

// ID validates a path id and returns it trimmed.
func (v *Validator) ID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperr.Validation([]string{"id is a required field"})
	}
	return id, nil
}
