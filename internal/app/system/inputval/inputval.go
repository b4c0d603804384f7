// Package inputval validates decoded request input with struct tags.
//
// Fields carry a `validate` tag (go-playground/validator syntax) and an
// optional `label` used in messages. A `msg` tag overrides the message for
// every rule except required:
//
//	type registerInput struct {
//		Email    string `validate:"required,emailish" label:"email"`
//		FullName string `validate:"required,min=3,max=90" label:"fullname" msg:"fullname must be between 3 and 90 characters"`
//	}
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects every failed rule, in struct field order.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

// Messages returns all messages.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Message)
	}
	return out
}

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return strings.ToLower(f.Name)
		})
		// emailish only asks for an "@"; the address is proven by mail delivery.
		_ = v.RegisterValidation("emailish", func(fl validator.FieldLevel) bool {
			return strings.Contains(fl.Field().String(), "@")
		})
	})
	return v
}

// Validate runs the tag rules on input, which must be a struct or a
// pointer to one.
func Validate(input any) Result {
	err := instance().Struct(input)
	if err == nil {
		return Result{}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result{Errors: []FieldError{{Message: err.Error()}}}
	}

	t := reflect.TypeOf(input)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	res := Result{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		custom := ""
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			custom = sf.Tag.Get("msg")
		}
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.Field(),
			Message: message(fe, custom),
		})
	}
	return res
}

func message(fe validator.FieldError, custom string) string {
	if fe.Tag() == "required" {
		return fmt.Sprintf("Field '%s' is mandatory", fe.Field())
	}
	if custom != "" {
		return custom
	}
	switch fe.Tag() {
	case "emailish", "email":
		return "must be a valid email address"
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "hexadecimal":
		return fmt.Sprintf("%s must be hexadecimal", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
