package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

// FieldError is one failed payload rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

// ValidationErrors collects every failed rule of a payload. It wraps
// types.ErrInvalidData.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.message())
	}
	return "invalid payload: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() error { return types.ErrInvalidData }

func (fe FieldError) message() string {
	switch fe.Tag {
	case "required":
		return fe.Field + " is required"
	case "required_without":
		return fmt.Sprintf("%s is required when %s is empty", fe.Field, fe.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field, strings.ReplaceAll(fe.Param, " ", ", "))
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", fe.Field, fe.Param)
	default:
		return fe.Field + " failed " + fe.Tag
	}
}

// payloadValidator reports field names by their JSON keys.
type payloadValidator struct {
	validate *validator.Validate
}

func newPayloadValidator() *payloadValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &payloadValidator{validate: v}
}

func (p *payloadValidator) check(payload any) error {
	err := p.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating payload: %w", err)
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// decode unmarshals raw into dst and validates dst when it is a struct.
// An empty or null payload decodes as an empty object.
func (p *payloadValidator) decode(raw json.RawMessage, dst any) error {
	body := strings.TrimSpace(string(raw))
	if body != "" && body != "null" {
		if err := json.Unmarshal([]byte(body), dst); err != nil {
			return fmt.Errorf("decoding payload: %w: %w", types.ErrInvalidData, err)
		}
	}
	if reflect.Indirect(reflect.ValueOf(dst)).Kind() != reflect.Struct {
		return nil
	}
	return p.check(dst)
}
