package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/service"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
// Field names in messages use the JSON names the caller sent.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator creates a RequestValidator.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

// Validate checks i against its validate tags. Failures are returned as
// invalid-input errors carrying a message about the first bad field.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return &service.Error{Kind: service.KindInvalidInput, Message: fieldMessage(ve[0]), Err: err}
	}
	return err
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range.", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

// bindJSON decodes the request body into dst regardless of the declared
// content type, then runs the registered validator.
func bindJSON(c echo.Context, dst any) error {
	dec := json.NewDecoder(c.Request().Body)
	if err := dec.Decode(dst); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return &service.Error{Kind: service.KindInvalidInput, Message: "Request body is required.", Err: err}
		case isBodyTooLarge(err):
			return echo.ErrStatusRequestEntityTooLarge
		default:
			return &service.Error{Kind: service.KindInvalidInput, Message: "Request body must be a JSON object.", Err: err}
		}
	}
	return c.Validate(dst)
}

func isBodyTooLarge(err error) bool {
	var he *echo.HTTPError
	return errors.As(err, &he) && he.Code == 413
}
