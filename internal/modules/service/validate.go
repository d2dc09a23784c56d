package service

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so messages match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationFrom turns validator output into an ErrValidation naming the first bad field.
func validationFrom(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return validationErr("%v", err)
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return validationErr("%s is required", field)
	case "email":
		return validationErr("%s must be a valid email address", field)
	case "http_url":
		return validationErr("%s must be an absolute http(s) URL", field)
	case "min", "max":
		return validationErr("%s violates %s=%s", field, fe.Tag(), fe.Param())
	case "oneof":
		return validationErr("%s must be one of %s", field, fe.Param())
	default:
		return validationErr("%s is invalid", field)
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
