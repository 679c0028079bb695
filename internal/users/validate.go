package users

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/security"
	"github.com/go-playground/validator/v10"
)

// validate reads the same "binding" tags gin uses, so HTTP and service agree on the rules.
// The byte-length rule on passwords lives only here, as a struct-level check.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		checkPasswordBytes(sl, sl.Current().Interface().(user.RegisterRequest).Password)
	}, user.RegisterRequest{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		checkPasswordBytes(sl, sl.Current().Interface().(user.CreateRequest).Password)
	}, user.CreateRequest{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		if pw := sl.Current().Interface().(user.UpdateRequest).Password; pw != nil {
			checkPasswordBytes(sl, *pw)
		}
	}, user.UpdateRequest{})

	return v
}

// max=72 on the tag counts runes; bcrypt counts bytes
func checkPasswordBytes(sl validator.StructLevel, pw string) {
	if len(pw) > security.MaxPasswordBytes {
		sl.ReportError(pw, "password", "Password", "max_bytes", strconv.Itoa(security.MaxPasswordBytes))
	}
}

func validateRequest(req any) error {
	err := validate.Struct(req)

	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors

	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}

	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}

	return out
}
