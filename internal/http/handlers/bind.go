package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/geocoder89/usergate/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// report json names, not Go field names, in validation errors
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}

// Bind accepts either form posts or JSON, picked by Content-Type, and validates binding tags.
func Bind(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBind(out); err != nil {
		RespondBadRequest(ctx, "Invalid request body", parseBindError(err))
		return false
	}

	return true
}

// DecodeJSON only decodes; rules are checked later by the service, after authorization.
func DecodeJSON(ctx *gin.Context, out interface{}) bool {
	if err := json.NewDecoder(ctx.Request.Body).Decode(out); err != nil {
		RespondBadRequest(ctx, "Invalid request body", parseBindError(err))
		return false
	}

	return true
}

func parseBindError(err error) interface{} {
	// validator errors (struct bind tags)
	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fe := range validatorError {
			fields = append(fields, newFieldError(fe.Field(), fe.Tag(), fe.Param()))
		}
		return gin.H{"fields": fields}
	}

	// in the event of bad json
	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	// in the event of a type mismatch
	var typeError *json.UnmarshalTypeError

	if errors.As(err, &typeError) {
		field := strings.TrimSpace(typeError.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: fmt.Sprintf("must be of type %s", typeError.Type.String()),
			}},
		}
	}

	var maxBytesError *http.MaxBytesError
	if errors.As(err, &maxBytesError) {
		return gin.H{"reason": "request body too large"}
	}

	// final fallback if the error could not be deciphered
	return gin.H{"reason": "malformed request body"}
}

func validationDetails(verr *users.ValidationError) gin.H {
	fields := make([]FieldError, 0, len(verr.Fields))

	for _, f := range verr.Fields {
		fields = append(fields, newFieldError(f.Field, f.Rule, f.Param))
	}

	return gin.H{"fields": fields}
}

func newFieldError(field, rule, param string) FieldError {
	return FieldError{
		Field:   field,
		Rule:    rule,
		Param:   param,
		Message: validationMessage(rule, param),
	}
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "max_bytes":
		return "must be at most " + param + " bytes"
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
