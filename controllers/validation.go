package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/cppla/bloghub/apperror"
)

var (
	usernamePattern     = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	categoryNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s-]+$`)
	registerOnce        sync.Once
)

// RegisterValidators installs the custom validation tags on gin's validator. Safe to call repeatedly.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("catname", func(fl validator.FieldLevel) bool {
			return categoryNamePattern.MatchString(fl.Field().String())
		})
	})
}

// normalizer trims request fields before validation runs.
type normalizer interface {
	normalize()
}

var (
	errMissingBody = errors.New("missing request body")
	errInvalidBody = errors.New("invalid request body")
)

// normalizedJSON is a JSON binding that normalizes the decoded request before validating it.
type normalizedJSON struct{}

var _ binding.BindingBody = normalizedJSON{}

func (normalizedJSON) Name() string {
	return "json"
}

func (b normalizedJSON) Bind(req *http.Request, obj any) error {
	if req == nil || req.Body == nil {
		return errMissingBody
	}
	return b.decode(req.Body, obj)
}

func (b normalizedJSON) BindBody(body []byte, obj any) error {
	return b.decode(bytes.NewReader(body), obj)
}

func (normalizedJSON) decode(r io.Reader, obj any) error {
	dec := json.NewDecoder(r)
	if binding.EnableDecoderUseNumber {
		dec.UseNumber()
	}
	if binding.EnableDecoderDisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(obj); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if n, ok := obj.(normalizer); ok {
		n.normalize()
	}
	return binding.Validator.ValidateStruct(obj)
}

// bindJSON binds the body into req, normalizes it and validates it.
func bindJSON(ctx *gin.Context, req interface{}) error {
	err := ctx.ShouldBindWith(req, normalizedJSON{})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errMissingBody):
		return apperror.NewBadRequest("Request body is required")
	case errors.Is(err, errInvalidBody):
		return apperror.NewBadRequest("Invalid request body")
	default:
		return validationError(err)
	}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.NewBadRequest("Invalid request body")
	}
	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
	}
	return apperror.NewValidation("Validation failed", fields...)
}

// fieldPath drops the struct name prefix from the namespace, keeping slice indexes.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s items", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s items", name, fe.Param())
		}
		return fmt.Sprintf("%s cannot exceed %s characters", name, fe.Param())
	case "len", "hexadecimal":
		return fmt.Sprintf("%s must be a valid id", name)
	case "username":
		return "Username can only contain letters, numbers, and underscores"
	case "catname":
		return "Category name can only contain letters, numbers, spaces, and hyphens"
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
