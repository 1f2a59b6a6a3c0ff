package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/sportsmeet/internal/domain/errs"
)

// maxBodyBytes caps request bodies. A full score sheet is a few kilobytes.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and checks its validate tags.
func decode(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.WrapKind(op, ErrBodyTooLarge, err)
		}
		return errs.WrapKind(op, ErrBadRequest, err)
	}
	if err := validate.Struct(dst); err != nil {
		return errs.Validation(op, "%s", validationMessage(err))
	}
	return nil
}

// validationMessage renders validator failures with JSON field paths, e.g.
// "winners[0].position must be at least 1".
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "required", "required_without":
			parts = append(parts, field+" is required")
		case "min":
			parts = append(parts, field+" must be at least "+fe.Param())
		case "max":
			parts = append(parts, field+" must be at most "+fe.Param())
		case "oneof":
			parts = append(parts, field+" must be one of ["+fe.Param()+"]")
		case "numeric":
			parts = append(parts, field+" must be numeric")
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
