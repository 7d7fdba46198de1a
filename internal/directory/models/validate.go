package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/go-playground/validator/v10"
)

// validate is shared by every record check; validator caches struct
// metadata and is safe for concurrent use.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so issues match the request body.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
}

// Validate checks the shape of a creation input. Catalog membership is
// checked by the directory service.
func (n *NewEmployee) Validate() error {
	return translate(validate.Struct(n))
}

// Validate checks the shape of a full record, typically after an update
// has been merged into it.
func (emp *Employee) Validate() error {
	return translate(validate.Struct(emp))
}

// Validate checks the fields an update sets directly.
func (u *EmployeeUpdate) Validate() error {
	return translate(validate.Struct(u))
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	out := &e.ValidationError{}
	for _, fe := range verrs {
		out.Add(fieldPath(fe.Namespace()), reason(fe))
	}
	return out.OrNil()
}

// fieldPath drops the root struct name: "NewEmployee.personalInfo.email"
// becomes "personalInfo.email".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "date":
		return "must be a date in YYYY-MM-DD format"
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
