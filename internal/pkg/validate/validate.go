package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	mobileRe  = regexp.MustCompile(`^[0-9]{10}$`)
	aadhaarRe = regexp.MustCompile(`^[0-9]{12}$`)
	panRe     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

// v is the package-level singleton validator. Custom tags are registered in
// init before the first call to Struct.
var v = validator.New()

func init() {
	// Report JSON / form field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	mustRegister("mobile", mobileRe)
	mustRegister("aadhaar", aadhaarRe)
	mustRegister("pan", panRe)
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
}

// maxBytes bounds the encoded length of a string, unlike max which counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

func mustRegister(tag string, re *regexp.Regexp) {
	if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// Struct validates the given struct using its validate tags.
// Only the first failing field is reported, as a human-readable message.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	return errors.New(message(ve[0]))
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", f)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", f)
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", f, fe.Param())
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", f, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("The %s field must not be greater than %s bytes.", f, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s field must match %s.", f, strings.ToLower(fe.Param()))
	case "mobile":
		return fmt.Sprintf("The %s field must be 10 digits.", f)
	case "aadhaar":
		return fmt.Sprintf("The %s field must be 12 digits.", f)
	case "pan":
		return fmt.Sprintf("The %s field format is invalid.", f)
	default:
		return fmt.Sprintf("field '%s' failed '%s'", f, fe.Tag())
	}
}
