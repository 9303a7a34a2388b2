package middleware

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// codiceFiscalePattern matches the 16-character Italian tax code
var codiceFiscalePattern = regexp.MustCompile(`^[A-Z]{6}[0-9]{2}[A-EHLMPR-T][0-9]{2}[A-Z][0-9]{3}[A-Z]$`)

// SetupValidator configures the validator with custom tags used by the
// wire DTOs: "decimal" for string-encoded monetary values and
// "codice_fiscale" for the Italian tax code.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	_ = v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		_, err := decimal.NewFromString(fl.Field().String())
		return err == nil
	})

	_ = v.RegisterValidation("codice_fiscale", func(fl validator.FieldLevel) bool {
		return codiceFiscalePattern.MatchString(strings.ToUpper(fl.Field().String()))
	})
}
