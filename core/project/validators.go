package project

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mradi/core"
)

var (
	statusTag  = "status"
	statusText = fmt.Sprintf("status must be one of: %s", strings.Join(AllStatuses, ", "))
)

// InitValidators registers the project validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

// statusValidation checks that provided status is one of AllStatuses
func statusValidation(fl validator.FieldLevel) bool {
	return IsValidStatus(fl.Field().String())
}
