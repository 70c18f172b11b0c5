package course

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

var (
	levelTag  = "courselevel"
	levelText = fmt.Sprintf("level must be one of: %s", strings.Join(Levels, ", "))
)

// InitValidators registers the course validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(levelTag, levelValidation)
	core.RegisterCustomTranslation(validate, translator, levelTag, levelText)
}

// levelValidation checks that the provided level is one of Levels
func levelValidation(fl validator.FieldLevel) bool {
	lvl := fl.Field().String()
	for _, l := range Levels {
		if lvl == l {
			return true
		}
	}
	return false
}
