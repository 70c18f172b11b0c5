package layout

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

var (
	typeTag  = "layouttype"
	typeText = fmt.Sprintf("type must be one of: %s", strings.Join(Types, ", "))

	bannerRequiredTag  = "bannerrequired"
	bannerRequiredText = "banner is required for Banner layouts"
)

// InitValidators registers the layout validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(typeTag, typeValidation)
	core.RegisterCustomTranslation(validate, translator, typeTag, typeText)

	validate.RegisterStructValidation(layoutStructValidation, NewLayout{}, UpdateLayout{})
	core.RegisterCustomTranslation(validate, translator, bannerRequiredTag, bannerRequiredText)
}

func isType(typ string) bool {
	for _, t := range Types {
		if typ == t {
			return true
		}
	}
	return false
}

// typeValidation checks that the provided type is one of Types
func typeValidation(fl validator.FieldLevel) bool {
	return isType(fl.Field().String())
}

// layoutStructValidation checks that the content matching the layout type is provided.
func layoutStructValidation(sl validator.StructLevel) {
	var typ string
	var content Content
	switch l := sl.Current().Interface().(type) {
	case NewLayout:
		typ, content = l.Type, l.Content
	case UpdateLayout:
		typ, content = l.Type, l.Content
	}
	if typ == TypeBanner && content.Banner == nil {
		sl.ReportError(content.Banner, "banner", "Banner", bannerRequiredTag, "")
	}
}
