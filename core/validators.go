package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	notBlankText = "this field cannot be blank"
	requiredText = "this field is required"
)

// validationRule is a tag with its english message. fn is nil for builtin tags whose message is replaced.
type validationRule struct {
	tag  string
	text string
	fn   validator.Func
}

var validationRules = []validationRule{
	{tag: "required", text: requiredText},
	{tag: "notblank", text: notBlankText, fn: notBlank},
}

// NewTranslator returns the english translator used for validation error messages.
func NewTranslator() ut.Translator {
	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")
	return translator
}

// InitValidators registers the json field names, the custom tags and their messages.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	validate.RegisterTagNameFunc(jsonFieldName)

	for _, rule := range validationRules {
		if rule.fn != nil {
			_ = validate.RegisterValidation(rule.tag, rule.fn)
		}
		registerTranslation(validate, translator, rule.tag, rule.text, rule.fn == nil)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// notBlank rejects strings made only of whitespace.
func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}
