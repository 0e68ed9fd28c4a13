package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var usernameRegex = regexp.MustCompile(`^\w+$`)

// customTags are the validation tags every payload of the app may use, beside the validator builtins.
var customTags = []struct {
	tag, msg string
	fn       validator.Func
}{
	{
		tag: "alphanum_",
		msg: "only alphanumeric characters and underscores are allowed",
		fn:  func(fl validator.FieldLevel) bool { return usernameRegex.MatchString(fl.Field().String()) },
	},
	{
		tag: "role",
		msg: "invalid role",
		fn:  func(fl validator.FieldLevel) bool { return Role(fl.Field().String()).Valid() },
	},
}

// NewValidator returns a validator reporting errors in english, under the JSON names of the fields.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	for _, ct := range customTags {
		_ = validate.RegisterValidation(ct.tag, ct.fn)
		RegisterMessage(validate, translator, ct.tag, ct.msg)
	}
	RegisterMessage(validate, translator, "required", "this field is required")
	return validate, translator
}

// RegisterMessage sets msg as the error reported for tag, replacing any builtin message.
func RegisterMessage(validate *validator.Validate, translator ut.Translator, tag, msg string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, msg, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// TranslateErrors flattens validator errors into field errors.
func TranslateErrors(err error, translator ut.Translator) error {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
	}
	return NewValidationError(nil, flds...)
}
