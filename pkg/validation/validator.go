package validation

import (
	"database/sql/driver"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/id"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	id_translations "github.com/go-playground/validator/v10/translations/id"
)

const (
	notBlankTag = "notblank"
	slugTag     = "slug"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Validator wraps the validator engine with Indonesian error messages.
type Validator struct {
	engine     *validator.Validate
	translator ut.Translator
}

// New builds a validator using JSON tag names for fields.
func New() *Validator {
	engine := validator.New()

	locale := id.New()
	uni := ut.New(locale, locale)
	translator, _ := uni.GetTranslator("id")
	_ = id_translations.RegisterDefaultTranslations(engine, translator)

	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = engine.RegisterValidation(notBlankTag, notBlank)
	_ = engine.RegisterValidation(slugTag, validSlug)

	v := &Validator{engine: engine, translator: translator}
	v.registerCustomTranslations(map[string]string{
		notBlankTag: "{0} tidak boleh kosong",
		slugTag:     "{0} hanya boleh berisi huruf kecil, angka, dan tanda hubung",
	})
	return v
}

// Engine exposes the underlying validator for struct-level registrations.
func (v *Validator) Engine() *validator.Validate {
	return v.engine
}

// RegisterValuer lets tags such as required inspect the database value of types
// implementing driver.Valuer. A zero value is reported as nil.
func (v *Validator) RegisterValuer(types ...interface{}) {
	v.engine.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		valuer, ok := field.Interface().(driver.Valuer)
		if !ok {
			return nil
		}
		val, err := valuer.Value()
		if err != nil {
			return nil
		}
		return val
	}, types...)
}

// Struct validates s and returns the raw validator error.
func (v *Validator) Struct(s interface{}) error {
	return v.engine.Struct(s)
}

// Var validates a single value against a tag expression.
func (v *Validator) Var(field interface{}, tag string) error {
	return v.engine.Var(field, tag)
}

// Translate maps validation failures to field -> message. Non-validation errors yield nil.
func (v *Validator) Translate(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}

// FailedFields lists the JSON names of the fields that failed validation.
func (v *Validator) FailedFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

func (v *Validator) registerCustomTranslations(messages map[string]string) {
	for tag, text := range messages {
		text := text
		tag := tag
		_ = v.engine.RegisterTranslation(tag, v.translator,
			func(t ut.Translator) error {
				return t.Add(tag, text, true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, err := t.T(fe.Tag(), fe.Field())
				if err != nil {
					return fe.Error()
				}
				return msg
			},
		)
	}
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	case reflect.Ptr:
		if field.IsNil() {
			return false
		}
		if s, ok := field.Elem().Interface().(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return true
	default:
		return !field.IsZero()
	}
}

func validSlug(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if s == "" {
		return true
	}
	return slugPattern.MatchString(s)
}
