// Package validation holds the field rules shared by the API and the CSV
// importer, registered on go-playground/validator so binding tags can use them.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	hexColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
	usernameChar    = regexp.MustCompile(`[\w.@+-]`)
)

// ReservedUsernames cannot be registered because they collide with routes.
var ReservedUsernames = []string{"me"}

var (
	ErrReservedUsername = errors.New("username is reserved")
	ErrUsernameChars    = errors.New("username contains forbidden characters")
)

var (
	bindingTrans ut.Translator
	bindingOnce  sync.Once
	bindingErr   error
)

// IsHexColor reports whether s is #RGB or #RRGGBB.
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// ForbiddenUsernameChars returns the distinct characters of name outside [\w.@+-], sorted.
func ForbiddenUsernameChars(name string) string {
	seen := map[rune]bool{}
	for _, r := range name {
		if !usernameChar.MatchString(string(r)) {
			seen[r] = true
		}
	}
	chars := make([]string, 0, len(seen))
	for r := range seen {
		chars = append(chars, string(r))
	}
	sort.Strings(chars)
	return strings.Join(chars, "")
}

// CheckUsername rejects reserved names and names with forbidden characters.
func CheckUsername(name string) error {
	for _, reserved := range ReservedUsernames {
		if strings.EqualFold(name, reserved) {
			return fmt.Errorf("%w: %q", ErrReservedUsername, name)
		}
	}
	if bad := ForbiddenUsernameChars(name); bad != "" {
		return fmt.Errorf("%w: %s", ErrUsernameChars, bad)
	}
	return nil
}

func validateTagColor(fl validator.FieldLevel) bool {
	return IsHexColor(fl.Field().String())
}

func validateUsername(fl validator.FieldLevel) bool {
	return CheckUsername(fl.Field().String()) == nil
}

// jsonName reports fields by their json (or form) name.
func jsonName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// register installs the custom rules and English messages on v and
// returns the translator the messages were registered with.
func register(v *validator.Validate) (ut.Translator, error) {
	uni := ut.New(en.New(), en.New())
	trans, _ := uni.GetTranslator("en")

	v.RegisterTagNameFunc(jsonName)

	if err := v.RegisterValidation("tagcolor", validateTagColor); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("username", validateUsername); err != nil {
		return nil, err
	}
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, err
	}

	overrides := map[string]string{
		"required": "This field is required.",
		"tagcolor": "Enter a valid hex color such as #49B64E.",
	}
	for tag, text := range overrides {
		err := v.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error { return ut.Add(tag, text, true) },
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(fe.Tag())
				return t
			})
		if err != nil {
			return nil, err
		}
	}

	err := v.RegisterTranslation("username", trans,
		func(ut ut.Translator) error { return nil },
		func(ut ut.Translator, fe validator.FieldError) string {
			name, _ := fe.Value().(string)
			return usernameMessage(CheckUsername(name), name)
		})
	return trans, err
}

func usernameMessage(err error, name string) string {
	switch {
	case errors.Is(err, ErrReservedUsername):
		return fmt.Sprintf("Username '%s' is reserved.", name)
	case errors.Is(err, ErrUsernameChars):
		return fmt.Sprintf("Username contains forbidden characters: %s", ForbiddenUsernameChars(name))
	default:
		return "Enter a valid username."
	}
}

// Validator checks structs tagged with `validate` outside gin binding.
type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

// New returns a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	trans, err := register(v)
	if err != nil {
		panic(err)
	}
	return &Validator{v: v, trans: trans}
}

// Struct validates s and returns field-keyed messages, or nil when s is valid.
func (v *Validator) Struct(s interface{}) map[string][]string {
	return v.result(v.v.Struct(s))
}

// Partial validates only the named struct fields of s, e.g. "Name".
func (v *Validator) Partial(s interface{}, fields ...string) map[string][]string {
	return v.result(v.v.StructPartial(s, fields...))
}

func (v *Validator) result(err error) map[string][]string {
	if err == nil {
		return nil
	}
	fields, ok := translate(err, v.trans)
	if !ok {
		return map[string][]string{"non_field_errors": {err.Error()}}
	}
	return fields
}

// RegisterBinding installs the custom rules on gin's default validator.
// Handlers call it from their constructors; only the first call does work.
func RegisterBinding() error {
	bindingOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			bindingErr = errors.New("gin binding validator is not go-playground/validator")
			return
		}
		bindingTrans, bindingErr = register(v)
	})
	return bindingErr
}

// Translate turns errors from gin binding into field-keyed messages.
// ok is false when err is not a validator error.
func Translate(err error) (fields map[string][]string, ok bool) {
	return translate(err, bindingTrans)
}

func translate(err error, trans ut.Translator) (map[string][]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	fields := make(map[string][]string)
	for _, fe := range verrs {
		msg := fe.Error()
		if trans != nil {
			msg = fe.Translate(trans)
		}
		fields[fe.Field()] = append(fields[fe.Field()], msg)
	}
	return fields, true
}
