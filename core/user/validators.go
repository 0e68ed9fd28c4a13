package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/classwork/core"
)

const (
	passwordMinLen = 8
	passwordMaxLen = 72 // bcrypt ignores the rest

	// maxAttrSimilarity is the difflib quick ratio from which a password counts as
	// derived from the username or the email.
	maxAttrSimilarity = .7
	tooSimilarTag     = "pwdtoosim"
	tooSimilarMsg     = "password cannot be similar to user attributes"
)

type passwordRule struct {
	tag, msg string
	ok       func(pwd string) bool
}

// passwordRules are checked in order; only the first broken rule is reported.
var passwordRules = []passwordRule{
	{
		tag: "pwdminlen",
		msg: fmt.Sprintf("password must contain at least %d characters", passwordMinLen),
		ok:  func(pwd string) bool { return len(pwd) >= passwordMinLen },
	},
	{
		tag: "pwdmaxlen",
		msg: fmt.Sprintf("password must contain at most %d characters", passwordMaxLen),
		ok:  func(pwd string) bool { return len(pwd) <= passwordMaxLen },
	},
	{
		tag: "pwdnospace",
		msg: "password must not contain whitespace",
		ok:  func(pwd string) bool { return strings.IndexFunc(pwd, unicode.IsSpace) < 0 },
	},
	{
		tag: "pwdnotallnum",
		msg: "password cannot be entirely numeric",
		ok: func(pwd string) bool {
			return strings.IndexFunc(pwd, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0
		},
	},
}

// RegisterValidations adds the password policy to validate, as a struct level
// validation of NewUser, UpdateUser and ResetUserPassword.
func RegisterValidations(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(validateUserStruct, NewUser{}, UpdateUser{}, ResetUserPassword{})
	for _, rule := range passwordRules {
		core.RegisterMessage(validate, translator, rule.tag, rule.msg)
	}
	core.RegisterMessage(validate, translator, tooSimilarTag, tooSimilarMsg)
}

func validateUserStruct(sl validator.StructLevel) {
	var pwd string
	var attrs []string
	switch v := sl.Current().Interface().(type) {
	case NewUser:
		pwd, attrs = v.Password, []string{v.Username, v.Email}
	case UpdateUser:
		if v.Password == "" {
			return // password left unchanged
		}
		pwd, attrs = v.Password, []string{v.Username, v.Email}
	case ResetUserPassword:
		pwd = v.Password
	default:
		return
	}
	if tag := passwordViolation(pwd, attrs...); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// passwordViolation returns the tag of the first rule pwd breaks, or "" when it is acceptable.
func passwordViolation(pwd string, attrs ...string) string {
	for _, rule := range passwordRules {
		if !rule.ok(pwd) {
			return rule.tag
		}
	}

	lower := strings.Split(strings.ToLower(pwd), "")
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		if difflib.NewMatcher(lower, strings.Split(attr, "")).QuickRatio() >= maxAttrSimilarity {
			return tooSimilarTag
		}
	}
	return ""
}
