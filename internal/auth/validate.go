package auth

import (
	"regexp"
	"sort"
	"strings"
)

// Field names a credential input.
type Field string

const (
	FieldEmail           Field = "email"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirmPassword"
)

// Errors maps each failing field to its message.
type Errors map[Field]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, e[Field(f)])
	}
	return strings.Join(msgs, "; ")
}

// emailPattern is deliberately loose: something@something.something.
var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidateRegistration checks the register form. Every failing field is
// reported; nil means valid.
func ValidateRegistration(email, password, confirm string) Errors {
	errs := Errors{}

	switch {
	case email == "":
		errs[FieldEmail] = "Email is required"
	case !emailPattern.MatchString(email):
		errs[FieldEmail] = "Email is invalid"
	}

	switch {
	case password == "":
		errs[FieldPassword] = "Password is required"
	case len(password) < MinPasswordLength:
		errs[FieldPassword] = "Password must be at least 8 characters"
	}

	switch {
	case confirm == "":
		errs[FieldConfirmPassword] = "Please confirm your password"
	case password != confirm:
		errs[FieldConfirmPassword] = "Passwords do not match"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateLogin checks that both credentials are present.
func ValidateLogin(email, password string) Errors {
	errs := Errors{}
	if email == "" {
		errs[FieldEmail] = "Email is required"
	}
	if password == "" {
		errs[FieldPassword] = "Password is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
