package form

import (
	"errors"
	"sort"
	"strings"
)

// Field names a validated input of the record form.
type Field string

const (
	FieldCarbohydrates       Field = "carbohydrates"
	FieldInsulin             Field = "insulin"
	FieldTimeCoefficient     Field = "timeCoefficient"
	FieldSportCoefficient    Field = "sportCoefficient"
	FieldPersonalCoefficient Field = "personalCoefficient"
)

// Errors maps each failing field to its message. A nil or empty Errors means
// the form is valid.
type Errors map[Field]string

// Error joins every message in field order so the output is stable.
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

// Has reports whether field failed validation.
func (e Errors) Has(field Field) bool {
	_, ok := e[field]
	return ok
}

// ErrNoSuchItem is returned for a product index outside the attached result.
var ErrNoSuchItem = errors.New("no such food item")
