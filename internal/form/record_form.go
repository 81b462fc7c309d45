// Package form models the editable record form: five numeric text fields,
// automatic insulin calculation with a manual override, submit-time
// validation, and weight edits on recognized food items.
package form

import (
	"fmt"
	"strings"
	"sync"

	"github.com/baobabichh/diabetic-diary-app/internal/calculator"
	"github.com/baobabichh/diabetic-diary-app/internal/models"
)

// DefaultCoefficient is the initial text of the three coefficient fields.
const DefaultCoefficient = "1.0"

// Options configures a new RecordForm. Zero values select the defaults.
type Options struct {
	InitialCarbs               string
	InitialInsulin             string
	InitialTimeCoefficient     string
	InitialSportCoefficient    string
	InitialPersonalCoefficient string

	// Result attaches recognized products. The carbohydrates field is seeded
	// from their sum.
	Result *models.FoodRecognitionResult

	// RecognitionID is forwarded on submit so the record links to the
	// recognition request.
	RecognitionID string

	// OnFoodItemChange is called after a product weight edit with the
	// product's index and its updated value.
	OnFoodItemChange func(index int, item models.FoodItem)
}

// Values is a read-only snapshot of the form.
type Values struct {
	Carbohydrates       string
	Insulin             string
	TimeCoefficient     string
	SportCoefficient    string
	PersonalCoefficient string
	ManualInsulin       bool
}

// RecordForm holds the form state. It is safe for concurrent use.
type RecordForm struct {
	mu sync.Mutex

	carbohydrates       string
	insulin             string
	timeCoefficient     string
	sportCoefficient    string
	personalCoefficient string
	manualInsulin       bool

	result           *models.FoodRecognitionResult
	recognitionID    string
	seeded           bool
	onFoodItemChange func(index int, item models.FoodItem)

	errors Errors
}

// New creates a form and runs the initial insulin calculation.
func New(opts Options) *RecordForm {
	f := &RecordForm{
		carbohydrates:       opts.InitialCarbs,
		insulin:             opts.InitialInsulin,
		timeCoefficient:     orDefault(opts.InitialTimeCoefficient),
		sportCoefficient:    orDefault(opts.InitialSportCoefficient),
		personalCoefficient: orDefault(opts.InitialPersonalCoefficient),
		recognitionID:       opts.RecognitionID,
		onFoodItemChange:    opts.OnFoodItemChange,
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if opts.Result != nil {
		f.setResultLocked(opts.Result)
	}
	f.recalculateLocked()
	return f
}

func orDefault(v string) string {
	if v == "" {
		return DefaultCoefficient
	}
	return v
}

// Values returns the current field values.
func (f *RecordForm) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Values{
		Carbohydrates:       f.carbohydrates,
		Insulin:             f.insulin,
		TimeCoefficient:     f.timeCoefficient,
		SportCoefficient:    f.sportCoefficient,
		PersonalCoefficient: f.personalCoefficient,
		ManualInsulin:       f.manualInsulin,
	}
}

// RecognitionID returns the attached recognition request id, if any.
func (f *RecordForm) RecognitionID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recognitionID
}

// SetCarbohydrates updates the carbohydrates field.
func (f *RecordForm) SetCarbohydrates(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carbohydrates = v
	f.recalculateLocked()
}

// SetTimeCoefficient updates the time-of-day coefficient.
func (f *RecordForm) SetTimeCoefficient(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeCoefficient = v
	f.recalculateLocked()
}

// SetSportCoefficient updates the physical-activity coefficient.
func (f *RecordForm) SetSportCoefficient(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sportCoefficient = v
	f.recalculateLocked()
}

// SetPersonalCoefficient updates the personal sensitivity coefficient.
func (f *RecordForm) SetPersonalCoefficient(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.personalCoefficient = v
	f.recalculateLocked()
}

// SetInsulin stores a user-typed dose and switches the field to manual mode,
// which suppresses automatic calculation.
func (f *RecordForm) SetInsulin(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manualInsulin = true
	f.insulin = v
}

// CalculateAutomatically leaves manual mode and recomputes the dose at once.
func (f *RecordForm) CalculateAutomatically() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manualInsulin = false
	f.recalculateLocked()
}

// recalculateLocked leaves insulin untouched in manual mode or when the
// carbohydrates field is not a number.
func (f *RecordForm) recalculateLocked() {
	if f.manualInsulin {
		return
	}
	carbs, ok := calculator.ParseNumber(f.carbohydrates)
	if !ok {
		return
	}
	dose := calculator.InsulinDose(carbs,
		calculator.CoefficientOrDefault(f.timeCoefficient),
		calculator.CoefficientOrDefault(f.sportCoefficient),
		calculator.CoefficientOrDefault(f.personalCoefficient),
	)
	f.insulin = calculator.FormatOneDecimal(dose)
}

// SetResult attaches recognized products. The carbohydrates field is seeded
// from their total only the first time a result arrives; later calls replace
// the products without touching the field.
func (f *RecordForm) SetResult(result *models.FoodRecognitionResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setResultLocked(result)
	f.recalculateLocked()
}

func (f *RecordForm) setResultLocked(result *models.FoodRecognitionResult) {
	f.result = result.Clone()
	if f.result == nil || f.seeded {
		return
	}
	f.seeded = true
	f.carbohydrates = fmt.Sprint(calculator.TotalCarbs(f.result.Products))
}

// Products returns a copy of the attached products, or nil.
func (f *RecordForm) Products() []models.FoodItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result == nil {
		return nil
	}
	return f.result.Clone().Products
}

// Result returns a copy of the attached recognition result, or nil.
func (f *RecordForm) Result() *models.FoodRecognitionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result.Clone()
}

// TotalCarbs sums the carbohydrates of the current products. It is a display
// value and is not synced back into the carbohydrates field.
func (f *RecordForm) TotalCarbs() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result == nil {
		return 0
	}
	return calculator.TotalCarbs(f.result.Products)
}

// UpdateGrams edits a product's weight and recomputes its carbohydrates from
// the product ratio. Unparsable input counts as 0 g.
func (f *RecordForm) UpdateGrams(index int, grams string) (models.FoodItem, error) {
	f.mu.Lock()
	if f.result == nil || index < 0 || index >= len(f.result.Products) {
		f.mu.Unlock()
		return models.FoodItem{}, fmt.Errorf("food item %d: %w", index, ErrNoSuchItem)
	}
	g, ok := calculator.ParseNumber(grams)
	if !ok {
		g = 0
	}
	item := calculator.WithGrams(f.result.Products[index], g)
	f.result.Products[index] = item
	cb := f.onFoodItemChange
	f.mu.Unlock()

	if cb != nil {
		cb(index, item)
	}
	return item, nil
}

// Validate checks every field independently and returns all failures.
// The result is also kept for Errors.
func (f *RecordForm) Validate() Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *RecordForm) validateLocked() Errors {
	errs := Errors{}

	if strings.TrimSpace(f.carbohydrates) == "" {
		errs[FieldCarbohydrates] = "Carbohydrates is required"
	} else if !nonNegative(f.carbohydrates) {
		errs[FieldCarbohydrates] = "Carbohydrates must be a positive number"
	}

	optional := []struct {
		field Field
		value string
		label string
	}{
		{FieldInsulin, f.insulin, "Insulin"},
		{FieldTimeCoefficient, f.timeCoefficient, "Time coefficient"},
		{FieldSportCoefficient, f.sportCoefficient, "Sport coefficient"},
		{FieldPersonalCoefficient, f.personalCoefficient, "Personal coefficient"},
	}
	for _, o := range optional {
		if strings.TrimSpace(o.value) != "" && !nonNegative(o.value) {
			errs[o.field] = o.label + " must be a positive number"
		}
	}

	f.errors = errs
	return errs
}

func nonNegative(s string) bool {
	v, ok := calculator.ParseNumber(s)
	return ok && v >= 0
}

// Errors returns the messages from the last validation.
func (f *RecordForm) Errors() Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(Errors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Submit validates the form and returns the values to send. When any rule
// fails it returns the Errors and nothing else happens.
func (f *RecordForm) Submit() (models.RecordInput, Errors) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if errs := f.validateLocked(); len(errs) > 0 {
		return models.RecordInput{}, errs
	}
	return models.RecordInput{
		Carbohydrates:       f.carbohydrates,
		Insulin:             f.insulin,
		TimeCoefficient:     f.timeCoefficient,
		SportCoefficient:    f.sportCoefficient,
		PersonalCoefficient: f.personalCoefficient,
		RequestID:           f.recognitionID,
	}, nil
}
