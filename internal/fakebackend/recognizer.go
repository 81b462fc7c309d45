package fakebackend

import (
	"context"
	"errors"

	"github.com/baobabichh/diabetic-diary-app/internal/models"
)

// Recognizer turns an image into detected products.
type Recognizer interface {
	Recognize(ctx context.Context, mimeType string, image []byte) (*models.FoodRecognitionResult, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, mimeType string, image []byte) (*models.FoodRecognitionResult, error)

func (f RecognizerFunc) Recognize(ctx context.Context, mimeType string, image []byte) (*models.FoodRecognitionResult, error) {
	return f(ctx, mimeType, image)
}

// ErrUnrecognized makes a request end in the Error status.
var ErrUnrecognized = errors.New("no food recognized")

// StaticRecognizer returns the same products for every image.
type StaticRecognizer struct {
	Products []models.FoodItem
}

func (s StaticRecognizer) Recognize(context.Context, string, []byte) (*models.FoodRecognitionResult, error) {
	if len(s.Products) == 0 {
		return nil, ErrUnrecognized
	}
	r := &models.FoodRecognitionResult{Products: s.Products}
	return r.Clone(), nil
}

// DefaultProducts is what the development backend "recognizes" on every
// photo unless configured otherwise.
var DefaultProducts = []models.FoodItem{
	{Name: "Boiled rice", Carbs: 42, Grams: 150, Ratio: 28},
	{Name: "Apple", Carbs: 14, Grams: 120, Ratio: 12},
}
