package calculator

import (
	"testing"

	"github.com/baobabichh/diabetic-diary-app/internal/models"
)

func TestCarbsForGrams(t *testing.T) {
	tests := []struct {
		name         string
		grams, ratio float64
		want         float64
	}{
		{name: "ratio 10, 150 g", grams: 150, ratio: 10, want: 15},
		{name: "zero grams", grams: 0, ratio: 55, want: 0},
		{name: "rounds down", grams: 120, ratio: 12, want: 14},
		{name: "half rounds up", grams: 50, ratio: 5, want: 3},
		{name: "zero ratio", grams: 300, ratio: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CarbsForGrams(tt.grams, tt.ratio); got != tt.want {
				t.Errorf("CarbsForGrams(%v, %v) = %v, want %v", tt.grams, tt.ratio, got, tt.want)
			}
		})
	}
}

func TestWithGrams(t *testing.T) {
	item := models.FoodItem{Name: "rice", Carbs: 28, Grams: 100, Ratio: 28}

	got := WithGrams(item, 250)
	if got.Grams != 250 || got.Carbs != 70 {
		t.Fatalf("WithGrams = %+v, want grams 250 carbs 70", got)
	}
	if got.Name != "rice" || got.Ratio != 28 {
		t.Errorf("WithGrams changed unrelated fields: %+v", got)
	}
	if item.Grams != 100 {
		t.Error("WithGrams mutated its argument")
	}
}

func TestTotalCarbs(t *testing.T) {
	items := []models.FoodItem{
		{Name: "bread", Carbs: 24},
		{Name: "apple", Carbs: 14},
		{Name: "cheese", Carbs: 0},
	}
	if got := TotalCarbs(items); got != 38 {
		t.Errorf("TotalCarbs = %v, want 38", got)
	}
	if got := TotalCarbs(nil); got != 0 {
		t.Errorf("TotalCarbs(nil) = %v, want 0", got)
	}
}
