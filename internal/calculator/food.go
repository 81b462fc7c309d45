package calculator

import (
	"math"

	"github.com/baobabichh/diabetic-diary-app/internal/models"
)

// CarbsForGrams recomputes a product's carbohydrates after a weight edit:
//
//	carbs = round(grams / 100 * ratio)
//
// Halves round up, so 2.5 becomes 3.
func CarbsForGrams(grams, ratio float64) float64 {
	return math.Floor(grams/100.0*ratio + 0.5)
}

// WithGrams returns a copy of item with Grams set and Carbs recomputed from
// the item's ratio.
func WithGrams(item models.FoodItem, grams float64) models.FoodItem {
	item.Grams = grams
	item.Carbs = CarbsForGrams(grams, item.Ratio)
	return item
}

// TotalCarbs sums the current carbohydrates of every product.
func TotalCarbs(items []models.FoodItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Carbs
	}
	return total
}
