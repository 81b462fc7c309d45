package models

// FoodItem is one product detected on a meal photo.
type FoodItem struct {
	// Name is the product label returned by the recognizer.
	Name string `json:"name"`

	// Carbs is the carbohydrate amount for the current weight, in grams.
	// It is recomputed from Grams and Ratio only when Grams is edited.
	Carbs float64 `json:"carbs"`

	// Grams is the estimated (or user-corrected) weight of the product.
	Grams float64 `json:"grams"`

	// Ratio is grams of carbohydrate per 100 g of product.
	Ratio float64 `json:"ratio"`
}

// FoodRecognitionResult is the full output of one recognition request.
type FoodRecognitionResult struct {
	Products []FoodItem `json:"products"`
}

// Clone returns a deep copy so callers can edit products without touching
// the original slice.
func (r *FoodRecognitionResult) Clone() *FoodRecognitionResult {
	if r == nil {
		return nil
	}
	out := &FoodRecognitionResult{Products: make([]FoodItem, len(r.Products))}
	copy(out.Products, r.Products)
	return out
}

// RecognitionStatus is the server-side state of a recognition request.
type RecognitionStatus string

const (
	StatusWaiting    RecognitionStatus = "Waiting"
	StatusProcessing RecognitionStatus = "Processing"
	StatusDone       RecognitionStatus = "Done"
	StatusError      RecognitionStatus = "Error"
)

// IsPending reports whether the request is still being worked on and should
// be polled again.
func (s RecognitionStatus) IsPending() bool {
	return s == StatusWaiting || s == StatusProcessing
}

// IsTerminal reports whether the request has finished, successfully or not.
func (s RecognitionStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}
