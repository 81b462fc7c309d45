package models

// NullRecognitionID is the sentinel the backend stores when a record was
// entered manually.
const NullRecognitionID = "NULL"

// Record is one saved diary entry.
// All numeric values are decimal strings, exactly as the backend stores them.
type Record struct {
	ID                  string `json:"ID"`
	UserID              string `json:"UserID"`
	FoodRecognitionID   string `json:"FoodRecognitionID"`
	Insulin             string `json:"Insulin"`
	Carbohydrates       string `json:"Carbohydrates"`
	TimeCoefficient     string `json:"TimeCoefficient"`
	SportCoefficient    string `json:"SportCoefficient"`
	PersonalCoefficient string `json:"PersonalCoefficient"`
	CreateTS            string `json:"CreateTS"`
}

// HasRecognition reports whether the record references recognition data
// that can be fetched.
func (r Record) HasRecognition() bool {
	return r.FoodRecognitionID != "" && r.FoodRecognitionID != NullRecognitionID
}

// RecordInput holds the form values submitted by "add record".
// Blank optional fields are omitted from the request so the backend applies
// its defaults.
type RecordInput struct {
	// Carbohydrates is required.
	Carbohydrates string

	Insulin             string
	TimeCoefficient     string
	SportCoefficient    string
	PersonalCoefficient string

	// RequestID links the record to a recognition request. Empty for manual
	// entries.
	RequestID string
}
