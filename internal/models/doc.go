// Package models defines the entities exchanged with the food-recognition
// backend.
//
// # Ownership
//
// The client owns no durable state except the session token. Everything in
// this package is owned by the remote backend and only held transiently while
// a screen (or a CLI command) is working with it:
//   - FoodItem / FoodRecognitionResult: produced by image recognition, mutable
//     client-side (gram edits) before a record is saved
//   - Record: created by "add record", immutable afterwards, read back by id
//   - RecognitionStatus: lifecycle of one recognition request
//
// # Wire format
//
// Record fields are transmitted as decimal strings and keep the backend's
// PascalCase keys. Food items use lower-case keys. The literal string "NULL"
// stands for a record without an attached recognition request.
package models
