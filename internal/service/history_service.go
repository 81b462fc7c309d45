package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/baobabichh/diabetic-diary-app/internal/models"
)

// HistoryBackend is the subset of the backend client the history screens
// use. *api.Client implements it.
type HistoryBackend interface {
	GetRecordIDs(ctx context.Context) ([]string, error)
	GetRecordsByIDs(ctx context.Context, ids []string) ([]models.Record, error)
	GetResult(ctx context.Context, requestID string) (*models.FoodRecognitionResult, error)
}

// RecordDetail is one record plus its recognition data, when available.
type RecordDetail struct {
	Record models.Record
	Food   *models.FoodRecognitionResult
}

// HistoryService lists saved records.
type HistoryService struct {
	backend HistoryBackend
	logger  *slog.Logger
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(backend HistoryBackend, logger *slog.Logger) *HistoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryService{backend: backend, logger: logger}
}

// Load fetches every record of the signed-in user.
func (s *HistoryService) Load(ctx context.Context) ([]models.Record, error) {
	ids, err := s.backend.GetRecordIDs(ctx)
	if err != nil {
		s.logger.Error("Error loading records", "error", err)
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Record{}, nil
	}

	records, err := s.backend.GetRecordsByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Error loading records", "error", err)
		return nil, err
	}
	return records, nil
}

// Find loads the history and returns the record with id.
func (s *HistoryService) Find(ctx context.Context, id string) (models.Record, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return models.Record{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Record{}, fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
}

// Detail returns record with its recognition data. Records entered manually
// have none. A failed fetch is logged and the detail comes back without food
// data.
func (s *HistoryService) Detail(ctx context.Context, record models.Record) RecordDetail {
	detail := RecordDetail{Record: record}
	if !record.HasRecognition() {
		return detail
	}

	food, err := s.backend.GetResult(ctx, record.FoodRecognitionID)
	if err != nil {
		s.logger.Error("Error loading food data",
			"record_id", record.ID,
			"request_id", record.FoodRecognitionID,
			"error", err,
		)
		return detail
	}
	detail.Food = food
	return detail
}

// RecordSummary holds the display strings of a record.
type RecordSummary struct {
	Date                string
	Carbohydrates       string
	Insulin             string
	TimeCoefficient     string
	SportCoefficient    string
	PersonalCoefficient string
}

// FormatRecordSummary renders the numeric fields with one decimal.
func FormatRecordSummary(r models.Record, loc *time.Location) RecordSummary {
	return RecordSummary{
		Date:                FormatTimestamp(r.CreateTS, loc),
		Carbohydrates:       formatDecimal(r.Carbohydrates),
		Insulin:             formatDecimal(r.Insulin),
		TimeCoefficient:     formatDecimal(r.TimeCoefficient),
		SportCoefficient:    formatDecimal(r.SportCoefficient),
		PersonalCoefficient: formatDecimal(r.PersonalCoefficient),
	}
}

// formatDecimal parses the leading number of s and prints it with one
// decimal. Values that do not start with a number render as "NaN".
func formatDecimal(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && strings.ContainsRune("+-.0123456789eE", rune(s[end])) {
		end++
	}
	for ; end > 0; end-- {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return strconv.FormatFloat(v, 'f', 1, 64)
		}
	}
	return "NaN"
}

// timestampLayouts are tried in order when parsing CreateTS.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatTimestamp renders a backend timestamp in loc. Timestamps without a
// zone are taken as UTC. Unparsable input is returned unchanged.
func FormatTimestamp(ts string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return t.In(loc).Format("2006-01-02 15:04")
		}
	}
	return ts
}
