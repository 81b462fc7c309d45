package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/baobabichh/diabetic-diary-app/internal/auth"
	"github.com/baobabichh/diabetic-diary-app/internal/models"
)

var _ auth.Authenticator = (*Client)(nil)

// Register creates an account and returns its session token.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	return c.credentials(ctx, "/register_user", email, password, "Registration failed")
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	return c.credentials(ctx, "/login_user", email, password, "Login failed")
}

func (c *Client) credentials(ctx context.Context, path, email, password, fallback string) (string, error) {
	params := url.Values{}
	params.Set("email", email)
	params.Set("password", password)

	var out struct {
		UUID string `json:"UUID"`
	}
	if err := c.do(ctx, http.MethodPost, path, params, fallback, &out); err != nil {
		return "", err
	}
	return out.UUID, nil
}

// RecognizeFood submits a base64-encoded image and returns the id of the
// recognition request.
func (c *Client) RecognizeFood(ctx context.Context, base64Image, mimeType string) (string, error) {
	params := url.Values{}
	params.Set("uuid", c.token())
	params.Set("base64_string", base64Image)
	params.Set("mime_type", mimeType)

	var out struct {
		FoodRecognitionID string `json:"FoodRecognitionID"`
	}
	if err := c.do(ctx, http.MethodPost, "/recognize_food", params, "Food recognition failed", &out); err != nil {
		return "", err
	}
	return out.FoodRecognitionID, nil
}

// GetStatus returns the processing status of a recognition request.
func (c *Client) GetStatus(ctx context.Context, requestID string) (models.RecognitionStatus, error) {
	var out struct {
		Status models.RecognitionStatus `json:"Status"`
	}
	if err := c.do(ctx, http.MethodGet, "/get_status", c.requestParams(requestID),
		"Failed to get recognition status", &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// GetResult returns the products detected by a finished request.
func (c *Client) GetResult(ctx context.Context, requestID string) (*models.FoodRecognitionResult, error) {
	var out models.FoodRecognitionResult
	if err := c.do(ctx, http.MethodGet, "/get_result", c.requestParams(requestID),
		"Failed to get recognition result", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditResult replaces the stored result of a request with result.
func (c *Client) EditResult(ctx context.Context, requestID string, result *models.FoodRecognitionResult) error {
	newJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	params := c.requestParams(requestID)
	params.Set("new_json", string(newJSON))

	return c.do(ctx, http.MethodGet, "/edit_result", params, "Failed to edit result", nil)
}

// AddRecord saves a diary record. Blank optional values are left out so the
// backend applies its defaults.
func (c *Client) AddRecord(ctx context.Context, in models.RecordInput) error {
	params := url.Values{}
	params.Set("uuid", c.token())

	optional := []struct{ key, value string }{
		{"time_coefficient", in.TimeCoefficient},
		{"sport_coefficient", in.SportCoefficient},
		{"personal_coefficient", in.PersonalCoefficient},
		{"insulin", in.Insulin},
	}
	for _, o := range optional {
		if strings.TrimSpace(o.value) != "" {
			params.Set(o.key, o.value)
		}
	}

	params.Set("carbohydrates", in.Carbohydrates)
	if in.RequestID != "" {
		params.Set("request_id", in.RequestID)
	}

	return c.do(ctx, http.MethodPost, "/add_record", params, "Failed to add record", nil)
}

// GetRecordIDs lists the ids of the user's records.
func (c *Client) GetRecordIDs(ctx context.Context) ([]string, error) {
	params := url.Values{}
	params.Set("uuid", c.token())

	var ids []string
	if err := c.do(ctx, http.MethodGet, "/get_record_ids", params, "Failed to get record IDs", &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetRecordsByIDs fetches full records for ids.
func (c *Client) GetRecordsByIDs(ctx context.Context, ids []string) ([]models.Record, error) {
	params := url.Values{}
	params.Set("uuid", c.token())
	params.Set("ids", strings.Join(ids, ","))

	var records []models.Record
	if err := c.do(ctx, http.MethodGet, "/get_records_by_ids", params, "Failed to get records", &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) requestParams(requestID string) url.Values {
	params := url.Values{}
	params.Set("uuid", c.token())
	params.Set("request_id", requestID)
	return params
}
