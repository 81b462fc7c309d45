package fakebackend

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/baobabichh/diabetic-diary-app/internal/media"
	"github.com/baobabichh/diabetic-diary-app/internal/models"
)

type testClient struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T, opts ...Option) *testClient {
	t.Helper()
	srv := httptest.NewServer(New(opts...).Handler())
	t.Cleanup(srv.Close)
	return &testClient{t: t, srv: srv}
}

func (c *testClient) post(path string, form url.Values, out any) int {
	c.t.Helper()
	resp, err := http.PostForm(c.srv.URL+path, form)
	if err != nil {
		c.t.Fatalf("POST %s failed: %v", path, err)
	}
	return decode(c.t, resp, out)
}

func (c *testClient) get(path string, query url.Values, out any) int {
	c.t.Helper()
	resp, err := http.Get(c.srv.URL + path + "?" + query.Encode())
	if err != nil {
		c.t.Fatalf("GET %s failed: %v", path, err)
	}
	return decode(c.t, resp, out)
}

func decode(t *testing.T, resp *http.Response, out any) int {
	t.Helper()
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode
}

func (c *testClient) register(email string) string {
	c.t.Helper()
	var out struct{ UUID string }
	code := c.post("/register_user", url.Values{"email": {email}, "password": {"password123"}}, &out)
	if code != http.StatusOK || out.UUID == "" {
		c.t.Fatalf("register = %d %+v", code, out)
	}
	return out.UUID
}

func (c *testClient) recognize(token string) string {
	c.t.Helper()
	var out struct{ FoodRecognitionID string }
	code := c.post("/recognize_food", url.Values{
		"uuid":          {token},
		"base64_string": {base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))},
		"mime_type":     {"image/jpeg"},
	}, &out)
	if code != http.StatusOK || out.FoodRecognitionID == "" {
		c.t.Fatalf("recognize = %d %+v", code, out)
	}
	return out.FoodRecognitionID
}

func (c *testClient) status(token, id string) models.RecognitionStatus {
	c.t.Helper()
	var out struct{ Status models.RecognitionStatus }
	if code := c.get("/get_status", url.Values{"uuid": {token}, "request_id": {id}}, &out); code != http.StatusOK {
		c.t.Fatalf("get_status = %d", code)
	}
	return out.Status
}

func TestRegisterAndLogin(t *testing.T) {
	c := newTestServer(t)
	c.register("a@b.co")

	var msg struct{ Msg string }
	if code := c.post("/register_user", url.Values{"email": {"a@b.co"}, "password": {"password123"}}, &msg); code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", code)
	}
	if msg.Msg == "" {
		t.Error("error response should carry Msg")
	}

	var out struct{ UUID string }
	if code := c.post("/login_user", url.Values{"email": {"a@b.co"}, "password": {"password123"}}, &out); code != http.StatusOK || out.UUID == "" {
		t.Errorf("login = %d %+v", code, out)
	}

	msg.Msg = ""
	if code := c.post("/login_user", url.Values{"email": {"a@b.co"}, "password": {"nope"}}, &msg); code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", code)
	}
	if msg.Msg != "Invalid email or password" {
		t.Errorf("Msg = %q", msg.Msg)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	c := newTestServer(t)
	var msg struct{ Msg string }
	code := c.post("/register_user", url.Values{"email": {"a@b.co"}, "password": {"short"}}, &msg)
	if code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", code)
	}
}

func TestRecognitionProgression(t *testing.T) {
	c := newTestServer(t, WithPollsToFinish(3))
	token := c.register("a@b.co")
	id := c.recognize(token)

	want := []models.RecognitionStatus{models.StatusProcessing, models.StatusProcessing, models.StatusDone, models.StatusDone}
	for i, w := range want {
		if got := c.status(token, id); got != w {
			t.Errorf("poll %d = %s, want %s", i+1, got, w)
		}
	}

	var result models.FoodRecognitionResult
	if code := c.get("/get_result", url.Values{"uuid": {token}, "request_id": {id}}, &result); code != http.StatusOK {
		t.Fatalf("get_result = %d", code)
	}
	if len(result.Products) != len(DefaultProducts) {
		t.Errorf("products = %+v", result.Products)
	}
}

func TestRecognitionError(t *testing.T) {
	c := newTestServer(t, WithPollsToFinish(1), WithRecognizer(StaticRecognizer{}))
	token := c.register("a@b.co")
	id := c.recognize(token)

	if got := c.status(token, id); got != models.StatusError {
		t.Errorf("status = %s, want Error", got)
	}
	if code := c.get("/get_result", url.Values{"uuid": {token}, "request_id": {id}}, nil); code != http.StatusConflict {
		t.Errorf("get_result on failed request = %d, want 409", code)
	}
}

func TestUnknownToken(t *testing.T) {
	c := newTestServer(t)
	var msg struct{ Msg string }
	if code := c.get("/get_record_ids", url.Values{"uuid": {"bogus"}}, &msg); code != http.StatusUnauthorized {
		t.Errorf("code = %d, want 401", code)
	}
}

func TestEditResult(t *testing.T) {
	c := newTestServer(t, WithPollsToFinish(1))
	token := c.register("a@b.co")
	id := c.recognize(token)
	c.status(token, id)

	edited := models.FoodRecognitionResult{Products: []models.FoodItem{{Name: "rice", Carbs: 70, Grams: 250, Ratio: 28}}}
	newJSON, _ := json.Marshal(edited)
	if code := c.get("/edit_result", url.Values{"uuid": {token}, "request_id": {id}, "new_json": {string(newJSON)}}, nil); code != http.StatusOK {
		t.Fatalf("edit_result = %d", code)
	}

	var got models.FoodRecognitionResult
	c.get("/get_result", url.Values{"uuid": {token}, "request_id": {id}}, &got)
	if len(got.Products) != 1 || got.Products[0] != edited.Products[0] {
		t.Errorf("result = %+v, want edited", got)
	}
}

func TestAddRecordDefaults(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	c := newTestServer(t, WithClock(func() time.Time { return fixed }))
	token := c.register("a@b.co")

	if code := c.post("/add_record", url.Values{"uuid": {token}, "carbohydrates": {"50"}, "sport_coefficient": {"0.8"}}, nil); code != http.StatusOK {
		t.Fatalf("add_record = %d", code)
	}

	var ids []string
	c.get("/get_record_ids", url.Values{"uuid": {token}}, &ids)
	if len(ids) != 1 {
		t.Fatalf("ids = %v", ids)
	}

	var records []models.Record
	c.get("/get_records_by_ids", url.Values{"uuid": {token}, "ids": {strings.Join(ids, ",")}}, &records)
	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
	r := records[0]
	if r.TimeCoefficient != "1.0" || r.PersonalCoefficient != "1.0" || r.SportCoefficient != "0.8" {
		t.Errorf("coefficients = %s/%s/%s", r.TimeCoefficient, r.SportCoefficient, r.PersonalCoefficient)
	}
	if r.Insulin != "4.0" {
		t.Errorf("insulin = %q, want 4.0", r.Insulin)
	}
	if r.FoodRecognitionID != models.NullRecognitionID {
		t.Errorf("FoodRecognitionID = %q, want NULL", r.FoodRecognitionID)
	}
	if r.CreateTS != "2024-05-01 12:30:00" {
		t.Errorf("CreateTS = %q", r.CreateTS)
	}
}

func TestAddRecordRejectsBadCarbs(t *testing.T) {
	c := newTestServer(t)
	token := c.register("a@b.co")
	if code := c.post("/add_record", url.Values{"uuid": {token}, "carbohydrates": {"lots"}}, nil); code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", code)
	}
}

func TestRecordsAreScopedToUser(t *testing.T) {
	c := newTestServer(t)
	alice := c.register("alice@b.co")
	bob := c.register("bob@b.co")

	c.post("/add_record", url.Values{"uuid": {alice}, "carbohydrates": {"10"}}, nil)

	var ids []string
	c.get("/get_record_ids", url.Values{"uuid": {alice}}, &ids)

	var records []models.Record
	c.get("/get_records_by_ids", url.Values{"uuid": {bob}, "ids": {strings.Join(ids, ",")}}, &records)
	if len(records) != 0 {
		t.Errorf("bob sees %d of alice's records", len(records))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	c := newTestServer(t)
	c.register("a@b.co")

	resp, err := http.Get(c.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `fakebackend_requests_total{code="200",route="/register_user"} 1`) {
		t.Errorf("metrics missing register counter:\n%s", body)
	}
}

func TestOversizedFormRejected(t *testing.T) {
	c := newTestServer(t)
	token := c.register("user@example.com")

	body := "uuid=" + token + "&mime_type=image%2Fpng&base64_string=" + strings.Repeat("A", media.MaxUploadSize)
	resp, err := http.Post(c.srv.URL+"/recognize_food", "application/x-www-form-urlencoded", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	var msg struct{ Msg string }
	if code := decode(t, resp, &msg); code != http.StatusRequestEntityTooLarge {
		t.Errorf("code = %d, want 413", code)
	}
	if msg.Msg != "Request body too large" {
		t.Errorf("Msg = %q", msg.Msg)
	}
}

func TestOversizedImageRejected(t *testing.T) {
	c := newTestServer(t)
	token := c.register("user@example.com")

	image := make([]byte, media.MaxImageSize+1)
	var msg struct{ Msg string }
	code := c.post("/recognize_food", url.Values{
		"uuid":          {token},
		"base64_string": {base64.StdEncoding.EncodeToString(image)},
		"mime_type":     {"image/png"},
	}, &msg)
	if code != http.StatusRequestEntityTooLarge || msg.Msg != "Image too large" {
		t.Errorf("recognize = %d %q, want 413 Image too large", code, msg.Msg)
	}
}

func TestMalformedForm(t *testing.T) {
	c := newTestServer(t)
	resp, err := http.Post(c.srv.URL+"/login_user", "application/x-www-form-urlencoded", strings.NewReader("email=%zz"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	if code := decode(t, resp, nil); code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", code)
	}
}
