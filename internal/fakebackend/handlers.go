package fakebackend

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/baobabichh/diabetic-diary-app/internal/auth"
	"github.com/baobabichh/diabetic-diary-app/internal/calculator"
	"github.com/baobabichh/diabetic-diary-app/internal/media"
	"github.com/baobabichh/diabetic-diary-app/internal/models"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeMsg(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"Msg": msg})
}

// userFor resolves the "uuid" parameter to a user id, writing a 401 when it
// is unknown.
func (s *Server) userFor(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := r.FormValue("uuid")
	s.mu.Lock()
	userID, ok := s.tokens[token]
	s.mu.Unlock()
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "Invalid uuid")
		return "", false
	}
	return userID, true
}

func (s *Server) issueToken(userID string) string {
	token := uuid.New().String()
	s.tokens[token] = userID
	return token
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		writeMsg(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrWeakPassword) {
		writeMsg(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}
	if err != nil {
		slog.Error("Registration failed", "email", email, "error", err)
		writeMsg(w, http.StatusInternalServerError, "Internal error")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByEmail[email]; exists {
		writeMsg(w, http.StatusConflict, "User already exists")
		return
	}
	u := &user{id: uuid.New().String(), email: email, passwordHash: hash}
	s.usersByEmail[email] = u

	slog.Info("User registered", "user_id", u.id)
	writeJSON(w, http.StatusOK, map[string]string{"UUID": s.issueToken(u.id)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	s.mu.Lock()
	u, ok := s.usersByEmail[email]
	s.mu.Unlock()
	if !ok || auth.CheckPassword(u.passwordHash, password) != nil {
		writeMsg(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	s.mu.Lock()
	token := s.issueToken(u.id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"UUID": token})
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFor(w, r)
	if !ok {
		return
	}

	mimeType := r.FormValue("mime_type")
	if !strings.HasPrefix(mimeType, "image/") {
		writeMsg(w, http.StatusBadRequest, "Unsupported mime type")
		return
	}
	image, err := base64.StdEncoding.DecodeString(r.FormValue("base64_string"))
	if err != nil || len(image) == 0 {
		writeMsg(w, http.StatusBadRequest, "Invalid image data")
		return
	}
	if len(image) > media.MaxImageSize {
		writeMsg(w, http.StatusRequestEntityTooLarge, "Image too large")
		return
	}

	rec := &recognition{
		id:     uuid.New().String(),
		userID: userID,
		status: models.StatusWaiting,
	}
	rec.result, rec.err = s.recognizer.Recognize(r.Context(), mimeType, image)

	s.mu.Lock()
	s.recognitions[rec.id] = rec
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"FoodRecognitionID": rec.id})
}

// recognitionFor looks up a request owned by userID, writing a 404 when it
// does not exist. Callers must hold s.mu.
func (s *Server) recognitionFor(w http.ResponseWriter, userID, requestID string) (*recognition, bool) {
	rec, ok := s.recognitions[requestID]
	if !ok || rec.userID != userID {
		writeMsg(w, http.StatusNotFound, "Request not found")
		return nil, false
	}
	return rec, true
}

// advance moves a pending request one step closer to its terminal status.
func (s *Server) advance(rec *recognition) {
	if rec.status.IsTerminal() {
		return
	}
	rec.polls++
	switch {
	case rec.polls < s.pollsToFinish:
		rec.status = models.StatusProcessing
	case rec.err != nil:
		rec.status = models.StatusError
	default:
		rec.status = models.StatusDone
	}
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFor(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recognitionFor(w, userID, r.FormValue("request_id"))
	if !ok {
		return
	}
	s.advance(rec)
	writeJSON(w, http.StatusOK, map[string]string{"Status": string(rec.status)})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFor(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recognitionFor(w, userID, r.FormValue("request_id"))
	if !ok {
		return
	}
	if rec.status != models.StatusDone {
		writeMsg(w, http.StatusConflict, "Result not ready")
		return
	}
	writeJSON(w, http.StatusOK, rec.result)
}

func (s *Server) handleEditResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFor(w, r)
	if !ok {
		return
	}

	var edited models.FoodRecognitionResult
	if err := json.Unmarshal([]byte(r.FormValue("new_json")), &edited); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid new_json")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recognitionFor(w, userID, r.FormValue("request_id"))
	if !ok {
		return
	}
	if rec.status != models.StatusDone {
		writeMsg(w, http.StatusConflict, "Result not ready")
		return
	}
	rec.result = &edited
	writeMsg(w, http.StatusOK, "OK")
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFor(w, r)
	if !ok {
		return
	}

	carbsText := r.FormValue("carbohydrates")
	carbs, ok := calculator.ParseNumber(carbsText)
	if !ok || carbs < 0 {
		writeMsg(w, http.StatusBadRequest, "Invalid carbohydrates")
		return
	}

	coefficient := func(key string) (string, bool) {
		v := r.FormValue(key)
		if v == "" {
			return "1.0", true
		}
		n, ok := calculator.ParseNumber(v)
		return v, ok && n >= 0
	}
	timeC, okT := coefficient("time_coefficient")
	sportC, okS := coefficient("sport_coefficient")
	personalC, okP := coefficient("personal_coefficient")
	if !okT || !okS || !okP {
		writeMsg(w, http.StatusBadRequest, "Invalid coefficient")
		return
	}

	insulin := r.FormValue("insulin")
	if insulin == "" {
		dose := calculator.InsulinDose(carbs,
			calculator.CoefficientOrDefault(timeC),
			calculator.CoefficientOrDefault(sportC),
			calculator.CoefficientOrDefault(personalC),
		)
		insulin = calculator.FormatOneDecimal(dose)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recognitionID := models.NullRecognitionID
	if reqID := r.FormValue("request_id"); reqID != "" {
		if _, ok := s.recognitionFor(w, userID, reqID); !ok {
			return
		}
		recognitionID = reqID
	}

	record := models.Record{
		ID:                  uuid.New().String(),
		UserID:              userID,
		FoodRecognitionID:   recognitionID,
		Insulin:             insulin,
		Carbohydrates:       carbsText,
		TimeCoefficient:     timeC,
		SportCoefficient:    sportC,
		PersonalCoefficient: personalC,
		CreateTS:            s.now().UTC().Format(CreateTSLayout),
	}
	s.records[record.ID] = record
	s.recordOrder[userID] = append(s.recordOrder[userID], record.ID)

	writeMsg(w, http.StatusOK, "OK")
}

func (s *Server) handleGetRecordIDs(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFor(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	ids := append([]string{}, s.recordOrder[userID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleGetRecordsByIDs(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFor(w, r)
	if !ok {
		return
	}

	records := []models.Record{}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range strings.Split(r.FormValue("ids"), ",") {
		rec, ok := s.records[strings.TrimSpace(id)]
		if ok && rec.UserID == userID {
			records = append(records, rec)
		}
	}
	writeJSON(w, http.StatusOK, records)
}
