package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quiz-campaign-service/internal/app"
	"quiz-campaign-service/internal/domain"
	"quiz-campaign-service/internal/infra/memory"
)

func one(v int) *int { return &v }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	base := time.Now()
	campaign := domain.Campaign{
		ID:               1,
		Name:             "Launch quiz",
		StartsAt:         base.Add(-time.Hour),
		EndsAt:           base.Add(time.Hour),
		QuestionsPerQuiz: 1,
		PassScore:        1,
		TimeLimit:        300,
		IsActive:         true,
	}
	questions := []domain.Question{
		{
			ID: 1, CampaignID: 1, Type: domain.SingleChoice, IsActive: true, Text: "Q1",
			Options: []domain.Option{
				{ID: 1, QuestionID: 1, Text: "right", Correct: true},
				{ID: 2, QuestionID: 1, Text: "wrong"},
			},
		},
	}

	service := app.NewQuizService(
		memory.NewCampaignStore(campaign),
		memory.NewQuestionBank(map[int64][]domain.Question{1: questions}),
		memory.NewParticipantStore(),
		memory.NewSessionStore(),
		memory.NewGiftStore(domain.Gift{ID: 1, CampaignID: 1, Name: "Voucher", MinScore: 1, MaxQuantity: one(1), CodePrefix: "GFT"}),
	)

	mux := http.NewServeMux()
	NewHandler(service).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := srv.Client().Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s response: %v", path, err)
	}
	return resp, data
}

func TestStartEndpointStripsAnswerKey(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv, "/api/quiz/start",
		`{"campaign_id":1,"participant":{"full_name":"Lan Pham","phone":"0901234567"}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}

	var result struct {
		SessionID string `json:"session_id"`
		TimeLimit int    `json:"time_limit"`
		Questions []struct {
			ID      int64  `json:"id"`
			Text    string `json:"text"`
			Options []struct {
				ID   int64  `json:"id"`
				Text string `json:"text"`
			} `json:"options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.SessionID == "" || result.TimeLimit != 300 || len(result.Questions) != 1 {
		t.Fatalf("unexpected payload: %s", body)
	}

	// the raw JSON must carry no correctness markers anywhere
	lower := strings.ToLower(string(body))
	for _, leak := range []string{"correct", "answer_key", "is_correct"} {
		if strings.Contains(lower, leak) {
			t.Fatalf("answer key leaked in start payload: %s", body)
		}
	}
}

func TestSubmitEndpointFullFlow(t *testing.T) {
	srv := newTestServer(t)

	_, body := postJSON(t, srv, "/api/quiz/start",
		`{"campaign_id":1,"participant":{"full_name":"Lan Pham","phone":"0901234567"}}`)
	var start struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &start); err != nil {
		t.Fatalf("decode start: %v", err)
	}

	resp, body := postJSON(t, srv, "/api/quiz/submit",
		`{"session_id":"`+start.SessionID+`","answers":{"1":[1]}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Score  int  `json:"score"`
		Passed bool `json:"passed"`
		Gift   *struct {
			Name string `json:"name"`
			Code string `json:"code"`
		} `json:"gift"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if result.Score != 1 || !result.Passed {
		t.Fatalf("unexpected result: %s", body)
	}
	if result.Gift == nil || !strings.HasPrefix(result.Gift.Code, "GFT") {
		t.Fatalf("expected a gift with a GFT code: %s", body)
	}

	// the second submit must be rejected without changing anything
	resp, body = postJSON(t, srv, "/api/quiz/submit",
		`{"session_id":"`+start.SessionID+`","answers":{"1":[2]}}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on resubmit, got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "already_completed") {
		t.Fatalf("expected already_completed code: %s", body)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	// seed one participation so the duplicate case can fire
	resp, body := postJSON(t, srv, "/api/quiz/start",
		`{"campaign_id":1,"participant":{"full_name":"Lan Pham","phone":"0901234567"}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed start failed: %d %s", resp.StatusCode, body)
	}

	cases := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed body",
			path:       "/api/quiz/start",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "missing name",
			path:       "/api/quiz/start",
			body:       `{"campaign_id":1,"participant":{"phone":"0901234567"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name:       "invalid phone",
			path:       "/api/quiz/start",
			body:       `{"campaign_id":1,"participant":{"full_name":"Lan Pham","phone":"12ab"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_phone",
		},
		{
			name:       "unknown campaign",
			path:       "/api/quiz/start",
			body:       `{"campaign_id":99,"participant":{"full_name":"Lan Pham","phone":"0907777777"}}`,
			wantStatus: http.StatusNotFound,
			wantCode:   "campaign_not_found",
		},
		{
			name:       "duplicate phone with country code",
			path:       "/api/quiz/start",
			body:       `{"campaign_id":1,"participant":{"full_name":"Lan Pham","phone":"84901234567"}}`,
			wantStatus: http.StatusConflict,
			wantCode:   "duplicate_participation",
		},
		{
			name:       "unknown session",
			path:       "/api/quiz/submit",
			body:       `{"session_id":"nope","answers":{}}`,
			wantStatus: http.StatusNotFound,
			wantCode:   "session_not_found",
		},
		{
			name:       "answers without session",
			path:       "/api/quiz/answers",
			body:       `{"answers":{"1":[1]}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postJSON(t, srv, tc.path, tc.body)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, resp.StatusCode, body)
			}
			var parsed errorResponse
			if err := json.Unmarshal(body, &parsed); err != nil {
				t.Fatalf("decode error body: %v (%s)", err, body)
			}
			if parsed.Error.Code != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, parsed.Error.Code)
			}
		})
	}
}

func TestCheckParticipationEndpoint(t *testing.T) {
	srv := newTestServer(t)

	get := func(query string) (int, map[string]bool) {
		t.Helper()
		resp, err := srv.Client().Get(srv.URL + "/api/quiz/participation?" + query)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		var out map[string]bool
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	if status, out := get("campaign_id=1&phone=0901234567"); status != http.StatusOK || out["participated"] {
		t.Fatalf("expected participated=false, got %d %v", status, out)
	}

	if resp, body := postJSON(t, srv, "/api/quiz/start",
		`{"campaign_id":1,"participant":{"full_name":"Lan Pham","phone":"0901234567"}}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("start failed: %s", body)
	}

	// a different representation of the same number reports participated
	if status, out := get("campaign_id=1&phone=84901234567"); status != http.StatusOK || !out["participated"] {
		t.Fatalf("expected participated=true, got %d %v", status, out)
	}

	if status, _ := get("phone=0901234567"); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing campaign_id, got %d", status)
	}
}
