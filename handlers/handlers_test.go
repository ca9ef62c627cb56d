package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"h2oclear/api/auth"
	"h2oclear/api/database"
	"h2oclear/api/middleware"
	"h2oclear/api/models"
	"h2oclear/api/session"
	"h2oclear/api/store"
	"h2oclear/api/telemetry"
	"h2oclear/api/utils"
)

type fakeOperators map[string][]byte

func (f fakeOperators) CreateOperator(_ context.Context, username string, hashedPassword []byte) (*models.Operator, error) {
	if _, ok := f[username]; ok {
		return nil, fmt.Errorf("operator '%s': %w", username, store.ErrOperatorExists)
	}
	f[username] = hashedPassword
	return &models.Operator{ID: len(f), Username: username, HashedPassword: hashedPassword}, nil
}

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	sessions *session.Manager
}

func newTestServer(t *testing.T, archive store.Archive, operators OperatorCreator) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := session.NewManager(session.Options{
		Authenticator: auth.Simulated{},
		Archive:       archive,
		Generator:     telemetry.NewGenerator(nil, nil),
		FeedInterval:  time.Hour,
	}, time.Hour)
	t.Cleanup(sessions.Close)

	r := NewRouter(RouterConfig{
		Sessions:       sessions,
		Tokens:         utils.NewTokenIssuer("test-secret", time.Hour),
		Archive:        archive,
		Operators:      operators,
		OperatorAPIKey: "ops-key",
		FrontendOrigin: "http://localhost:3000",
	})
	return &testServer{t: t, router: r, sessions: sessions}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// newSession creates a session and returns its token.
func (s *testServer) newSession() string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/session", "", nil)
	if w.Code != http.StatusCreated {
		s.t.Fatalf("create session: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string              `json:"token"`
		State models.SessionState `json:"state"`
	}
	decode(s.t, w, &resp)
	if resp.Token == "" {
		s.t.Fatal("no token returned")
	}
	return resp.Token
}

func (s *testServer) login(token string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/session/login", token, models.LoginRequest{Username: "ops", Password: "secret"})
	if w.Code != http.StatusOK {
		s.t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
}

func TestCreateSessionSetsCookie(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	w := s.do(http.MethodPost, "/api/session", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected an http-only session cookie, got %+v", cookie)
	}

	var resp struct {
		State models.SessionState `json:"state"`
	}
	decode(t, w, &resp)
	if resp.State != models.FreshSessionState() {
		t.Fatalf("expected fresh state, got %+v", resp.State)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("cookie session lookup: expected 200, got %d", w.Code)
	}
}

func TestSessionRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	if w := s.do(http.MethodGet, "/api/session", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/session", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", w.Code)
	}

	token := s.newSession()
	if w := s.do(http.MethodDelete, "/api/session", token, nil); w.Code != http.StatusOK {
		t.Fatalf("end session: expected 200, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/session", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("ended session: expected 401, got %d", w.Code)
	}
}

func TestNavigateDashboardLoggedOutRedirects(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	token := s.newSession()

	w := s.do(http.MethodPost, "/api/session/navigate", token, models.NavigateRequest{Page: models.PageDashboard})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out session.Outcome
	decode(t, w, &out)
	if out.State.CurrentPage != models.PageLogin || !out.Redirected {
		t.Fatalf("expected redirect to login, got %+v", out)
	}

	w = s.do(http.MethodGet, "/api/dashboard/detections", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("dashboard data while logged out: expected 401, got %d", w.Code)
	}
	var resp map[string]string
	decode(t, w, &resp)
	if resp["error"] != session.MsgLoginRequired || resp["redirect"] != "login" {
		t.Fatalf("unexpected body %v", resp)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	token := s.newSession()

	w := s.do(http.MethodPost, "/api/session/login", token, models.LoginRequest{Username: "ops"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing password: expected 400, got %d", w.Code)
	}
	var errResp map[string]string
	decode(t, w, &errResp)
	if errResp["error"] != session.MsgFillAllFields {
		t.Fatalf("unexpected error %q", errResp["error"])
	}

	w = s.do(http.MethodPost, "/api/session/login", token, models.LoginRequest{Username: "ops", Password: "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out session.Outcome
	decode(t, w, &out)
	if out.State.CurrentPage != models.PageDashboard || !out.State.IsLoggedIn || !out.InitDashboard {
		t.Fatalf("expected dashboard after login, got %+v", out)
	}

	w = s.do(http.MethodGet, "/api/session/view", token, nil)
	var rendered struct {
		Page   models.Page        `json:"page"`
		Rows   []models.Detection `json:"rows"`
		Series []int              `json:"series"`
	}
	decode(t, w, &rendered)
	if rendered.Page != models.PageDashboard || len(rendered.Rows) != 5 || len(rendered.Series) != telemetry.SeriesLength {
		t.Fatalf("dashboard not rendered: %+v", rendered)
	}
}

func TestLogoutHidesDashboardFromView(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	token := s.newSession()
	s.login(token)

	if w := s.do(http.MethodPost, "/api/session/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}
	s.do(http.MethodPost, "/api/session/navigate", token, models.NavigateRequest{Page: models.PageDashboard})

	if w := s.do(http.MethodGet, "/api/dashboard/detections", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("dashboard data after logout: expected 401, got %d", w.Code)
	}

	w := s.do(http.MethodGet, "/api/session/view", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("view: expected 200, got %d", w.Code)
	}
	var rendered struct {
		Page   models.Page        `json:"page"`
		Rows   []models.Detection `json:"rows"`
		Series []int              `json:"series"`
	}
	decode(t, w, &rendered)
	if rendered.Page != models.PageLogin {
		t.Fatalf("expected login page, got %s", rendered.Page)
	}
	if len(rendered.Rows) != 0 || len(rendered.Series) != 0 {
		t.Fatalf("view leaked dashboard content: rows=%d series=%v", len(rendered.Rows), rendered.Series)
	}
}

func TestDetectionsFilter(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	token := s.newSession()
	s.login(token)

	var resp struct {
		Rows        []models.Detection `json:"rows"`
		Count       int                `json:"count"`
		Placeholder string             `json:"placeholder"`
	}

	w := s.do(http.MethodGet, "/api/dashboard/detections", token, nil)
	decode(t, w, &resp)
	if resp.Count != 5 || resp.Placeholder != "" {
		t.Fatalf("unfiltered: unexpected %+v", resp)
	}

	resp.Rows, resp.Count, resp.Placeholder = nil, 0, ""
	w = s.do(http.MethodGet, "/api/dashboard/detections?location=Pacific+Ocean", token, nil)
	decode(t, w, &resp)
	if resp.Count != 1 || resp.Rows[0].Location != "Pacific Ocean" {
		t.Fatalf("location filter: unexpected %+v", resp)
	}

	resp.Rows, resp.Count, resp.Placeholder = nil, 0, ""
	w = s.do(http.MethodGet, "/api/dashboard/detections?location=Lake+Tahoe", token, nil)
	decode(t, w, &resp)
	if resp.Count != 0 || resp.Placeholder != telemetry.NoDataMessage {
		t.Fatalf("empty filter: unexpected %+v", resp)
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	token := s.newSession()
	s.login(token)

	w := s.do(http.MethodGet, "/api/dashboard/export", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "microplastic-detections.json") {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}
	var rows []models.Detection
	decode(t, w, &rows)
	if len(rows) != 5 {
		t.Fatalf("expected 5 exported rows, got %d", len(rows))
	}
}

func TestKeysAndLogout(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	token := s.newSession()

	var resp struct {
		Handled bool            `json:"handled"`
		Outcome session.Outcome `json:"outcome"`
	}
	w := s.do(http.MethodPost, "/api/session/keys", token, models.KeyRequest{Key: "3", Ctrl: true})
	decode(t, w, &resp)
	if !resp.Handled || resp.Outcome.State.CurrentPage != models.PageLogin {
		t.Fatalf("ctrl+3: unexpected %+v", resp)
	}

	resp = struct {
		Handled bool            `json:"handled"`
		Outcome session.Outcome `json:"outcome"`
	}{}
	w = s.do(http.MethodPost, "/api/session/keys", token, models.KeyRequest{Key: "Escape"})
	decode(t, w, &resp)
	if resp.Handled {
		t.Fatal("escape while logged out should do nothing")
	}

	s.login(token)
	if w := s.do(http.MethodPost, "/api/device/connect", token, nil); w.Code != http.StatusOK {
		t.Fatalf("connect: expected 200, got %d", w.Code)
	}

	w = s.do(http.MethodPost, "/api/session/keys", token, models.KeyRequest{Key: "Escape"})
	decode(t, w, &resp)
	if !resp.Handled || resp.Outcome.State != models.FreshSessionState() {
		t.Fatalf("escape while logged in: unexpected %+v", resp)
	}

	w = s.do(http.MethodGet, "/api/session/view", token, nil)
	var rendered struct {
		Device string `json:"device"`
	}
	decode(t, w, &rendered)
	if rendered.Device != "Not Connected" {
		t.Fatalf("device still shown as %q after logout", rendered.Device)
	}
}

func TestDeviceConnect(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	token := s.newSession()

	w := s.do(http.MethodPost, "/api/device/connect", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var state models.SessionState
	decode(t, w, &state)
	if !state.DeviceConnected {
		t.Fatal("device not connected")
	}

	w = s.do(http.MethodPost, "/api/device/disconnect", token, nil)
	state = models.SessionState{}
	decode(t, w, &state)
	if state.DeviceConnected {
		t.Fatal("device still connected")
	}
}

func TestDetectionCountsWithoutArchive(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	token := s.newSession()
	s.login(token)

	w := s.do(http.MethodGet, "/api/dashboard/stats/detection-counts?interval=Day", token, nil)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}
}

func TestDetectionCountsWithSQLite(t *testing.T) {
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	archive, err := store.NewSQLiteArchive(db)
	if err != nil {
		t.Fatalf("NewSQLiteArchive: %v", err)
	}
	t.Cleanup(func() { archive.Close() })

	now := time.Now().UTC()
	if err := archive.RecordDetections(context.Background(), "s1", now.Add(-time.Hour), []models.Detection{
		{Location: "Baltic Sea", Date: now.Format("2006-01-02"), Size: 40, Type: models.MaterialPET, Count: 10},
		{Location: "Baltic Sea", Date: now.Format("2006-01-02"), Size: 60, Type: models.MaterialPE, Count: 5},
	}); err != nil {
		t.Fatalf("RecordDetections: %v", err)
	}

	s := newTestServer(t, archive, nil)
	token := s.newSession()
	s.login(token)

	cases := []struct {
		query string
		code  int
	}{
		{"", http.StatusBadRequest},
		{"?interval=Fortnight", http.StatusBadRequest},
		{"?interval=Day&type=Glass", http.StatusBadRequest},
		{"?interval=Day&start=yesterday", http.StatusBadRequest},
		{"?interval=Day", http.StatusOK},
	}
	for _, tc := range cases {
		w := s.do(http.MethodGet, "/api/dashboard/stats/detection-counts"+tc.query, token, nil)
		if w.Code != tc.code {
			t.Fatalf("%q: expected %d, got %d: %s", tc.query, tc.code, w.Code, w.Body.String())
		}
	}

	w := s.do(http.MethodGet, "/api/dashboard/stats/detection-counts?interval=Day&type=PET", token, nil)
	var counts []models.DetectionCountByTime
	decode(t, w, &counts)
	if len(counts) != 1 || counts[0].Particles != 10 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestOperatorSignup(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, fakeOperators{})
	body := models.OperatorSignupRequest{Username: "ops", Password: "long-enough"}

	w := s.do(http.MethodPost, "/api/operators", "", body)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: expected 401, got %d", w.Code)
	}

	signup := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/operators", strings.NewReader(`{"username":"ops","password":"long-enough"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-KEY", "ops-key")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w.Code
	}
	if code := signup(); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if code := signup(); code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", code)
	}
}

func TestOperatorRouteAbsentWithoutStore(t *testing.T) {
	s := newTestServer(t, store.NopArchive{}, nil)
	if w := s.do(http.MethodPost, "/api/operators", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
