package webui

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v5"

	"samantha/pkg/config"
	"samantha/pkg/linebot"
	"samantha/pkg/logger"
	"samantha/pkg/storage"
	"samantha/pkg/usage"
)

func newTestServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()

	log, err := logger.New(logger.DefaultConfig())
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig()
	cfg.Dashboard.JWTSecret = "dashboard-secret"
	cfg.Line.ChannelSecret = "webhook-secret"
	cfg.Line.ChannelAccessToken = "access-token"
	cfg.Line.LoginChannelID = "1234567890"
	cfg.Line.LoginChannelSecret = "login-secret"
	cfg.Line.LoginRedirectURL = "https://samantha.example/login/callback"

	tracker := usage.New(store, log, time.UTC)
	channel, err := linebot.New(cfg.Line, nil, nil, store, log)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	return NewServer(cfg, log, store, tracker, channel, time.UTC), store
}

func seedStaff(t *testing.T, store *storage.Store, userID, name string, clearance int) {
	t.Helper()
	err := store.AddFollower(t.Context(), &storage.Follower{
		UserID:      userID,
		DisplayName: name,
		Type:        clearance,
	})
	if err != nil {
		t.Fatalf("seed follower %s: %v", userID, err)
	}
}

func sessionToken(t *testing.T, s *Server) string {
	t.Helper()
	token, err := s.generateToken(&storage.Follower{UserID: "U-admin", DisplayName: "Admin"})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func apiRequest(s *Server, token, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

// --- LINE Login ---

func TestHandleLogin_RedirectsToAuthorize(t *testing.T) {
	s, _ := newTestServer(t)

	rec := apiRequest(s, "", http.MethodGet, "/login", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	if loc.Host != "access.line.me" {
		t.Fatalf("expected redirect to access.line.me, got %s", loc.Host)
	}
	q := loc.Query()
	if q.Get("client_id") != "1234567890" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("scope") != "profile openid" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
	if q.Get("bot_prompt") != "normal" {
		t.Errorf("bot_prompt = %q", q.Get("bot_prompt"))
	}
	state := q.Get("state")
	if state == "" {
		t.Fatal("expected a state parameter")
	}
	if _, ok := s.states.Get(state); !ok {
		t.Error("state token was not stored")
	}
}

func TestHandleLoginCallback_RejectsUnknownState(t *testing.T) {
	s, _ := newTestServer(t)

	rec := apiRequest(s, "", http.MethodGet, "/login/callback?code=abc&state=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// signIDToken builds an id_token the way LINE Login issues them for
// channels using the client secret as the HS256 key.
func signIDToken(t *testing.T, secret, audience, sub, name string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":  "https://access.line.me",
		"aud":  audience,
		"sub":  sub,
		"name": name,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign id_token: %v", err)
	}
	return raw
}

func newTokenEndpoint(t *testing.T, idToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "at-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func loginCallback(s *Server, state string) *httptest.ResponseRecorder {
	s.states.Set(state, struct{}{})
	return apiRequest(s, "", http.MethodGet, "/login/callback?code=abc&state="+state, "")
}

func TestHandleLoginCallback_IssuesSessionForStaff(t *testing.T) {
	s, store := newTestServer(t)
	seedStaff(t, store, "U-staff", "Anisa", storage.TypeStaff)

	idToken := signIDToken(t, "login-secret", "1234567890", "U-staff", "Anisa")
	s.oauth.Endpoint.TokenURL = newTokenEndpoint(t, idToken).URL

	rec := loginCallback(s, "st-1")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}

	var session *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionCookie {
			session = ck
		}
	}
	if session == nil {
		t.Fatal("expected a session cookie")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(session.Value, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("dashboard-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse session token: %v", err)
	}
	if claims["sub"] != "U-staff" {
		t.Errorf("session sub = %v", claims["sub"])
	}

	// State tokens are single use.
	rec = apiRequest(s, "", http.MethodGet, "/login/callback?code=abc&state=st-1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected reused state to be rejected, got %d", rec.Code)
	}
}

func TestHandleLoginCallback_RejectsCrewClearance(t *testing.T) {
	s, store := newTestServer(t)
	seedStaff(t, store, "U-crew", "Budi", storage.TypeCrew)

	idToken := signIDToken(t, "login-secret", "1234567890", "U-crew", "Budi")
	s.oauth.Endpoint.TokenURL = newTokenEndpoint(t, idToken).URL

	if rec := loginCallback(s, "st-2"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleLoginCallback_RejectsUnknownUser(t *testing.T) {
	s, _ := newTestServer(t)

	idToken := signIDToken(t, "login-secret", "1234567890", "U-stranger", "X")
	s.oauth.Endpoint.TokenURL = newTokenEndpoint(t, idToken).URL

	if rec := loginCallback(s, "st-3"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleLoginCallback_RejectsForgedIDToken(t *testing.T) {
	s, store := newTestServer(t)
	seedStaff(t, store, "U-staff", "Anisa", storage.TypeStaff)

	idToken := signIDToken(t, "wrong-secret", "1234567890", "U-staff", "Anisa")
	s.oauth.Endpoint.TokenURL = newTokenEndpoint(t, idToken).URL

	if rec := loginCallback(s, "st-4"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// --- Session guard ---

func TestAPI_RejectsForgedSessionToken(t *testing.T) {
	s, _ := newTestServer(t)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "U-x",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}

	rec := apiRequest(s, forged, http.MethodGet, "/api/users", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAPI_AcceptsSessionCookie(t *testing.T) {
	s, store := newTestServer(t)
	seedStaff(t, store, "U-1", "Anisa", storage.TypeStaff)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionToken(t, s)})
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

// --- Analytics ---

func TestHandleAnalytics(t *testing.T) {
	s, store := newTestServer(t)
	seedStaff(t, store, "U-1", "Anisa", storage.TypeStaff)

	now := time.Now().UTC()
	for i, cmd := range []string{"agenda", "agenda", "database"} {
		err := store.RecordCall(t.Context(), storage.UsageRecord{
			Timestamp: now.Add(time.Duration(i) * time.Minute),
			UserID:    "U-1",
			Command:   cmd,
		})
		if err != nil {
			t.Fatalf("record call: %v", err)
		}
	}

	rec := apiRequest(s, sessionToken(t, s), http.MethodGet, "/api/analytics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Daily []struct {
			Date  string `json:"date"`
			Count int    `json:"count"`
		} `json:"daily"`
		TopCommands []struct {
			Command string `json:"command"`
			Count   int    `json:"count"`
		} `json:"top_commands"`
		Calls []callLogEntry `json:"calls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal analytics: %v", err)
	}

	if len(payload.Daily) != analyticsWindowDays {
		t.Errorf("expected %d daily buckets, got %d", analyticsWindowDays, len(payload.Daily))
	}
	total := 0
	for _, d := range payload.Daily {
		total += d.Count
	}
	if total != 3 {
		t.Errorf("expected 3 calls across the window, got %d", total)
	}

	if len(payload.TopCommands) != 2 {
		t.Fatalf("expected 2 ranked commands, got %d", len(payload.TopCommands))
	}
	if payload.TopCommands[0].Command != "agenda" || payload.TopCommands[0].Count != 2 {
		t.Errorf("unexpected top command: %+v", payload.TopCommands[0])
	}

	if len(payload.Calls) != 3 {
		t.Fatalf("expected 3 call log entries, got %d", len(payload.Calls))
	}
	// Newest first.
	if payload.Calls[0].Command != "database" {
		t.Errorf("expected newest call first, got %+v", payload.Calls[0])
	}
	if payload.Calls[0].DisplayName != "Anisa" {
		t.Errorf("expected joined display name, got %q", payload.Calls[0].DisplayName)
	}
}

// --- Command CRUD ---

func TestCommandCRUD(t *testing.T) {
	s, store := newTestServer(t)
	token := sessionToken(t, s)

	rec := apiRequest(s, token, http.MethodPost, "/api/commands",
		`{"name":"Database","type":"text","description":"the drive","clearance":1,"content":"https://drive.example/x"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Names are lowercased on write.
	cmd, err := store.GetCommand(t.Context(), "database")
	if err != nil {
		t.Fatalf("get created command: %v", err)
	}
	if cmd.Kind != storage.KindText || cmd.Content != "https://drive.example/x" {
		t.Errorf("unexpected stored command: %+v", cmd)
	}

	rec = apiRequest(s, token, http.MethodPost, "/api/commands",
		`{"name":"database","type":"text","content":"dup"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create: expected 409, got %d", rec.Code)
	}

	rec = apiRequest(s, token, http.MethodPut, "/api/commands/database",
		`{"type":"text","description":"updated","clearance":2,"content":"https://drive.example/y"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cmd, err = store.GetCommand(t.Context(), "database")
	if err != nil {
		t.Fatalf("get updated command: %v", err)
	}
	if cmd.Content != "https://drive.example/y" || cmd.Clearance != 2 {
		t.Errorf("update not applied: %+v", cmd)
	}

	rec = apiRequest(s, token, http.MethodGet, "/api/commands", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var listed []commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("unmarshal command list: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "database" || listed[0].Description != "updated" {
		t.Errorf("unexpected command list: %+v", listed)
	}

	rec = apiRequest(s, token, http.MethodDelete, "/api/commands/database", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if _, err := store.GetCommand(t.Context(), "database"); err == nil {
		t.Error("expected command to be gone after delete")
	}

	rec = apiRequest(s, token, http.MethodDelete, "/api/commands/database", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing: expected 404, got %d", rec.Code)
	}
}

func TestCreateCommand_AssemblesImagePayloads(t *testing.T) {
	s, store := newTestServer(t)
	token := sessionToken(t, s)

	rec := apiRequest(s, token, http.MethodPost, "/api/commands",
		`{"name":"peta","type":"image","ratio":"16:9","url":"https://img.example/peta.png","alt_text":"Peta sekre"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create image: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	cmd, err := store.GetCommand(t.Context(), "peta")
	if err != nil {
		t.Fatalf("get image command: %v", err)
	}
	ratio, urls, altText, err := cmd.ImagePayload()
	if err != nil {
		t.Fatalf("decode image payload: %v", err)
	}
	if ratio != "16:9" || altText != "Peta sekre" || len(urls) != 1 || urls[0] != "https://img.example/peta.png" {
		t.Errorf("unexpected image payload: %q %v %q", ratio, urls, altText)
	}

	rec = apiRequest(s, token, http.MethodPost, "/api/commands",
		`{"name":"memes","type":"image carousel","ratio":"1:1","urls":["https://img.example/1.png","https://img.example/2.png"],"alt_text":"Memes"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create carousel: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	cmd, err = store.GetCommand(t.Context(), "memes")
	if err != nil {
		t.Fatalf("get carousel command: %v", err)
	}
	if _, urls, _, err = cmd.ImagePayload(); err != nil || len(urls) != 2 {
		t.Errorf("unexpected carousel payload: %v %v", urls, err)
	}

	rec = apiRequest(s, token, http.MethodPost, "/api/commands",
		`{"name":"broken","type":"image"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("image without url: expected 400, got %d", rec.Code)
	}

	rec = apiRequest(s, token, http.MethodPost, "/api/commands",
		`{"name":"weird","type":"hologram","content":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown type: expected 400, got %d", rec.Code)
	}
}

// --- Users ---

func TestUserEndpoints(t *testing.T) {
	s, store := newTestServer(t)
	token := sessionToken(t, s)
	seedStaff(t, store, "U-1", "Anisa", storage.TypeStaff)
	seedStaff(t, store, "U-2", "Budi", storage.TypeCrew)

	rec := apiRequest(s, token, http.MethodGet, "/api/users", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list users: expected 200, got %d", rec.Code)
	}
	var users []userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("unmarshal users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	rec = apiRequest(s, token, http.MethodPost, "/api/users/Budi/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var toggled struct {
		Clearance int `json:"clearance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &toggled); err != nil {
		t.Fatalf("unmarshal toggle: %v", err)
	}
	if toggled.Clearance != storage.TypeStaff {
		t.Errorf("expected clearance 2 after toggle, got %d", toggled.Clearance)
	}

	rec = apiRequest(s, token, http.MethodPost, "/api/users/Nobody/toggle", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("toggle missing user: expected 404, got %d", rec.Code)
	}
}

// --- Webhook ---

func webhookSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookRoute(t *testing.T) {
	s, _ := newTestServer(t)
	body := `{"destination":"U-dest","events":[]}`

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("x-line-signature", webhookSignature("webhook-secret", []byte(body)))
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("x-line-signature", webhookSignature("wrong-secret", []byte(body)))
	rec = httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad signature, got %d", rec.Code)
	}
}
