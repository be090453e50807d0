// Package webui provides the admin dashboard and the public LINE
// webhook endpoint. It uses Echo v5 for HTTP routing, LINE Login for
// authentication, and JWT session tokens for the dashboard API.
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v5"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"samantha/pkg/config"
	"samantha/pkg/linebot"
	"samantha/pkg/logger"
	"samantha/pkg/storage"
	"samantha/pkg/ttlcache"
	"samantha/pkg/usage"
	"samantha/pkg/webui/frontend"
)

const (
	lineAuthorizeURL = "https://access.line.me/oauth2/v2.1/authorize"
	lineTokenURL     = "https://api.line.me/oauth2/v2.1/token"
	lineIssuer       = "https://access.line.me"

	sessionCookie = "session"

	// loginStateTTL bounds how long a pending OAuth state token stays
	// redeemable.
	loginStateTTL = 10 * time.Minute

	// analyticsWindowDays is the trailing window for the activity chart
	// and the command frequency ranking.
	analyticsWindowDays = 60

	topCommandCount = 5

	callLogTimeLayout = "Mon, 02-01-2006 15:04:05"
)

// Server is the dashboard HTTP server. It also hosts the LINE webhook
// so the bot and the dashboard share one listener.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	config     *config.Config
	logger     *logger.Logger
	store      *storage.Store
	tracker    *usage.Tracker
	channel    *linebot.Channel
	oauth      *oauth2.Config
	states     *ttlcache.Cache[string, struct{}]
	loc        *time.Location

	// now is overridable in tests.
	now func() time.Time
}

// NewServer creates the dashboard server and registers its routes.
func NewServer(
	cfg *config.Config,
	log *logger.Logger,
	store *storage.Store,
	tracker *usage.Tracker,
	channel *linebot.Channel,
	loc *time.Location,
) *Server {
	s := &Server{
		config:  cfg,
		logger:  log,
		store:   store,
		tracker: tracker,
		channel: channel,
		oauth: &oauth2.Config{
			ClientID:     cfg.Line.LoginChannelID,
			ClientSecret: cfg.Line.LoginChannelSecret,
			RedirectURL:  cfg.Line.LoginRedirectURL,
			Scopes:       []string{"profile", "openid"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  lineAuthorizeURL,
				TokenURL: lineTokenURL,
			},
		},
		states: ttlcache.New[string, struct{}](loginStateTTL),
		loc:    loc,
		now:    time.Now,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	// Public routes
	e.POST("/callback", s.handleWebhook)
	e.GET("/login", s.handleLogin)
	e.GET("/login/callback", s.handleLoginCallback)

	// Protected API routes
	api := e.Group("/api")
	api.Use(echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:Authorization:Bearer ,cookie:" + sessionCookie,
		KeyFunc: func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(s.config.Dashboard.JWTSecret), nil
		},
	}))

	api.GET("/analytics", s.handleAnalytics)

	api.GET("/commands", s.handleListCommands)
	api.POST("/commands", s.handleCreateCommand)
	api.PUT("/commands/:name", s.handleUpdateCommand)
	api.DELETE("/commands/:name", s.handleDeleteCommand)

	api.GET("/users", s.handleListUsers)
	api.POST("/users/:name/toggle", s.handleToggleUser)

	// Serve embedded frontend (SPA fallback)
	distFS, err := fs.Sub(frontend.Dist, "dist")
	if err == nil {
		fileServer := http.FileServer(http.FS(distFS))
		e.GET("/*", echo.WrapHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Try to serve static file first, fallback to index.html for SPA routing
			f, err := distFS.Open(r.URL.Path[1:]) // strip leading /
			if err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
			fileServer.ServeHTTP(w, r)
		})))
	}

	s.echo = e
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("Dashboard server starting", zap.String("addr", addr))

	// Use http.Server directly so we can control shutdown from fx lifecycle
	// (Echo v5's e.Start() manages its own signal handling which conflicts with fx).
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.echo,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Dashboard server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Dashboard server stopping")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// --- Webhook ---

func (s *Server) handleWebhook(c *echo.Context) error {
	if err := s.channel.HandleRequest(c.Request()); err != nil {
		return c.String(http.StatusBadRequest, "bad request")
	}
	return c.String(http.StatusOK, "OK")
}

// --- LINE Login ---

func (s *Server) handleLogin(c *echo.Context) error {
	state := uuid.NewString()
	s.states.Set(state, struct{}{})

	url := s.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("bot_prompt", "normal"))
	return c.Redirect(http.StatusFound, url)
}

func (s *Server) handleLoginCallback(c *echo.Context) error {
	if errCode := c.QueryParam("error"); errCode != "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": errCode})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "code is required"})
	}

	// State tokens are single use.
	state := c.QueryParam("state")
	if _, ok := s.states.Get(state); !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid state"})
	}
	s.states.Delete(state)

	tok, err := s.oauth.Exchange(c.Request().Context(), code)
	if err != nil {
		s.logger.Warn("LINE Login token exchange failed", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "token exchange failed"})
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing id_token"})
	}
	claims, err := s.verifyIDToken(rawIDToken)
	if err != nil {
		s.logger.Warn("LINE Login id_token rejected", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid id_token"})
	}

	sub, _ := claims["sub"].(string)
	follower, err := s.store.GetFollower(c.Request().Context(), sub)
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "not a registered user"})
	}
	if err != nil {
		s.logger.Error("Failed to load follower during login", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load user"})
	}
	if follower.Type < storage.TypeStaff {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "staff clearance required"})
	}

	token, err := s.generateToken(follower)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "token generation failed"})
	}

	http.SetCookie(c.Response(), &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  s.now().Add(s.sessionLifetime()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, "/")
}

// verifyIDToken checks the id_token signature against the login channel
// secret along with its audience and issuer.
func (s *Server) verifyIDToken(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(s.config.Line.LoginChannelSecret), nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(s.config.Line.LoginChannelID),
		jwt.WithIssuer(lineIssuer),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Server) sessionLifetime() time.Duration {
	hours := s.config.Dashboard.SessionHours
	if hours <= 0 {
		hours = 12
	}
	return time.Duration(hours) * time.Hour
}

func (s *Server) generateToken(f *storage.Follower) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  f.UserID,
		"name": f.DisplayName,
		"iat":  now.Unix(),
		"exp":  now.Add(s.sessionLifetime()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Dashboard.JWTSecret))
}

// --- Analytics ---

type callLogEntry struct {
	Timestamp   string `json:"timestamp"`
	DisplayName string `json:"display_name"`
	Command     string `json:"command"`
}

func (s *Server) handleAnalytics(c *echo.Context) error {
	ctx := c.Request().Context()

	daily, err := s.tracker.DailyActivityReport(ctx, analyticsWindowDays)
	if err != nil {
		s.logger.Error("Failed to build daily activity report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load analytics"})
	}

	freq, err := s.tracker.FrequencyReport(ctx, analyticsWindowDays)
	if err != nil {
		s.logger.Error("Failed to build frequency report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load analytics"})
	}
	if len(freq) > topCommandCount {
		freq = freq[:topCommandCount]
	}

	log, err := s.store.CallLog(ctx)
	if err != nil {
		s.logger.Error("Failed to load call log", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load analytics"})
	}
	calls := make([]callLogEntry, len(log))
	for i, e := range log {
		calls[i] = callLogEntry{
			Timestamp:   e.Timestamp.In(s.loc).Format(callLogTimeLayout),
			DisplayName: e.DisplayName,
			Command:     e.Command,
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"daily":        daily,
		"top_commands": freq,
		"calls":        calls,
	})
}

// --- Command CRUD ---

type commandRequest struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Clearance   int      `json:"clearance"`
	Content     string   `json:"content"`
	Ratio       string   `json:"ratio"`
	URL         string   `json:"url"`
	URLs        []string `json:"urls"`
	AltText     string   `json:"alt_text"`
}

type commandResponse struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Clearance   int      `json:"clearance"`
	Content     string   `json:"content,omitempty"`
	Ratio       string   `json:"ratio,omitempty"`
	URLs        []string `json:"urls,omitempty"`
	AltText     string   `json:"alt_text,omitempty"`
}

func (s *Server) commandResponseOf(cmd storage.Command) commandResponse {
	resp := commandResponse{
		Name:        cmd.Name,
		Type:        cmd.Kind.String(),
		Description: cmd.Description,
		Clearance:   cmd.Clearance,
	}
	switch cmd.Kind {
	case storage.KindImage, storage.KindImageCarousel:
		ratio, urls, altText, err := cmd.ImagePayload()
		if err != nil {
			s.logger.Warn("Failed to decode image command content",
				zap.String("command", cmd.Name),
				zap.Error(err))
			resp.Content = cmd.Content
			return resp
		}
		resp.Ratio = ratio
		resp.URLs = urls
		resp.AltText = altText
	default:
		resp.Content = cmd.Content
	}
	return resp
}

func (s *Server) handleListCommands(c *echo.Context) error {
	cmds, err := s.store.ListCommands(c.Request().Context())
	if err != nil {
		s.logger.Error("Failed to list commands", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load commands"})
	}

	out := make([]commandResponse, len(cmds))
	for i, cmd := range cmds {
		out[i] = s.commandResponseOf(cmd)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateCommand(c *echo.Context) error {
	var req commandRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}
	kind := storage.ParseKind(req.Type)
	if kind == storage.KindInvalid {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown command type"})
	}
	content, err := buildContent(req, kind)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if _, err := s.store.GetCommand(c.Request().Context(), name); err == nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "command already exists"})
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("Failed to check existing command", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save command"})
	}

	cmd := &storage.Command{
		Name:        name,
		Kind:        kind,
		Content:     content,
		Clearance:   req.Clearance,
		Description: req.Description,
	}
	if err := s.store.CreateCommand(c.Request().Context(), cmd); err != nil {
		s.logger.Error("Failed to create command", zap.String("command", name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save command"})
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "created", "name": name})
}

func (s *Server) handleUpdateCommand(c *echo.Context) error {
	name := strings.ToLower(strings.TrimSpace(c.Param("name")))

	var req commandRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	kind := storage.ParseKind(req.Type)
	if kind == storage.KindInvalid {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown command type"})
	}
	content, err := buildContent(req, kind)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	cmd := &storage.Command{
		Name:        name,
		Kind:        kind,
		Content:     content,
		Clearance:   req.Clearance,
		Description: req.Description,
	}
	if err := s.store.UpdateCommand(c.Request().Context(), cmd); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "command not found"})
		}
		s.logger.Error("Failed to update command", zap.String("command", name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save command"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "updated", "name": name})
}

func (s *Server) handleDeleteCommand(c *echo.Context) error {
	name := c.Param("name")
	if err := s.store.DeleteCommand(c.Request().Context(), name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "command not found"})
		}
		s.logger.Error("Failed to delete command", zap.String("command", name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete command"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// buildContent assembles the stored content column. Image payloads are
// packed into the same JSON shape the dispatcher decodes.
func buildContent(req commandRequest, kind storage.Kind) (string, error) {
	switch kind {
	case storage.KindText:
		if req.Content == "" {
			return "", errors.New("content is required")
		}
		return req.Content, nil
	case storage.KindImage:
		if strings.TrimSpace(req.URL) == "" {
			return "", errors.New("url is required")
		}
		return encodeImageContent(req.Ratio, strings.TrimSpace(req.URL), req.AltText)
	case storage.KindImageCarousel:
		urls := req.URLs
		if len(urls) == 0 {
			urls = splitLines(req.URL)
		}
		if len(urls) == 0 {
			return "", errors.New("urls are required")
		}
		return encodeImageContent(req.Ratio, urls, req.AltText)
	default:
		return req.Content, nil
	}
}

func encodeImageContent(ratio string, url interface{}, altText string) (string, error) {
	raw, err := json.Marshal(url)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(storage.ImageContent{Ratio: ratio, URL: raw, AltText: altText})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// splitLines mirrors a textarea submission: one URL per line, blank
// lines skipped.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// --- Users ---

type userResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	PictureURL  string `json:"picture_url"`
	Clearance   int    `json:"clearance"`
}

func (s *Server) handleListUsers(c *echo.Context) error {
	followers, err := s.store.ListFollowers(c.Request().Context())
	if err != nil {
		s.logger.Error("Failed to list followers", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load users"})
	}

	out := make([]userResponse, len(followers))
	for i, f := range followers {
		out[i] = userResponse{
			UserID:      f.UserID,
			DisplayName: f.DisplayName,
			PictureURL:  f.PictureURL,
			Clearance:   f.Type,
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleToggleUser(c *echo.Context) error {
	name := c.Param("name")
	next, err := s.store.ToggleFollowerClearance(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		}
		s.logger.Error("Failed to toggle user clearance", zap.String("user", name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to toggle clearance"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"display_name": name,
		"clearance":    next,
	})
}
