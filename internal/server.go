package internal

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mark3labs/mcp-go/server"
)

// APIError is the JSON error body of the HTTP API
type APIError struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	State  *State `json:"state,omitempty"`
}

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	Transcript string `json:"transcript"`
}

// GenerateRequest is the body of POST /api/generate
type GenerateRequest struct {
	Topic string `json:"topic"`
	Notes string `json:"notes"`
}

// CredentialRequest is the body of PUT /api/credential
type CredentialRequest struct {
	APIKey  string `json:"apiKey"`
	Persist bool   `json:"persist"`
}

// CredentialStatus reports whether a key is configured, never the key itself
type CredentialStatus struct {
	Configured bool `json:"configured"`
}

const (
	eventBuffer  = 16
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local tool: the API is bound to loopback by default
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HTTPServer exposes the workflow as a JSON API with a websocket state feed
type HTTPServer struct {
	app  *App
	echo *echo.Echo
}

// NewHTTPServer builds the echo router; mcp may be nil to skip the /mcp endpoint
func NewHTTPServer(app *App, mcp *MCPServer) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			app.logger.Debug("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	s := &HTTPServer{app: app, echo: e}

	e.GET("/healthz", s.handleHealth)
	api := e.Group("/api")
	api.GET("/state", s.handleState)
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/generate", s.handleGenerate)
	api.POST("/reset", s.handleReset)
	api.GET("/credential", s.handleCredentialStatus)
	api.PUT("/credential", s.handleSetCredential)
	api.DELETE("/credential", s.handleClearCredential)
	api.GET("/events", s.handleEvents)

	if mcp != nil {
		e.Any("/mcp", echo.WrapHandler(server.NewStreamableHTTPServer(mcp.GetServer())))
	}

	return s
}

// Handler returns the router for use in an http.Server or httptest
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

// Serve listens on addr until ctx is done, then shuts down gracefully
func (s *HTTPServer) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.app.logger.Info("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.app.logger.Error("HTTP shutdown: %v", err)
			return srv.Close()
		}
		s.app.logger.Info("HTTP API stopped")
		return nil
	}
}

func (s *HTTPServer) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.app.Controller().State())
}

func (s *HTTPServer) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return problem(c, http.StatusBadRequest, "invalid request body", err, nil)
	}

	// The call outlives the request so a closed tab does not abort it
	ctx := context.WithoutCancel(c.Request().Context())
	if err := s.app.Controller().Analyze(ctx, req.Transcript); err != nil {
		return s.intentError(c, err)
	}
	return c.JSON(http.StatusOK, s.app.Controller().State())
}

func (s *HTTPServer) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return problem(c, http.StatusBadRequest, "invalid request body", err, nil)
	}

	ctx := context.WithoutCancel(c.Request().Context())
	if err := s.app.Controller().Generate(ctx, req.Topic, req.Notes); err != nil {
		return s.intentError(c, err)
	}
	return c.JSON(http.StatusOK, s.app.Controller().State())
}

func (s *HTTPServer) handleReset(c echo.Context) error {
	s.app.Controller().Reset()
	return c.JSON(http.StatusOK, s.app.Controller().State())
}

func (s *HTTPServer) handleCredentialStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, CredentialStatus{Configured: s.app.Controller().HasCredential()})
}

func (s *HTTPServer) handleSetCredential(c echo.Context) error {
	var req CredentialRequest
	if err := c.Bind(&req); err != nil {
		return problem(c, http.StatusBadRequest, "invalid request body", err, nil)
	}
	if err := s.app.SetAPIKey(req.APIKey, req.Persist); err != nil {
		return s.intentError(c, err)
	}
	return c.JSON(http.StatusOK, CredentialStatus{Configured: true})
}

func (s *HTTPServer) handleClearCredential(c echo.Context) error {
	if err := s.app.ClearAPIKey(); err != nil {
		return s.intentError(c, err)
	}
	return c.JSON(http.StatusOK, CredentialStatus{Configured: false})
}

// handleEvents streams the current state and then every change over a websocket
func (s *HTTPServer) handleEvents(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.app.logger.Error("websocket upgrade: %v", err)
		return nil
	}
	defer conn.Close()

	events := make(chan State, eventBuffer)
	unsubscribe := s.app.Controller().Subscribe(func(state State) {
		offerLatest(events, state)
	})
	defer unsubscribe()

	// Reads only detect the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(state State) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(state)
	}

	if err := send(s.app.Controller().State()); err != nil {
		return nil
	}
	for {
		select {
		case state := <-events:
			if err := send(state); err != nil {
				s.app.logger.Debug("websocket write: %v", err)
				return nil
			}
		case <-closed:
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

// offerLatest queues state without blocking. A slow client loses its oldest
// queued snapshot, never the newest one. Listeners are called one at a time.
func offerLatest(events chan State, state State) {
	for {
		select {
		case events <- state:
			return
		default:
		}
		select {
		case <-events:
		default:
		}
	}
}

// intentError maps controller and credential errors to HTTP statuses
func (s *HTTPServer) intentError(c echo.Context, err error) error {
	state := s.app.Controller().State()
	switch {
	case errors.Is(err, ErrBusy):
		return problem(c, http.StatusConflict, "request already in progress", err, &state)
	case errors.Is(err, ErrInvalidStep):
		return problem(c, http.StatusConflict, "action not available in step "+state.Step.String(), err, &state)
	case errors.Is(err, ErrWorkflowReset):
		return problem(c, http.StatusConflict, "workflow was reset", err, &state)
	case errors.Is(err, ErrMissingCredential):
		return problem(c, http.StatusPreconditionFailed, "API key is required", err, &state)
	case errors.Is(err, ErrInvalidInput):
		return problem(c, http.StatusBadRequest, "invalid input", err, &state)
	case IsCallError(err):
		return problem(c, http.StatusBadGateway, state.Error, err, &state)
	default:
		return problem(c, http.StatusInternalServerError, "internal error", err, &state)
	}
}

func problem(c echo.Context, status int, title string, err error, state *State) error {
	body := APIError{Title: title, Status: status, State: state}
	if err != nil {
		body.Detail = err.Error()
	}
	return c.JSON(status, body)
}
