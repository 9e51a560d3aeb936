package httpapp

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/threatdesk/threatdesk/internal/http/handlers"
	"github.com/threatdesk/threatdesk/internal/logging"
)

const maxRequestIDLength = 128

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(h *handlers.Handlers) *EchoServer {
	e := echo.New()
	e.Logger = slog.Default()
	es := &EchoServer{h: h, e: e}
	e.HTTPErrorHandler = es.httpErrorHandler
	e.Use(middleware.Recover())
	e.Use(requestIDMiddleware)
	es.registerRoutes()
	return es
}

func (es *EchoServer) registerRoutes() {
	es.e.GET("/healthz", es.h.HandleHealthz)

	api := es.e.Group("/api")
	api.GET("/findings", es.h.HandleFindings)
	api.GET("/findings/facets", es.h.HandleFindingFacets)
	api.GET("/findings/:source/:id", es.h.HandleFindingShow)
	api.POST("/findings/:source/:id/status", es.h.HandleFindingStatus)
	api.POST("/findings/:source/:id/remediation", es.h.HandleGenerateRemediation)
	api.GET("/findings/:source/:id/remediation/:action", es.h.HandleDownloadRemediation)
	api.DELETE("/artifacts", es.h.HandleClearArtifacts)
	api.POST("/imports", es.h.HandleImport)
	api.DELETE("/imports", es.h.HandleClearImports)
	api.POST("/refresh", es.h.HandleRefresh)
	api.GET("/sources", es.h.HandleSources)
	api.GET("/catalog", es.h.HandleCatalog)
}

// Handler returns the root handler. View state lives in the session, so the
// session manager wraps the router when configured.
func (es *EchoServer) Handler() http.Handler {
	if es.h.Sessions != nil {
		return es.h.Sessions.LoadAndSave(es.e)
	}
	return es.e
}

// requestIDMiddleware accepts a caller-supplied X-Request-ID or assigns one,
// and exposes it to handlers, responses and context-aware logging.
func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		req := c.Request()
		id := strings.TrimSpace(req.Header.Get(echo.HeaderXRequestID))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		return next(c)
	}
}

func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	status := httpStatusFromError(err)
	switch {
	case status >= http.StatusInternalServerError:
		_ = es.h.RenderError(c, err)
	case status == http.StatusNotFound:
		_ = handlers.RenderNotFound(c)
	default:
		_ = handlers.RenderProblem(c, status, http.StatusText(status))
	}
}

func httpStatusFromError(err error) int {
	var coder interface{ StatusCode() int }
	if errors.As(err, &coder) {
		if code := coder.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}
