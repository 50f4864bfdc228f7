package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const headerRequestID = "X-Request-Id"

// requestID tags every request with an id, taken from the caller when it
// sends one. The id is written back on the request so ServeWS can stamp it
// on the client it creates.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
				req.Header.Set(headerRequestID, id)
			}
			c.Response().Header().Set(headerRequestID, id)
			return next(c)
		}
	}
}

// accessLog logs each request once it completes. A websocket request only
// completes when the connection closes, so it is logged as a session.
func accessLog(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			fields := []zap.Field{
				zap.String("request_id", req.Header.Get(headerRequestID)),
				zap.String("remote_ip", c.RealIP()),
				zap.String("path", req.URL.Path),
			}
			if c.IsWebSocket() {
				log.Info("websocket session closed", append(fields,
					zap.Duration("duration", time.Since(start)))...)
				return err
			}
			log.Info("request", append(fields,
				zap.String("method", req.Method),
				zap.Int("status", c.Response().Status),
				zap.Int64("latency_ms", time.Since(start).Milliseconds()))...)
			return err
		}
	}
}

// NewServer builds the echo instance serving the health check and the
// websocket endpoint.
func NewServer(h *Hub, allow []string, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestID())
	e.Use(accessLog(log))
	origins := allow
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/ws", echo.WrapHandler(http.HandlerFunc(h.ServeWS)))
	return e
}
