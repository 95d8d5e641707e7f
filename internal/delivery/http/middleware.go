package http

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/weatherapp/weather/internal/domain"
	"github.com/weatherapp/weather/internal/service"
)

const (
	localRequestID = "request_id"
	localClientIP  = "client_ip"
	localSessionID = "session_id"

	sessionCookieName = "Session"
)

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

func clientIP(c *fiber.Ctx) string {
	ip, _ := c.Locals(localClientIP).(string)
	return ip
}

func sessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(localSessionID).(string)
	return id
}

// statusOf returns the status the error handler will eventually send
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// RequestParams tags every request with an ID and the originating client IP
func RequestParams() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := uuid.NewString()
		ip := c.Get("X-Original-Forwarded-For")
		if ip == "" {
			ip = c.IP()
		}
		c.Locals(localRequestID, id)
		c.Locals(localClientIP, ip)
		c.Set("X-Request-ID", id)
		return c.Next()
	}
}

// AccessLog writes one structured line per request
func AccessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		attrs := []any{
			"type", "request",
			"request_id", requestID(c),
			"client_ip", clientIP(c),
			"method", c.Method(),
			"path", c.Path(),
			"status_code", statusOf(c, err),
			"duration", time.Since(start).Seconds(),
		}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}
		slog.Info("request", attrs...)
		return err
	}
}

type sessionCookie struct {
	SessionID string `json:"session_id"`
	Expiry    string `json:"expiry"`
}

func decodeSessionCookie(raw string) (sessionCookie, bool) {
	var s sessionCookie
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return s, false
	}
	if err := json.Unmarshal(b, &s); err != nil || s.SessionID == "" {
		return s, false
	}
	return s, true
}

// Session reuses a valid session cookie or issues a new session
func Session(repo service.DataRepository, ttl time.Duration, secure bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.Context()

		if s, ok := decodeSessionCookie(c.Cookies(sessionCookieName)); ok {
			expiry, err := time.Parse(time.RFC3339Nano, s.Expiry)
			if err == nil && expiry.After(time.Now()) {
				stored, err := repo.GetSession(ctx, s.SessionID)
				if err != nil {
					slog.Error("session lookup failed", "request_id", requestID(c), "error", err)
				}
				if stored != nil {
					c.Locals(localSessionID, s.SessionID)
					return c.Next()
				}
			}
		}

		id := uuid.NewString()
		expiry := time.Now().UTC().Add(ttl)
		err := repo.AddSession(ctx, domain.Session{SessionID: id, UserIP: clientIP(c), ExpiresAt: expiry})
		if err != nil {
			slog.Error("failed to create session", "request_id", requestID(c), "error", err)
			return c.Next()
		}

		value, _ := json.Marshal(sessionCookie{SessionID: id, Expiry: expiry.Format(time.RFC3339Nano)})
		c.Locals(localSessionID, id)
		c.Cookie(&fiber.Cookie{
			Name:     sessionCookieName,
			Value:    base64.RawURLEncoding.EncodeToString(value),
			Path:     "/",
			Expires:  expiry,
			HTTPOnly: true,
			Secure:   secure,
			SameSite: fiber.CookieSameSiteStrictMode,
		})
		return c.Next()
	}
}

// RequireAuth rejects requests whose Authorization header does not carry
// the configured token. An empty token rejects everything.
func RequireAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization token is missing or invalid")
		}
		return c.Next()
	}
}

// responseCacheKey drops a trailing slash, as routing does, so both
// spellings of a path share one entry
func responseCacheKey(c *fiber.Ctx) string {
	path := c.Path()
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		path = "/"
	}
	return "cache:" + c.Method() + ":" + path
}

// Cached serves GET responses from cache and stores successful JSON
// responses for ttl. Cache failures never fail the request.
func Cached(cache service.Cache, metrics *Metrics, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}
		ctx := c.Context()
		key := responseCacheKey(c)

		body, ok, err := cache.Get(ctx, key)
		if err != nil {
			metrics.recordCacheError(c.Method(), c.Path(), "get_error")
			slog.Error("cache read failed", "type", "cache", "request_id", requestID(c), "path", c.Path(), "error", err)
		}
		if ok {
			metrics.recordCacheHit(c.Method(), c.Path())
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		resp := c.Response()
		if resp.StatusCode() != fiber.StatusOK || !strings.Contains(string(resp.Header.ContentType()), fiber.MIMEApplicationJSON) {
			return nil
		}
		stored := append([]byte(nil), resp.Body()...)
		if err := cache.Set(ctx, key, stored, ttl); err != nil {
			metrics.recordCacheError(c.Method(), c.Path(), "set_error")
			slog.Error("cache write failed", "type", "cache", "request_id", requestID(c), "path", c.Path(), "error", err)
			return nil
		}
		metrics.recordCacheSuccess(c.Method(), c.Path())
		slog.Info("response cached", "type", "cache", "request_id", requestID(c), "path", c.Path(), "expire", ttl.String())
		return nil
	}
}
