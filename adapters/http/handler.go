package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kalastudio/concierge/domain"
	"github.com/kalastudio/concierge/usecase"
	"github.com/kalastudio/concierge/utils/log"
)

const (
	JWTExpiry = 12 * time.Hour

	// Rate limiting
	MaxConcurrent = 10
)

// ChatHandler is the server boundary of the companion: it validates a
// submission, streams the model reply back chunk by chunk and translates
// failures into small JSON bodies. It keeps no cross-request state.
type ChatHandler struct {
	chat      *usecase.ChatService
	model     string
	jwtSecret []byte
}

type ChatRequest struct {
	Messages    json.RawMessage `json:"messages"`
	CurrentPath string          `json:"currentPath"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
	Details   string `json:"details,omitempty"`
}

type SessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func NewChatHandler(chat *usecase.ChatService, model string, jwtSecret []byte) *ChatHandler {
	return &ChatHandler{
		chat:      chat,
		model:     model,
		jwtSecret: jwtSecret,
	}
}

// Chat handles one conversation turn. The reply is streamed as plain text;
// nothing is buffered server-side before the first flush.
func (h *ChatHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		trace := domain.NewRequestTrace(h.model, "")
		return h.writeError(c, trace, domain.NewValidationError("request body must be JSON"))
	}

	trace := domain.NewRequestTrace(h.model, req.CurrentPath)
	ctx := context.WithValue(c.Request().Context(), "request_id", trace.RequestID)
	ctx = context.WithValue(ctx, "current_path", req.CurrentPath)
	if sid := c.Get("session_id"); sid != nil {
		ctx = context.WithValue(ctx, "session_id", sid)
	}
	logger := log.WithCtx(ctx).With(zap.String("model", trace.Model))

	var messages []domain.Message
	if req.Messages == nil || json.Unmarshal(req.Messages, &messages) != nil {
		return h.writeError(c, trace, domain.NewValidationError("messages must be an array of {role, content}"))
	}

	logger.Info("chat request received", zap.Int("messages", len(messages)))

	stream, err := h.chat.Stream(ctx, messages, req.CurrentPath)
	if err != nil {
		return h.writeError(c, trace, err)
	}

	// Hold the status line until the first chunk so a fast upstream failure
	// still maps onto a proper error status.
	first, ok := <-stream
	if ok && first.Err != nil {
		return h.writeError(c, trace, first.Err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
	resp.Header().Set("X-Request-Id", trace.RequestID)
	resp.WriteHeader(http.StatusOK)

	logger.Info("streaming started")

	if ok {
		if _, err := resp.Write([]byte(first.Text)); err != nil {
			logger.Error("writing chunk", zap.Error(err))
			return nil
		}
		resp.Flush()
	}

	for chunk := range stream {
		if chunk.Err != nil {
			// Headers are out; all that is left is to log and stop.
			logger.Error("stream aborted", zap.Error(chunk.Err))
			return nil
		}
		if _, err := resp.Write([]byte(chunk.Text)); err != nil {
			logger.Error("writing chunk", zap.Error(err))
			return nil
		}
		resp.Flush()
	}

	logger.Info("completion finished",
		zap.Duration("elapsed", time.Since(trace.ReceivedAt)))
	return nil
}

// writeError classifies err into the failure taxonomy and emits the JSON
// failure body. Full detail stays in the server logs.
func (h *ChatHandler) writeError(c echo.Context, trace domain.RequestTrace, err error) error {
	logger := log.With(
		zap.String("request_id", trace.RequestID),
		zap.String("model", trace.Model),
	)
	logger.Error("chat request failed", zap.Error(err))

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     ve.Reason,
			RequestID: trace.RequestID,
		})
	case errors.Is(err, domain.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:     "The companion is handling heavy traffic. Please retry in a few seconds.",
			RequestID: trace.RequestID,
			Details:   "rate limited",
		})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:     "The connection to the companion was disrupted.",
			RequestID: trace.RequestID,
			Details:   "upstream failure",
		})
	}
}

// GenerateToken issues an anonymous short-lived session token for the
// companion widget. No account exists; the token only names the session so
// the chat and websocket endpoints are not wide open.
func (h *ChatHandler) GenerateToken(c echo.Context) error {
	sessionID := uuid.NewString()
	claims := &SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "concierge",
			Subject:   "companion-session",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		log.With(zap.Error(err)).Error("signing session token")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"token":      tokenString,
		"type":       "Bearer",
		"session_id": sessionID,
	})
}

// JWTMiddleware validates the session token from the Authorization header
// or, for websocket upgrades, the token query parameter.
func (h *ChatHandler) JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString := ""
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
			}
		} else {
			tokenString = c.QueryParam("token")
		}
		if tokenString == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing session token")
		}

		token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return h.jwtSecret, nil
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}

		if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
			c.Set("session_id", claims.SessionID)
			return next(c)
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
	}
}

// RateLimitMiddleware bounds concurrent chat turns with a semaphore.
func (h *ChatHandler) RateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	semaphore := make(chan struct{}, MaxConcurrent)
	return func(c echo.Context) error {
		select {
		case semaphore <- struct{}{}:
			defer func() { <-semaphore }()
			return next(c)
		default:
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many concurrent requests")
		}
	}
}

// HealthCheck reports liveness.
func (h *ChatHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "concierge",
	})
}
