package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nammaspot/parkgo/internal/backend"
)

const (
	ctxRequestID  = "request_id"
	ctxOperatorID = "operator_id"
	ctxRole       = "operator_role"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set(ctxRequestID, reqID)

		c.Next()
	}
}

// CORS allows browser clients that send the backend session cookie.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
			"Retry-After",
		},
		MaxAge: 12 * time.Hour,
	}

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}

	return cors.New(cfg)
}

// ForwardCredentials passes the caller's cookies on to backend calls made
// while serving the request.
func ForwardCredentials() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie := c.GetHeader("Cookie"); cookie != "" {
			ctx := backend.WithCredentials(c.Request.Context(), cookie)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		reqID, _ := c.Get(ctxRequestID)

		attrs := []any{
			slog.Int("status", status),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
			slog.Any("request_id", reqID),
			slog.Duration("latency", latency),
			slog.Int("bytes_out", c.Writer.Size()),
		}
		if op, ok := c.Get(ctxOperatorID); ok {
			attrs = append(attrs, slog.Any("operator", op))
		}

		switch {
		case len(c.Errors) > 0 || status >= http.StatusInternalServerError:
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
			logger.Error("http", slog.Group("http", attrs...))
		case status >= http.StatusBadRequest:
			logger.Warn("http", slog.Group("http", attrs...))
		default:
			logger.Info("http", slog.Group("http", attrs...))
		}
	}
}

var operatorRoles = map[string]bool{"admin": true, "operator": true}

// OperatorClaims is the token issued to gate staff.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// OperatorAuth requires an HS256 bearer token with an operator or admin
// role. With an empty secret every request is let through as the operator
// named in X-Operator-ID.
func OperatorAuth(secret string, logger *slog.Logger) gin.HandlerFunc {
	if secret == "" {
		logger.Warn("OPERATOR_JWT_SECRET is empty, operator routes are not authenticated")
		return func(c *gin.Context) {
			id := strings.TrimSpace(c.GetHeader("X-Operator-ID"))
			if id == "" {
				id = "anonymous"
			}
			c.Set(ctxOperatorID, id)
			c.Set(ctxRole, "operator")
			c.Next()
		}
	}

	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authorization header is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authorization header format must be Bearer {token}"})
			return
		}

		var claims OperatorClaims
		token, err := parser.ParseWithClaims(parts[1], &claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: msg})
			return
		}

		if !operatorRoles[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "insufficient permissions"})
			return
		}
		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "token has no subject"})
			return
		}

		c.Set(ctxOperatorID, claims.Subject)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func operatorID(c *gin.Context) string {
	return c.GetString(ctxOperatorID)
}
