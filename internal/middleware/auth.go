package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/pkg/httpcontext"
)

// Headers carrying the verified identity to handlers. Client-supplied values
// are always discarded before verification.
const (
	HeaderUserID   = httpcontext.HeaderUserID
	HeaderUserRole = httpcontext.HeaderUserRole
)

// JWTAuth verifies HMAC-signed bearer tokens issued elsewhere and exposes the
// user_id and role claims to downstream handlers.
func JWTAuth(secret string, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			ctx.Request.Header.Del(HeaderUserID)
			ctx.Request.Header.Del(HeaderUserRole)

			tokenString := extractToken(ctx)
			if tokenString == "" {
				reject(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "missing token")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid jwt token", zap.Error(err))
				reject(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				reject(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
				return
			}
			userID, _ := claims["user_id"].(string)
			if userID == "" {
				reject(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "token has no user")
				return
			}
			ctx.Request.Header.Set(HeaderUserID, userID)
			if role, ok := claims["role"].(string); ok {
				ctx.Request.Header.Set(HeaderUserRole, role)
			}

			next(ctx)
		}
	}
}

// RequireRole must run behind JWTAuth.
func RequireRole(role string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Request.Header.Peek(HeaderUserRole)) != role {
				reject(ctx, http.StatusForbidden, "FORBIDDEN", "insufficient role")
				return
			}
			next(ctx)
		}
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

func reject(ctx *fasthttp.RequestCtx, status int, code, message string) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBodyString(fmt.Sprintf(`{"status":"error","code":%q,"error":%q}`, code, message))
}
