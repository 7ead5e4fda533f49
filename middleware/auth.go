package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/toolshed/common"
	"github.com/cppla/toolshed/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextTokenKey stores the raw token the identity was decoded from, for logout.
	ContextTokenKey = "token"
	// ContextTokenExpiryKey stores the token's expiry time.
	ContextTokenExpiryKey = "token_expires_at"

	// TokenCookie is the cookie carrying the session token.
	TokenCookie = "token"
)

// RevocationChecker reports whether a token was revoked before its expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) bool
}

// CheckUser attaches the caller's identity when the request carries a valid, unrevoked token.
// The token cookie is tried first and an "Authorization: Bearer" header second, so a stale
// cookie does not hide a valid header. It never rejects a request; handlers that need an
// identity check IdentityFrom themselves.
func CheckUser(secret string, revoked RevocationChecker) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		for _, token := range tokensFromRequest(ctx) {
			claims, err := utils.ParseToken(secret, token)
			if err != nil {
				continue
			}
			if revoked != nil && revoked.IsRevoked(ctx.Request.Context(), token) {
				continue
			}

			ctx.Set(ContextUserIDKey, claims.UserID)
			ctx.Set(ContextTokenKey, token)
			if claims.ExpiresAt != nil {
				ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
			}
			break
		}
		ctx.Next()
	}
}

// IdentityFrom returns the identity attached by CheckUser, if any.
func IdentityFrom(ctx *gin.Context) (common.Identity, bool) {
	v, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return common.Identity{}, false
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		return common.Identity{}, false
	}
	return common.Identity{UserID: id}, true
}

func tokensFromRequest(ctx *gin.Context) []string {
	var tokens []string
	if c, err := ctx.Cookie(TokenCookie); err == nil && c != "" {
		tokens = append(tokens, c)
	}
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		if h := strings.TrimSpace(parts[1]); h != "" && (len(tokens) == 0 || h != tokens[0]) {
			tokens = append(tokens, h)
		}
	}
	return tokens
}
