package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/dmitrijs2005/diycloud/internal/server/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller, injected into the request context by
// requireAuth.
type Identity struct {
	UserID    int64
	Role      string
	SessionID string
}

func identityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// requireAuth validates the Bearer token and the DB session it references.
// A valid JWT whose session was deleted (logout) or has expired is rejected,
// so revocation takes effect before the token's own expiry.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			writeErr(w, fmt.Errorf("%w: missing bearer token", common.ErrUnauthorized))
			return
		}

		claims, err := auth.ParseToken(tokenString, s.jwtSecret)
		if err != nil {
			writeErr(w, fmt.Errorf("%w: %v", common.ErrUnauthorized, err))
			return
		}

		session, err := s.sessions.Find(r.Context(), claims.SessionID)
		if err != nil {
			writeErr(w, fmt.Errorf("%w: session not found", common.ErrUnauthorized))
			return
		}
		if time.Now().UTC().After(session.ExpiresAt) {
			writeErr(w, fmt.Errorf("%w: session expired", common.ErrUnauthorized))
			return
		}

		identity := &Identity{
			UserID:    claims.UserID,
			Role:      claims.Role,
			SessionID: claims.SessionID,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}
