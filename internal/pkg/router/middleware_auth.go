package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/passgate/internal/pkg/jwt"
)

// CookieAccessToken is the HTTP-only cookie carrying the access token.
const CookieAccessToken = "access_token"

// bearerToken reads the access token from the Authorization header, falling
// back to the access_token cookie.
func bearerToken(r *http.Request) string {
	if p := strings.Fields(r.Header.Get("Authorization")); len(p) == 2 && strings.EqualFold(p[0], "Bearer") {
		return p[1]
	}

	if c, err := r.Cookie(CookieAccessToken); err == nil {
		return strings.TrimSpace(c.Value)
	}

	return ""
}

func middlewareAuthentication(verifier AccessVerifier, public map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s, ok := public[r.Method]; ok {
				if _, skip := s[matchedRoutePath(r)]; skip {
					next.ServeHTTP(w, r)
					return
				}
			}

			token := bearerToken(r)
			if token == "" || verifier == nil {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
