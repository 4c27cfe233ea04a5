package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"hiretalk/pkg/config"
	"hiretalk/pkg/logger"
	"hiretalk/pkg/utils"
)

// Role represents the resolved caller role for a request.
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

// SecConfig mirrors the security-related configuration used to drive
// authentication, CORS and rate limiting behavior. Shared here so
// limiter.go and gateway.go can reference it.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}
}

type ctxUserKey struct{}

// RequireSignedUser verifies HMAC signature headers and injects the
// verified user id into the request context. Backend and admin callers
// may omit the signature entirely; a signature, when present, is always
// verified.
func RequireSignedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role-Name")
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-User-Signature"))

		if (role == "backend" || role == "admin") && sig == "" {
			next.ServeHTTP(w, r)
			return
		}

		if sig == "" || userID == "" {
			logger.Warn("missing_signature_headers", "path", r.URL.Path, "remote", r.RemoteAddr)
			utils.JSONError(w, http.StatusUnauthorized, "missing signature headers")
			return
		}

		keys := config.GetSigningKeys()
		if len(keys) == 0 {
			logger.Error("no_signing_keys_configured")
			utils.JSONError(w, http.StatusInternalServerError, "server misconfigured: no signing secrets available")
			return
		}

		ok := false
		for k := range keys {
			mac := hmac.New(sha256.New, []byte(k))
			mac.Write([]byte(userID))
			expected := hex.EncodeToString(mac.Sum(nil))
			if hmac.Equal([]byte(expected), []byte(sig)) {
				ok = true
				break
			}
		}
		if !ok {
			logger.Warn("invalid_signature", "user", userID)
			utils.JSONError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the signature-verified user id or empty
// string.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxUserKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func validateUserID(a string) (bool, string) {
	if a == "" {
		return false, "user required"
	}
	if len(a) > 128 {
		return false, "user id too long"
	}
	return true, ""
}

// ResolveUserFromRequest is the canonical caller-identity resolver. A
// signature-verified user in the context is authoritative; any
// conflicting user supplied via header, query or body is rejected. With
// no signature, backend and admin callers may supply the user via body,
// the X-User-ID header or the user query param. Frontend callers always
// need a signature. Returns the user id, or a non-zero HTTP status and
// message.
func ResolveUserFromRequest(r *http.Request, bodyUser string) (string, int, string) {
	if id := UserIDFromContext(r.Context()); id != "" {
		if q := strings.TrimSpace(r.URL.Query().Get("user")); q != "" && q != id {
			return "", http.StatusForbidden, "user mismatch between signature and query param"
		}
		if h := strings.TrimSpace(r.Header.Get("X-User-ID")); h != "" && h != id {
			return "", http.StatusForbidden, "user mismatch between signature and header"
		}
		if bodyUser != "" && bodyUser != id {
			return "", http.StatusForbidden, "user mismatch between signature and body"
		}
		return id, 0, ""
	}

	role := r.Header.Get("X-Role-Name")
	if role == "backend" || role == "admin" {
		for _, candidate := range []string{
			bodyUser,
			strings.TrimSpace(r.Header.Get("X-User-ID")),
			strings.TrimSpace(r.URL.Query().Get("user")),
		} {
			if candidate == "" {
				continue
			}
			if ok, msg := validateUserID(candidate); !ok {
				return "", http.StatusBadRequest, msg
			}
			return candidate, 0, ""
		}
		return "", http.StatusBadRequest, "user required for backend requests"
	}

	return "", http.StatusUnauthorized, "missing or invalid user signature"
}
