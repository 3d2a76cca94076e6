package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Auth requires a bearer token backed by a live session.
func Auth(cfg config.JWTConfig, verifier session.Checker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, verifier, logg, false)
}

// OptionalAuth identifies shoppers who send a token and serves everyone else as
// a guest. A stale or revoked token downgrades to guest instead of failing, so
// a shopper whose session lapsed can still browse and check out.
func OptionalAuth(cfg config.JWTConfig, verifier session.Checker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, verifier, logg, true)
}

func authenticate(cfg config.JWTConfig, verifier session.Checker, logg *logger.Logger, optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, present := bearerToken(r)
			if !present && optional {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifyAccess(r, cfg, verifier, token)
			if err != nil {
				if optional && pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
					if logg != nil {
						logg.Debug(ctx, "auth.guest_fallback")
					}
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithCaller(ctx, Caller{
				UserID:   claims.UserID.String(),
				Role:     claims.Role,
				AccessID: claims.ID,
			})
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reports the token and whether an Authorization header was sent at all.
func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", false
	}
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest), true
	}
	return raw, true
}

func verifyAccess(r *http.Request, cfg config.JWTConfig, verifier session.Checker, token string) (*pkgAuth.AccessTokenClaims, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if pkgAuth.IsExpired(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "token expired")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if verifier == nil {
		return claims, nil
	}
	ok, err := verifier.Active(r.Context(), claims.ID, claims.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired or signed out")
	}
	return claims, nil
}
