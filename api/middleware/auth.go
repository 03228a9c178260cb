package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/OmarEhab007/cargoparts-sub002/api/responses"
	pkgauth "github.com/OmarEhab007/cargoparts-sub002/pkg/auth"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/config"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
)

const bearerPrefix = "bearer "

// Auth requires an "Authorization: Bearer <jwt>" header and puts the caller's
// user id and role on the request context. Expired tokens get their own
// message so clients know to refresh instead of re-authenticating.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, pkgauth.ErrTokenExpired) {
					msg = "token expired"
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
				return
			}

			userID, role := claims.UserID.String(), string(claims.Role)
			ctx := WithRole(WithUserID(r.Context(), userID), role)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
