package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/itchan-dev/modpolicy/shared/domain"
	jwt_internal "github.com/itchan-dev/modpolicy/shared/jwt"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

// SanctionCache reports members whose status currently forbids any authenticated request.
type SanctionCache interface {
	IsSanctioned(memberId domain.MemberId) bool
}

type key int

const ActorKey key = 0

type Auth struct {
	jwtService    jwt_internal.JwtService
	sanctions     SanctionCache
	secureCookies bool
}

func NewAuth(jwtService jwt_internal.JwtService, sanctions SanctionCache, secureCookies bool) *Auth {
	return &Auth{
		jwtService:    jwtService,
		sanctions:     sanctions,
		secureCookies: secureCookies,
	}
}

// NeedAuth requires any signed-in actor.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return a.auth(domain.RoleMember)
}

// ModeratorOnly requires a moderator or administrator token. Services still check the
// assignment against storage.
func (a *Auth) ModeratorOnly() func(http.Handler) http.Handler {
	return a.auth(domain.RoleModerator)
}

func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	return a.auth(domain.RoleAdministrator)
}

// OptionalAuth puts the actor into the context when a valid token is present.
func (a *Auth) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor, err := a.extractActor(r); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ActorKey, actor))
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	errNoToken    = errors.New("no token")
	errSanctioned = errors.New("sanctioned")
)

func (a *Auth) extractActor(r *http.Request) (domain.Actor, error) {
	var tokenString string
	if cookie, err := r.Cookie("accessToken"); err == nil {
		tokenString = cookie.Value
	} else if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		tokenString = token
	}
	if tokenString == "" {
		return nil, errNoToken
	}

	subject, err := a.jwtService.DecodeToken(tokenString)
	if err != nil {
		return nil, err
	}

	if a.sanctions != nil && a.sanctions.IsSanctioned(subject.MemberId) {
		return nil, errSanctioned
	}

	return domain.NewActor(subject.Role, subject.AccountId, subject.MemberId)
}

func (a *Auth) auth(minRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := a.extractActor(r)
			if err != nil {
				switch {
				case errors.Is(err, errNoToken):
					http.Error(w, "Please sign-in", http.StatusUnauthorized)
				case errors.Is(err, errSanctioned):
					ClearAccessCookie(w, a.secureCookies)
					http.Error(w, "Account suspended", http.StatusForbidden)
				default:
					utils.WriteErrorAndStatusCode(w, err)
				}
				return
			}

			if domain.Rank(actor.Role()) < domain.Rank(minRole) {
				http.Error(w, "Access denied", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClearAccessCookie expires the access token cookie so the browser signs in again.
func ClearAccessCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "accessToken",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetActorFromContext returns nil when the request was not authenticated.
func GetActorFromContext(r *http.Request) domain.Actor {
	actor, ok := r.Context().Value(ActorKey).(domain.Actor)
	if !ok {
		return nil
	}
	return actor
}
