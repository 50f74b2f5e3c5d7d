// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

package access

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/logger"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type tokenClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JwtMiddlewareBuilder is a helper builder for the JWT middleware
type JwtMiddlewareBuilder struct {
	// Secret is the HS256 signing secret shared with the token issuer
	Secret []byte
}

// NewJwtMiddleware returns a middleware handler to validate JWT bearer tokens.
//
// Tokens are accepted as "Authorization: Bearer" header. A valid access token
// puts the identity into the request context; a present but invalid token is
// answered with 401 immediately. Requests without a token pass through
// unauthenticated, the dispatcher rejects them per operation.
func NewJwtMiddleware(jmb *JwtMiddlewareBuilder) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity := IdentityFromContext(r.Context()); identity != "" {
				h.ServeHTTP(w, r) // already authenticated
				return
			}

			tokenString := bearerToken(r)
			if tokenString == "" {
				h.ServeHTTP(w, r) // no token no auth, moving on
				return
			}

			identity, err := parseToken(jmb.Secret, tokenString, tokenTypeAccess)
			if err != nil {
				core.WriteError(w, r, err)
				return
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, identity)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	bearer := r.Header.Get("Authorization")
	if len(bearer) == 0 || bearer == "null" {
		return ""
	}
	if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
		return bearer[7:]
	}
	return bearer
}

func parseToken(secret []byte, tokenString, tokenType string) (string, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, core.Errorf(core.KindUnauthenticated, "unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid || claims.TokenType != tokenType || claims.Subject == "" {
		return "", core.Errorf(core.KindUnauthenticated, "given token not valid for any token type")
	}
	return claims.Subject, nil
}

// TokenAPIBuilder is a helper builder for the token endpoints
type TokenAPIBuilder struct {
	// Secret is the HS256 signing secret. This is mandatory.
	Secret []byte
	// Authenticate validates a username/password pair and returns the
	// identity to issue tokens for. This is mandatory.
	Authenticate func(ctx context.Context, username, password string) (string, bool)
	// AccessTTL is the lifetime of access tokens, default 5 minutes
	AccessTTL time.Duration
	// RefreshTTL is the lifetime of refresh tokens, default 24 hours
	RefreshTTL time.Duration
	// Router is a mux router. This is mandatory.
	Router *mux.Router
}

// HandleTokenRoutes adds the token obtain, refresh and verify routes.
//
// POST /token/ with {username, password} answers an access/refresh pair,
// POST /token/refresh/ with {refresh} answers a fresh access token,
// POST /token/verify/ with {token} answers 200 for any valid token.
func HandleTokenRoutes(b *TokenAPIBuilder) {
	if b.Secret == nil || b.Authenticate == nil || b.Router == nil {
		panic("token api: secret, authenticate and router are mandatory")
	}
	accessTTL := b.AccessTTL
	if accessTTL == 0 {
		accessTTL = 5 * time.Minute
	}
	refreshTTL := b.RefreshTTL
	if refreshTTL == 0 {
		refreshTTL = 24 * time.Hour
	}

	issue := func(identity, tokenType string, ttl time.Duration) (string, error) {
		now := time.Now()
		claims := tokenClaims{
			TokenType: tokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   identity,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
				ID:        uuid.New().String(),
			},
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.Secret)
	}

	writeJSON := func(w http.ResponseWriter, status int, body interface{}) {
		jsonData, _ := json.MarshalWithOption(body, json.DisableHTMLEscape())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		w.Write(jsonData)
	}

	b.Router.HandleFunc("/token/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" {
			core.WriteError(w, r, core.ValidationError(map[string][]string{
				"username": {"this field is required"},
			}))
			return
		}
		identity, ok := b.Authenticate(r.Context(), body.Username, body.Password)
		if !ok {
			core.WriteError(w, r, core.Errorf(core.KindUnauthenticated,
				"no active account found with the given credentials"))
			return
		}
		access, err := issue(identity, tokenTypeAccess, accessTTL)
		if err == nil {
			var refresh string
			refresh, err = issue(identity, tokenTypeRefresh, refreshTTL)
			if err == nil {
				writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
				return
			}
		}
		core.WriteError(w, r, err)
	}).Methods(http.MethodPost)

	b.Router.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Refresh string `json:"refresh"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh == "" {
			core.WriteError(w, r, core.ValidationError(map[string][]string{
				"refresh": {"this field is required"},
			}))
			return
		}
		identity, err := parseToken(b.Secret, body.Refresh, tokenTypeRefresh)
		if err != nil {
			core.WriteError(w, r, err)
			return
		}
		access, err := issue(identity, tokenTypeAccess, accessTTL)
		if err != nil {
			core.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": access})
	}).Methods(http.MethodPost)

	b.Router.HandleFunc("/token/verify/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
			core.WriteError(w, r, core.ValidationError(map[string][]string{
				"token": {"this field is required"},
			}))
			return
		}
		if _, err := parseToken(b.Secret, body.Token, tokenTypeAccess); err != nil {
			if _, err := parseToken(b.Secret, body.Token, tokenTypeRefresh); err != nil {
				core.WriteError(w, r, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{})
	}).Methods(http.MethodPost)
}
