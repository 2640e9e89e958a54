package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

const (
	tokenContextKey = "userToken"
	userContextKey  = "user"

	defaultTokenTTL = 24 * time.Hour
)

// Claims represents the identity claims issued by the identity provider.
type Claims struct {
	jwt.StandardClaims
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

func (c *Claims) Identity() user.Identity {
	return user.Identity{
		Subject:   c.Subject,
		Email:     c.Email,
		Name:      c.Name,
		AvatarURL: c.Picture,
	}
}

// NewClaims returns claims for ident valid for ttl (a day when ttl is 0).
func NewClaims(conf *core.Config, ident user.Identity, ttl time.Duration) *Claims {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := core.NowFunc()
	issuer := conf.JWTIssuer
	if issuer == "" {
		issuer = conf.AppName
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   ident.Subject,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:   ident.Email,
		Name:    ident.Name,
		Picture: ident.AvatarURL,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf    *core.Config
	userSvc *user.Service
}

func newAuthenticator(conf *core.Config, svc *user.Service) *authenticator {
	return &authenticator{conf: conf, userSvc: svc}
}

// optionalJWT validates the bearer token when there is one. Requests without it go through anonymously.
func (a *authenticator) optionalJWT() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		Skipper: func(ctx echo.Context) bool {
			return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
		},
		SigningKey:    []byte(a.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	})
}

// loadUser puts the stored user behind the token claims in the context.
// A caller whose identity is valid but who never signed up stays anonymous to the services.
func (a *authenticator) loadUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return next(ctx)
			}
			if a.conf.JWTIssuer != "" && claims.Issuer != a.conf.JWTIssuer {
				return errInvalidIssuer
			}
			if claims.Subject == "" {
				return errUnauthorized
			}

			usr, err := a.userSvc.GetBySubject(ctx.Request().Context(), claims.Subject)
			switch {
			case err == nil:
				ctx.Set(userContextKey, &usr)
			case errors.Cause(err) != user.ErrNotFound:
				return errors.Wrap(err, "finding user by subject")
			}
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return claims, nil
		}
	}
	return nil, errUnauthorized
}

// contextUser returns the caller, nil when anonymous.
func contextUser(ctx echo.Context) *user.User {
	if usr, ok := ctx.Get(userContextKey).(*user.User); ok {
		return usr
	}
	return nil
}
