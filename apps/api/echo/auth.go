package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core"
	"github.com/elimuhq/elimu/core/user"
)

// Token uses. An access token opens protected endpoints; a refresh token is
// only good for minting a new access token.
const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

const (
	jwtContextKey  = "userToken"
	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	TokenUse string `json:"token_use"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// newAppJWTConfig is the JWT auth middleware config; it validates signature
// and expiry, token-use and live-user checks happen in accessOnlyMiddleware.
func newAppJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// tokenIssuer mints and parses the token pair.
type tokenIssuer struct {
	conf *core.Config
}

func (ti tokenIssuer) claims(usr user.User, use string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		TokenUse: use,
		Name:     usr.Name,
		Email:    usr.Email,
		Role:     usr.Role,
	}
}

func (ti tokenIssuer) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(ti.conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (ti tokenIssuer) issueAccess(usr user.User) (string, error) {
	return ti.sign(ti.claims(usr, tokenUseAccess, ti.conf.Server.AccessTokenTTL))
}

// issuePair returns (access, refresh).
func (ti tokenIssuer) issuePair(usr user.User) (string, string, error) {
	access, err := ti.issueAccess(usr)
	if err != nil {
		return "", "", err
	}
	refresh, err := ti.sign(ti.claims(usr, tokenUseRefresh, ti.conf.Server.RefreshTokenTTL))
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// parseRefresh validates a refresh token string: signature, expiry, token use.
func (ti tokenIssuer) parseRefresh(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(ti.conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidRefreshToken
	}
	if claims.TokenUse != tokenUseRefresh {
		return nil, errInvalidRefreshToken
	}
	return claims, nil
}

// IssueTokenPair mints an access/refresh pair for usr.
func IssueTokenPair(conf *core.Config, usr user.User) (string, string, error) {
	return tokenIssuer{conf: conf}.issuePair(usr)
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser resolves the live user behind the request's claims, caching
// it on the context. A deleted user 401s, a deactivated one 403s, so revoking
// an account takes effect within one access-token TTL.
func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// accessOnlyMiddleware rejects refresh tokens on protected endpoints and
// resolves the live user once per request.
func accessOnlyMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.TokenUse != tokenUseAccess {
				return errUnauthorized
			}
			if _, err = getContextUser(ctx, svc); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// roleMiddleware allows only users whose role is in roles.
func roleMiddleware(svc *user.Service, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHTTPForbidden
		}
	}
}
