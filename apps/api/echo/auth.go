package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
	jwtAudience     = "Sanur Portal"
)

var errTooManyAttempts = echo.NewHTTPError(http.StatusTooManyRequests, "too many failed login attempts, try again later")

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Name         string   `json:"name,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher    bool     `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin      bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	Roles        []string `json:"roles,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  jwtAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsStudent:    usr.IsStudent(),
		IsTeacher:    usr.IsTeacher(),
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func loginKey(uname string) string {
	return "login:" + core.CleanString(uname, true /* lower */)
}

// authenticate checks the credentials, counting failures against the attempt limiter.
func (s *Server) authenticate(ctx context.Context, uname, pwd string) (*Claims, error) {
	key := loginKey(uname)
	allowed, err := s.deps.Limiter.Allow(ctx, key)
	if err != nil {
		s.deps.Logger.Warn(fmt.Sprintf("login throttle unavailable: %v", err), err)
	} else if !allowed {
		return nil, errTooManyAttempts
	}

	fail := func() {
		if err := s.deps.Limiter.Fail(ctx, key); err != nil {
			s.deps.Logger.Warn(fmt.Sprintf("recording failed login: %v", err), err)
		}
	}

	usr, err := s.deps.UserSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if core.IsNotFound(err) {
			fail()
			return nil, core.NewValidationError(errors.New("invalid credentials"))
		}
		return nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		fail()
		return nil, core.NewValidationError(errors.New("invalid credentials"))
	}
	if !usr.IsActive {
		return nil, errAccountDeactivated
	}

	if err := s.deps.Limiter.Reset(ctx, key); err != nil {
		s.deps.Logger.Warn(fmt.Sprintf("resetting login throttle: %v", err), err)
	}
	usr, err = s.deps.UserSvc.SetLastLogin(ctx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetUserClaims(s.deps.Conf, usr), nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser loads (once per request) the User the token was issued to.
func (s *Server) getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
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

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		for _, role := range roles {
			if core.StringInSlice(role, claims.Roles) {
				return true
			}
		}
	}
	return false
}

func (s *Server) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.deps.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(s.deps.Conf, GetUserClaims(s.deps.Conf, usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
