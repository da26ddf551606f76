package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
	"github.com/darasahq/darasa/core/admin"
	"github.com/darasahq/darasa/core/student"
	"github.com/darasahq/darasa/core/teacher"
)

const (
	tokenContextKey     = "accountToken"
	principalContextKey = "principal"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	IsStudent    bool   `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher    bool   `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin      bool   `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
}

func (c Claims) principal() (account.Principal, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return account.Principal{}, errors.Wrap(err, "parsing claims subject")
	}
	return account.Principal{ID: id, Role: c.Role, Name: c.Name, Email: c.Email}, nil
}

// authenticator resolves credentials and JWTs against the three account
// aggregates; a login email is looked up as student, then teacher, then admin.
type authenticator struct {
	conf     *core.Config
	students *student.Service
	teachers *teacher.Service
	admins   *admin.Service
}

func newAuthenticator(conf *core.Config, students *student.Service, teachers *teacher.Service, admins *admin.Service) *authenticator {
	return &authenticator{
		conf:     conf,
		students: students,
		teachers: teachers,
		admins:   admins,
	}
}

func (a *authenticator) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(a.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

func (a *authenticator) claimsFor(prin account.Principal, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   strconv.FormatInt(prin.ID, 10),
			Audience:  "Darasa",
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         prin.Name,
		Email:        prin.Email,
		Role:         prin.Role,
		IsStudent:    prin.IsStudent(),
		IsTeacher:    prin.IsTeacher(),
		IsAdmin:      prin.IsAdmin(),
	}
}

func (a *authenticator) authenticate(ctx context.Context, email, pwd string) (*Claims, error) {
	if std, err := a.students.GetByEmail(ctx, email); err == nil {
		if err = std.CheckPassword(pwd); err != nil {
			return nil, errAuthenticationFailed
		}
		if std, err = a.students.SetLastLogin(ctx, std); err != nil {
			return nil, errors.Wrap(err, "setting lastLogin")
		}
		return a.claimsFor(account.Principal{ID: std.ID, Role: account.RoleStudent, Name: std.Name, Email: std.Email}), nil
	} else if errors.Cause(err) != student.ErrNotFound {
		return nil, errors.Wrap(err, "finding student by email")
	}

	if tch, err := a.teachers.GetByEmail(ctx, email); err == nil {
		if err = tch.CheckPassword(pwd); err != nil {
			return nil, errAuthenticationFailed
		}
		if tch, err = a.teachers.SetLastLogin(ctx, tch); err != nil {
			return nil, errors.Wrap(err, "setting lastLogin")
		}
		return a.claimsFor(account.Principal{ID: tch.ID, Role: account.RoleTeacher, Name: tch.Name, Email: tch.Email}), nil
	} else if errors.Cause(err) != teacher.ErrNotFound {
		return nil, errors.Wrap(err, "finding teacher by email")
	}

	if adm, err := a.admins.GetByEmail(ctx, email); err == nil {
		if err = adm.CheckPassword(pwd); err != nil {
			return nil, errAuthenticationFailed
		}
		if adm, err = a.admins.SetLastLogin(ctx, adm); err != nil {
			return nil, errors.Wrap(err, "setting lastLogin")
		}
		return a.claimsFor(account.Principal{ID: adm.ID, Role: account.RoleAdmin, Name: adm.Name, Email: adm.Email}), nil
	} else if errors.Cause(err) != admin.ErrNotFound {
		return nil, errors.Wrap(err, "finding admin by email")
	}

	return nil, errAuthenticationFailed
}

// generateToken generates a signed JWT token string representing the Claims.
func (a *authenticator) generateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(a.conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

// checkSession enforces the single-session policy: tokens issued before the
// account's latest login are rejected.
func (a *authenticator) checkSession(ctx context.Context, prin account.Principal, claims Claims) error {
	var lastLogin time.Time
	switch prin.Role {
	case account.RoleStudent:
		std, err := a.students.GetByID(ctx, prin.ID)
		if err != nil {
			return errUnauthorized
		}
		lastLogin = std.LastLogin
	case account.RoleTeacher:
		tch, err := a.teachers.GetByID(ctx, prin.ID)
		if err != nil {
			return errUnauthorized
		}
		lastLogin = tch.LastLogin
	case account.RoleAdmin:
		adm, err := a.admins.GetByID(ctx, prin.ID)
		if err != nil {
			return errUnauthorized
		}
		lastLogin = adm.LastLogin
	default:
		return errUnauthorized
	}

	// the newest login wins
	if claims.IssuedAt < lastLogin.Unix() {
		return errSessionRevoked
	}
	return nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	prin, err := claims.principal()
	if err != nil {
		return "", errUnauthorized
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	reqCtx := ctx.Request().Context()
	if err = a.checkSession(reqCtx, prin, claims); err != nil {
		if a.conf.Server.SingleSession || errors.Cause(err) == errUnauthorized {
			return "", err
		}
	}

	newClaims := a.claimsFor(prin, claims.OrigIssuedAt)
	token, err := a.generateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextPrincipal(ctx echo.Context) (account.Principal, error) {
	if prin, ok := ctx.Get(principalContextKey).(account.Principal); ok {
		return prin, nil
	}
	return account.Principal{}, errUnauthorized
}

// Auth API

type authApi struct {
	auth     *authenticator
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, validate *validator.Validate) {
	api := authApi{auth: auth, validate: validate}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.generateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
