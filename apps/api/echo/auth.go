package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
)

const (
	contextTokenKey   = "learnerToken"
	contextLearnerKey = "learner"
	tokenAudience     = "scorm-runtime"
)

// Claims represents the authorization claims transmitted via a JWT.
// The learner is authenticated by the platform; this API only reads the token.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func NewLearnerClaims(learner scorm.Learner, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   learner.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: learner.Username,
		Email:    learner.Email,
		Name:     learner.Name,
	}
}

// GenerateToken generates a signed JWT token string representing the learner Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	jwtConf := newJWTConfig(conf)
	method := jwt.GetSigningMethod(jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (c Claims) learner() scorm.Learner {
	return scorm.Learner{
		ID:       c.Subject,
		Username: c.Username,
		Email:    c.Email,
		Name:     c.Name,
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextLearner(ctx echo.Context) (scorm.Learner, error) {
	if learner, ok := ctx.Get(contextLearnerKey).(scorm.Learner); ok {
		return learner, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return scorm.Learner{}, err
	}
	learner := claims.learner()
	if learner.ID == "" {
		return scorm.Learner{}, errUnauthorized
	}
	ctx.Set(contextLearnerKey, learner)
	return learner, nil
}
