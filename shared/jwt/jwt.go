package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/domain"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/itchan-dev/modpolicy/shared/logger"
)

// Subject is what an access token asserts about its bearer. The role is a hint for
// routing; policy operations re-check it against storage.
type Subject struct {
	AccountId domain.AccountId
	MemberId  domain.MemberId
	Role      domain.Role
}

type Claims struct {
	MemberId string `json:"mid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type JwtService interface {
	NewToken(subject Subject) (string, time.Time, error)
	DecodeToken(jwtStr string) (Subject, error)
}

type Jwt struct {
	secretKey string
	ttl       time.Duration
	now       func() time.Time
}

func New(secretKey string, ttl time.Duration) *Jwt {
	return &Jwt{secretKey: secretKey, ttl: ttl, now: time.Now}
}

func (j *Jwt) NewToken(subject Subject) (string, time.Time, error) {
	issuedAt := j.now()
	expires := issuedAt.Add(j.ttl)
	claims := Claims{
		MemberId: subject.MemberId.String(),
		Role:     string(subject.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.AccountId.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		logger.Log.Error("failed to sign token", "error", err)
		return "", time.Time{}, errors.New("Can't create token")
	}

	return tokenString, expires, nil
}

func (j *Jwt) DecodeToken(jwtStr string) (Subject, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(jwtStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.secretKey), nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Subject{}, &internal_errors.ErrorWithStatusCode{Message: "Access token expired", StatusCode: http.StatusUnauthorized}
		}
		return Subject{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid token signature", StatusCode: http.StatusUnauthorized}
	}
	if !token.Valid {
		return Subject{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	accountId, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Subject{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}
	memberId, err := uuid.Parse(claims.MemberId)
	if err != nil {
		return Subject{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return Subject{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	return Subject{AccountId: accountId, MemberId: memberId, Role: role}, nil
}
