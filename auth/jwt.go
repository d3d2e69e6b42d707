package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes.
const (
	PurposeSession = "session"
	PurposeReset   = "reset"
)

// Token lifetimes.
const (
	SessionTTL = 30 * 24 * time.Hour
	ResetTTL   = time.Hour
)

type claims struct {
	Purpose string `json:"typ"`
	// Stamp ties reset tokens to the password hash they were issued against.
	Stamp string `json:"stp,omitempty"`
	jwt.RegisteredClaims
}

type JWT struct {
	secret []byte
	now    func() time.Time
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret), now: time.Now}
}

func (j *JWT) Sign(userID, purpose, stamp string, ttl time.Duration) (string, error) {
	now := j.now()
	c := claims{
		Purpose: purpose,
		Stamp:   stamp,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(j.secret)
}

// Verify returns the subject and stamp of a valid token issued for purpose.
func (j *JWT) Verify(tokenStr, purpose string) (string, string, error) {
	var c claims
	t, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil || !t.Valid {
		return "", "", ErrInvalidToken
	}
	if c.Purpose != purpose {
		return "", "", ErrInvalidToken
	}
	if c.Subject == "" {
		return "", "", ErrInvalidToken
	}
	return c.Subject, c.Stamp, nil
}
