package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Signer issues and checks HS256 tokens. Every token carries a fresh jti that
// names its server-side session.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{key: []byte(secret), ttl: ttl, now: time.Now}
}

// Token is a signed JWT together with the session it opens.
type Token struct {
	Raw       string
	JTI       string
	ExpiresAt time.Time
}

func (s *Signer) Sign(userID string, roles []string) (Token, error) {
	now := s.now()
	tok := Token{JTI: uuid.NewString(), ExpiresAt: now.Add(s.ttl)}
	claims := jwt.MapClaims{
		"sub":   userID,
		"roles": roles,
		"jti":   tok.JTI,
		"exp":   tok.ExpiresAt.Unix(),
		"iat":   now.Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return Token{}, err
	}
	tok.Raw = raw
	return tok, nil
}

func (s *Signer) Verify(tokenStr string) (Claims, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mapc["sub"].(string)
	jti, _ := mapc["jti"].(string)
	if sub == "" || jti == "" {
		return Claims{}, ErrInvalidToken
	}
	var roles []string
	if arr, ok := mapc["roles"].([]any); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	return Claims{Subject: sub, JWTID: jti, Roles: roles}, nil
}
