package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const TokenTypeSession TokenType = "session"

type Claims struct {
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager signs the browser cookie that points at a server-side session.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager инициализирует менеджер токенов сессионной cookie.
func NewTokenManager(secret string, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// TTL returns the lifetime of a session cookie.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// NewSessionToken подписывает токен с идентификатором сессии в subject.
func (m *TokenManager) NewSessionToken(sessionID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		TokenType: TokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   sessionID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// ParseSessionToken валидирует токен и возвращает идентификатор сессии.
func (m *TokenManager) ParseSessionToken(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithIssuer(m.issuer))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	if !token.Valid {
		return uuid.Nil, errors.New("token is invalid")
	}

	if claims.TokenType != TokenTypeSession {
		return uuid.Nil, errors.New("token type mismatch")
	}

	sessionID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.New("invalid token subject")
	}

	return sessionID, nil
}
