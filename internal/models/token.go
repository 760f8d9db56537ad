package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenType — тип токена, зашитый в claim "type".
type TokenType string

const (
	// TokenAccess — короткоживущий токен доступа к ресурсам.
	TokenAccess TokenType = "access"
	// TokenRefresh — долгоживущий токен, пригодный только для выпуска новой пары.
	TokenRefresh TokenType = "refresh"
)

// Valid сообщает, известен ли тип.
func (t TokenType) Valid() bool {
	return t == TokenAccess || t == TokenRefresh
}

// Claims — проверенный набор утверждений токена.
type Claims struct {
	// Subject — идентификатор аккаунта.
	Subject uuid.UUID
	Type    TokenType
	// ID — уникальный идентификатор токена (jti).
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair — пара токенов, выдаваемая при логине и ротации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для запросов к API (Bearer);
//   - RefreshToken — долгоживущий JWT, доставляется также через http-only cookie;
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
