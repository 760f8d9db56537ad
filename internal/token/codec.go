// token выпускает и проверяет подписанные JWT с типом (access/refresh).
//
// Проверка stateless: подпись, срок и структура проверяются без обращения к
// хранилищу. Какой тип допустим в конкретном месте, решает вызывающий код.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/account-auth/internal/config"
	"github.com/pribylovaa/account-auth/internal/models"
)

var (
	// ErrTokenMalformed — токен не разбирается, либо набор утверждений неполон
	// или не соответствует ожиданиям (тип, subject, issuer).
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenSignature — подпись не сходится или алгоритм не тот.
	ErrTokenSignature = errors.New("token signature invalid")

	// ErrTokenExpired — срок действия истёк.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidConfig — конфигурация подписи некорректна.
	ErrInvalidConfig = errors.New("invalid token config")
)

var signingMethods = map[string]*jwt.SigningMethodHMAC{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

// claims — формат полезной нагрузки на проводе.
type claims struct {
	Type models.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Codec подписывает и проверяет токены общим секретом.
type Codec struct {
	secret     []byte
	method     *jwt.SigningMethodHMAC
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
	now        func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (для выпуска и проверки).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New создаёт Codec из конфигурации auth.
func New(cfg config.AuthConfig, opts ...Option) (*Codec, error) {
	const op = "token.New"

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s: %w: empty secret", op, ErrInvalidConfig)
	}

	method, ok := signingMethods[cfg.Algorithm]
	if !ok {
		return nil, fmt.Errorf("%s: %w: unsupported algorithm %q", op, ErrInvalidConfig, cfg.Algorithm)
	}

	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("%s: %w: ttl must be positive", op, ErrInvalidConfig)
	}

	if cfg.Leeway < 0 {
		return nil, fmt.Errorf("%s: %w: negative leeway", op, ErrInvalidConfig)
	}

	c := &Codec{
		secret:     []byte(cfg.JWTSecret),
		method:     method,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		leeway:     cfg.Leeway,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// AccessTTL возвращает срок жизни access-токена.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL возвращает срок жизни refresh-токена.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue выпускает токен типа typ для subject; срок не раньше now+ttl.
// Возвращает подписанную строку и зашитые в неё утверждения.
func (c *Codec) Issue(subject uuid.UUID, typ models.TokenType, ttl time.Duration) (string, *models.Claims, error) {
	const op = "token.Issue"

	if !typ.Valid() {
		return "", nil, fmt.Errorf("%s: unknown token type %q", op, typ)
	}

	if ttl <= 0 {
		return "", nil, fmt.Errorf("%s: non-positive ttl", op)
	}

	now := c.now().UTC()
	jti := uuid.NewString()

	// exp хранится в целых секундах: округляем вверх, чтобы токен не истекал раньше ttl.
	exp := now.Add(ttl)
	if trunc := exp.Truncate(time.Second); trunc.Before(exp) {
		exp = trunc.Add(time.Second)
	}

	cl := claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject.String(),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, cl).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	return signed, &models.Claims{
		Subject:   subject,
		Type:      typ,
		ID:        jti,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

// IssuePair выпускает access и refresh токены с настроенными сроками.
// Вторым значением возвращаются утверждения refresh-токена (нужен его jti).
func (c *Codec) IssuePair(subject uuid.UUID) (*models.TokenPair, *models.Claims, error) {
	const op = "token.IssuePair"

	access, accessClaims, err := c.Issue(subject, models.TokenAccess, c.accessTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, refreshClaims, err := c.Issue(subject, models.TokenRefresh, c.refreshTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt,
		RefreshExpiresAt: refreshClaims.ExpiresAt,
	}, refreshClaims, nil
}

// Verify проверяет подпись, срок и структуру токена.
// Любая ошибка разбора сводится к одной из ErrTokenMalformed/ErrTokenSignature/
// ErrTokenExpired; паник и «сырых» ошибок библиотеки наружу нет.
func (c *Codec) Verify(tokenStr string) (*models.Claims, error) {
	const op = "token.Verify"

	var cl claims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &cl, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	if !tok.Valid || !cl.Type.Valid() || cl.ExpiresAt == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenMalformed)
	}

	sub, err := uuid.Parse(cl.Subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenMalformed)
	}

	out := &models.Claims{
		Subject:   sub,
		Type:      cl.Type,
		ID:        cl.ID,
		ExpiresAt: cl.ExpiresAt.Time,
	}
	if cl.IssuedAt != nil {
		out.IssuedAt = cl.IssuedAt.Time
	}

	return out, nil
}

// classify переводит ошибку jwt в один из трёх видов отказа.
// Подпись проверяется раньше срока, поэтому подделанный просроченный токен
// классифицируется как ErrTokenSignature.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
