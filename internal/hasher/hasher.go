// hasher реализует одностороннее хэширование паролей и их проверку.
//
// Дайджесты самоописывающие: алгоритм, параметры и соль хранятся в строке,
// поэтому Verify не зависит от текущей конфигурации и принимает любой из
// поддерживаемых форматов:
//
//	$pbkdf2-sha256$<rounds>$<salt>$<checksum>      (совместим с passlib)
//	$argon2id$v=19$m=<kb>,t=<n>,p=<n>$<salt>$<hash>
//	$2a$ / $2b$ / $2y$                               (bcrypt)
//
// Hasher не имеет изменяемого состояния и безопасен для конкурентного использования.
package hasher

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	"github.com/pribylovaa/account-auth/internal/config"
)

// Поддерживаемые алгоритмы (значения password.algorithm).
const (
	AlgPBKDF2SHA256 = "pbkdf2-sha256"
	AlgArgon2ID     = "argon2id"
	AlgBcrypt       = "bcrypt"
)

const (
	saltLength = 16
	keyLength  = 32

	minPBKDF2Iterations = 1000
	// maxPBKDF2Iterations ограничивает стоимость проверки чужого дайджеста.
	maxPBKDF2Iterations = 10_000_000
	minArgon2MemoryKB   = 1024
	maxArgon2MemoryKB   = 1024 * 1024

	// maxPasswordBytes ограничивает работу KDF на одном запросе.
	maxPasswordBytes = 1024
	// bcrypt учитывает не больше 72 байт пароля.
	maxBcryptPasswordBytes = 72
)

// ErrInvalidConfig — параметры хэширования вне допустимых границ.
var ErrInvalidConfig = errors.New("invalid password hasher config")

// ErrPasswordTooLong — пароль длиннее, чем принимает текущий алгоритм.
var ErrPasswordTooLong = errors.New("password too long")

// errMalformed — дайджест не разбирается; наружу не выходит, Verify возвращает false.
var errMalformed = errors.New("malformed digest")

// passlib использует base64 без паддинга с '.' вместо '+'.
var ab64 = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789./").WithPadding(base64.NoPadding)

// Hasher хэширует пароли выбранным алгоритмом и проверяет дайджесты любого
// поддерживаемого формата.
type Hasher struct {
	cfg   config.PasswordConfig
	dummy string
}

// New проверяет конфигурацию и создаёт Hasher.
func New(cfg config.PasswordConfig) (*Hasher, error) {
	const op = "hasher.New"

	switch cfg.Algorithm {
	case AlgPBKDF2SHA256:
		if cfg.PBKDF2Iterations < minPBKDF2Iterations || cfg.PBKDF2Iterations > maxPBKDF2Iterations {
			return nil, fmt.Errorf("%s: %w: pbkdf2 iterations %d", op, ErrInvalidConfig, cfg.PBKDF2Iterations)
		}
	case AlgArgon2ID:
		if cfg.Argon2MemoryKB < minArgon2MemoryKB || cfg.Argon2MemoryKB > maxArgon2MemoryKB ||
			cfg.Argon2Time < 1 || cfg.Argon2Parallelism < 1 {
			return nil, fmt.Errorf("%s: %w: argon2 parameters", op, ErrInvalidConfig)
		}
	case AlgBcrypt:
		if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("%s: %w: bcrypt cost %d", op, ErrInvalidConfig, cfg.BcryptCost)
		}
	default:
		return nil, fmt.Errorf("%s: %w: unknown algorithm %q", op, ErrInvalidConfig, cfg.Algorithm)
	}

	h := &Hasher{cfg: cfg}

	dummy, err := h.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	h.dummy = dummy

	return h, nil
}

// MaxPasswordBytes возвращает наибольшую длину пароля в байтах, которую
// принимает Hash при текущей конфигурации.
func (h *Hasher) MaxPasswordBytes() int {
	if h.cfg.Algorithm == AlgBcrypt {
		return maxBcryptPasswordBytes
	}

	return maxPasswordBytes
}

// Hash возвращает дайджест пароля со свежей случайной солью.
// Два вызова с одним паролем дают разные строки.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "hasher.Hash"

	if len(plain) > h.MaxPasswordBytes() {
		return "", fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}

	if h.cfg.Algorithm == AlgBcrypt {
		b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cfg.BcryptCost)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		return string(b), nil
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if h.cfg.Algorithm == AlgArgon2ID {
		key := argon2.IDKey([]byte(plain), salt, h.cfg.Argon2Time, h.cfg.Argon2MemoryKB, h.cfg.Argon2Parallelism, keyLength)

		return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
			AlgArgon2ID,
			argon2.Version,
			h.cfg.Argon2MemoryKB,
			h.cfg.Argon2Time,
			h.cfg.Argon2Parallelism,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(key),
		), nil
	}

	key := pbkdf2.Key([]byte(plain), salt, h.cfg.PBKDF2Iterations, keyLength, sha256.New)

	return fmt.Sprintf("$%s$%d$%s$%s",
		AlgPBKDF2SHA256,
		h.cfg.PBKDF2Iterations,
		ab64.EncodeToString(salt),
		ab64.EncodeToString(key),
	), nil
}

// Verify сообщает, соответствует ли пароль дайджесту.
// Для битого или неизвестного формата возвращает false, никогда не паникует.
func (h *Hasher) Verify(plain, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$"+AlgPBKDF2SHA256+"$"):
		p, err := parsePBKDF2(digest)
		if err != nil {
			return false
		}
		got := pbkdf2.Key([]byte(plain), p.salt, p.rounds, len(p.key), sha256.New)
		return subtle.ConstantTimeCompare(got, p.key) == 1

	case strings.HasPrefix(digest, "$"+AlgArgon2ID+"$"):
		p, err := parseArgon2(digest)
		if err != nil {
			return false
		}
		got := argon2.IDKey([]byte(plain), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
		return subtle.ConstantTimeCompare(got, p.key) == 1

	case isBcrypt(digest):
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
	}

	return false
}

// SimulateVerify тратит столько же работы, сколько Verify на дайджесте текущей
// конфигурации. Вызывается, когда аккаунт не найден.
func (h *Hasher) SimulateVerify(plain string) {
	_ = h.Verify(plain, h.dummy)
}

// NeedsRehash сообщает, что дайджест выпущен другим алгоритмом или более слабыми
// параметрами, чем текущая конфигурация. Неразборчивый дайджест не трогаем.
func (h *Hasher) NeedsRehash(digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$"+AlgPBKDF2SHA256+"$"):
		p, err := parsePBKDF2(digest)
		if err != nil {
			return false
		}
		return h.cfg.Algorithm != AlgPBKDF2SHA256 || p.rounds < h.cfg.PBKDF2Iterations

	case strings.HasPrefix(digest, "$"+AlgArgon2ID+"$"):
		p, err := parseArgon2(digest)
		if err != nil {
			return false
		}
		return h.cfg.Algorithm != AlgArgon2ID ||
			p.memory < h.cfg.Argon2MemoryKB ||
			p.time < h.cfg.Argon2Time ||
			p.parallelism < h.cfg.Argon2Parallelism

	case isBcrypt(digest):
		cost, err := bcrypt.Cost([]byte(digest))
		if err != nil {
			return false
		}
		return h.cfg.Algorithm != AlgBcrypt || cost < h.cfg.BcryptCost
	}

	return false
}

type pbkdf2Params struct {
	rounds int
	salt   []byte
	key    []byte
}

func parsePBKDF2(digest string) (*pbkdf2Params, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != AlgPBKDF2SHA256 {
		return nil, errMalformed
	}

	rounds, err := strconv.Atoi(parts[2])
	if err != nil || rounds < 1 || rounds > maxPBKDF2Iterations {
		return nil, errMalformed
	}

	salt, err := ab64.DecodeString(parts[3])
	if err != nil || len(salt) == 0 {
		return nil, errMalformed
	}

	key, err := ab64.DecodeString(parts[4])
	if err != nil || len(key) == 0 {
		return nil, errMalformed
	}

	return &pbkdf2Params{rounds: rounds, salt: salt, key: key}, nil
}

type argon2Params struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parseArgon2(digest string) (*argon2Params, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != AlgArgon2ID {
		return nil, errMalformed
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, errMalformed
	}

	var p argon2Params
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errMalformed
		}

		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, errMalformed
		}

		switch k {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			if n > 255 {
				return nil, errMalformed
			}
			p.parallelism = uint8(n)
		default:
			return nil, errMalformed
		}
	}

	if p.memory < minArgon2MemoryKB/8 || p.memory > maxArgon2MemoryKB || p.time < 1 || p.parallelism < 1 {
		return nil, errMalformed
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, errMalformed
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, errMalformed
	}

	p.salt, p.key = salt, key

	return &p, nil
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}
