package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2id parameters for new hashes.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Limits accepted when reading a stored hash, so a corrupted or hostile row
// cannot make a login allocate unbounded memory.
const (
	maxArgonTime    = 10
	maxArgonMemory  = 256 * 1024
	maxArgonThreads = 16
	minArgonSaltLen = 8
	minArgonKeyLen  = 16
	maxArgonKeyLen  = 64
)

const minPasswordLength = 8

var errUnsupportedHash = errors.New("unsupported password hash format")

// argonHash is a parsed $argon2id$ PHC string.
type argonHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h argonHash) String() string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads, b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func (h argonHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
}

// dummyHash has production parameters and matches no password. Verifying
// against it costs the same as a real check.
var dummyHash = argonHash{
	memory:  argonMemory,
	time:    argonTime,
	threads: argonThreads,
	salt:    []byte("taskhub-dummy-salt"),
	key:     make([]byte, argonKeyLen),
}.String()

// HashPassword hashes password with Argon2id and a random salt, returning a
// PHC string.
func HashPassword(password string) (string, error) {
	h := argonHash{memory: argonMemory, time: argonTime, threads: argonThreads, salt: make([]byte, argonSaltLen)}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// VerifyPassword checks a plaintext password against a stored hash. Argon2id
// PHC strings and bcrypt hashes carried over from earlier deployments are
// accepted; anything else is an error.
func VerifyPassword(password, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		h, err := parseArgonHash(encodedHash)
		if err != nil {
			return false, err
		}
		return subtle.ConstantTimeCompare(h.key, h.derive(password)) == 1, nil
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("comparing bcrypt hash: %w", err)
		}
		return true, nil
	default:
		return false, errUnsupportedHash
	}
}

// parseArgonHash reads "$argon2id$v=19$m=<kib>,t=<passes>,p=<lanes>$<salt>$<key>"
// and rejects parameters outside the accepted limits.
func parseArgonHash(encoded string) (argonHash, error) {
	var h argonHash
	fields := strings.Split(strings.TrimPrefix(encoded, "$argon2id$"), "$")
	if len(fields) != 4 {
		return h, fmt.Errorf("argon2id hash: want 4 fields after the algorithm, got %d", len(fields))
	}
	if fields[0] != fmt.Sprintf("v=%d", argon2.Version) {
		return h, fmt.Errorf("argon2id hash: unsupported version %q", fields[0])
	}

	params := map[string]uint64{}
	for _, kv := range strings.Split(fields[1], ",") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return h, fmt.Errorf("argon2id hash: malformed parameter %q", kv)
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return h, fmt.Errorf("argon2id hash: parameter %s: %w", key, err)
		}
		params[key] = n
	}
	m, t, p := params["m"], params["t"], params["p"]
	switch {
	case len(params) != 3:
		return h, errors.New("argon2id hash: want exactly m, t and p parameters")
	case t < 1 || t > maxArgonTime:
		return h, fmt.Errorf("argon2id hash: t=%d out of range", t)
	case p < 1 || p > maxArgonThreads:
		return h, fmt.Errorf("argon2id hash: p=%d out of range", p)
	case m < 8*p || m > maxArgonMemory:
		return h, fmt.Errorf("argon2id hash: m=%d out of range", m)
	}
	h.memory, h.time, h.threads = uint32(m), uint32(t), uint8(p)

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[2]); err != nil {
		return h, fmt.Errorf("argon2id hash: salt: %w", err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(fields[3]); err != nil {
		return h, fmt.Errorf("argon2id hash: key: %w", err)
	}
	if len(h.salt) < minArgonSaltLen {
		return h, errors.New("argon2id hash: salt too short")
	}
	if len(h.key) < minArgonKeyLen || len(h.key) > maxArgonKeyLen {
		return h, fmt.Errorf("argon2id hash: key length %d out of range", len(h.key))
	}
	return h, nil
}

// ValidatePassword enforces the registration password policy: at least eight
// characters with an upper-case letter, a lower-case letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: password must contain upper-case, lower-case and numeric characters", ErrInvalidInput)
	}
	return nil
}
