// Package secrets stores account passwords as argon2id PHC strings.
package secrets

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

const (
	Time             = 2
	MemoryMB         = 16
	Threads          = 1
	KeyLen           = 32
	SaltBytes        = 16
	DefaultMinLength = 6
)

var (
	ErrTooShort      = errors.New("password is too short")
	ErrMalformedHash = errors.New("malformed password hash")
)

// Passwords hashes and verifies account passwords. The pepper never reaches
// the database; changing it invalidates every stored hash.
type Passwords struct {
	pepper    []byte
	minLength int
}

// NewPasswords falls back to DefaultMinLength when minLength is not positive.
func NewPasswords(pepper string, minLength int) *Passwords {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Passwords{pepper: []byte(pepper), minLength: minLength}
}

func (p *Passwords) MinLength() int { return p.minLength }

// CheckLength counts characters, not bytes.
func (p *Passwords) CheckLength(password string) error {
	if utf8.RuneCountInString(password) < p.minLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrTooShort, p.minLength)
	}
	return nil
}

func (p *Passwords) Hash(password string) (string, error) {
	if err := p.CheckLength(password); err != nil {
		return "", err
	}
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey(p.peppered(password), salt, Time, MemoryMB*1024, Threads, KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, MemoryMB*1024, Time, Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches phc. The length policy is not
// applied so accounts created under a shorter minimum can still sign in.
func (p *Passwords) Verify(password, phc string) (bool, error) {
	h, err := parsePHC(phc)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey(p.peppered(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}

// peppered keys the password with an HMAC so pepper and password cannot
// be shifted into each other.
func (p *Passwords) peppered(password string) []byte {
	if len(p.pepper) == 0 {
		return []byte(password)
	}
	mac := hmac.New(sha256.New, p.pepper)
	mac.Write([]byte(password))
	return mac.Sum(nil)
}

type phcHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parsePHC(phc string) (*phcHash, error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, ErrMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	var m, t uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &threads); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if m == 0 || t == 0 || threads == 0 {
		return nil, fmt.Errorf("%w: zero cost parameter", ErrMalformedHash)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return &phcHash{memory: m, time: t, threads: threads, salt: salt, key: key}, nil
}
