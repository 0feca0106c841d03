package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const saltChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var ErrMalformedCredential = errors.New("malformed credential")

// Hasher derives credentials of the form
//
//	pbkdf2:sha256:<iterations>$<salt>$<hex digest>
//
// which is also what werkzeug writes, so existing databases verify unchanged.
type Hasher struct {
	Iterations int
	SaltLength int
}

var DefaultHasher = Hasher{Iterations: 600000, SaltLength: 16}

// Hash returns a fresh salted credential for password.
func (h Hasher) Hash(password string) (string, error) {
	if h.Iterations < 1 {
		h.Iterations = DefaultHasher.Iterations
	}
	if h.SaltLength < 1 {
		h.SaltLength = DefaultHasher.SaltLength
	}
	salt, err := randomSalt(h.SaltLength)
	if err != nil {
		return "", err
	}
	digest := derive(password, salt, h.Iterations)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", h.Iterations, salt, digest), nil
}

// Verify reports whether password matches credential. Malformed or
// unsupported credentials never match.
func (h Hasher) Verify(password, credential string) bool {
	iterations, salt, digest, err := parseCredential(credential)
	if err != nil {
		return false
	}
	want := derive(password, salt, iterations)
	return subtle.ConstantTimeCompare([]byte(want), []byte(digest)) == 1
}

func derive(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return hex.EncodeToString(key)
}

func parseCredential(credential string) (int, string, string, error) {
	parts := strings.SplitN(credential, "$", 3)
	if len(parts) != 3 {
		return 0, "", "", ErrMalformedCredential
	}
	method := strings.Split(parts[0], ":")
	if len(method) != 3 || method[0] != "pbkdf2" || method[1] != "sha256" {
		return 0, "", "", fmt.Errorf("%w: unsupported method %q", ErrMalformedCredential, parts[0])
	}
	iterations, err := strconv.Atoi(method[2])
	if err != nil || iterations < 1 {
		return 0, "", "", fmt.Errorf("%w: bad iteration count", ErrMalformedCredential)
	}
	return iterations, parts[1], parts[2], nil
}

func randomSalt(n int) (string, error) {
	limit := big.NewInt(int64(len(saltChars)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = saltChars[idx.Int64()]
	}
	return string(b), nil
}
