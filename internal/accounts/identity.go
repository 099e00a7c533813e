package accounts

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/argon2"
)

// UserID derives the stored id of a username: the Java String.hashCode of
// the lowercased name, reduced to abs(h % 100000). Existing rows depend on
// this exact value. With 100,000 buckets distinct usernames can collide, so
// it is an index, not an identifier with any security property.
func UserID(username string) string {
	h := stringHash(strings.ToLower(username)) % 100000
	if h < 0 {
		h = -h
	}
	return strconv.Itoa(int(h))
}

// stringHash is s[0]*31^(n-1) + ... + s[n-1] over UTF-16 code units,
// wrapping at 32 bits.
func stringHash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(c)
	}
	return h
}

// PasswordScheme selects how new pass_hash values are computed.
type PasswordScheme string

const (
	// SchemeMD5 is hex(md5(username + password)), the legacy format.
	SchemeMD5 PasswordScheme = "md5"
	// SchemeArgon2id is a 16-byte argon2id key salted with the username,
	// hex encoded to fit the same 32-character column.
	SchemeArgon2id PasswordScheme = "argon2id"
)

// Hasher computes and checks pass_hash values.
type Hasher struct {
	Scheme PasswordScheme
}

// Hash returns the pass_hash for a lowercased username and password.
func (h Hasher) Hash(username, password string) string {
	if h.Scheme == SchemeArgon2id {
		return argon2Hash(username, password)
	}
	return md5Hash(username, password)
}

// Verify accepts a stored hash in either scheme, so accounts created before
// a scheme switch keep working.
func (h Hasher) Verify(username, password, stored string) bool {
	for _, candidate := range []string{md5Hash(username, password), argon2Hash(username, password)} {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(stored)) == 1 {
			return true
		}
	}
	return false
}

func md5Hash(username, password string) string {
	sum := md5.Sum([]byte(username + password))
	return hex.EncodeToString(sum[:])
}

func argon2Hash(username, password string) string {
	key := argon2.IDKey([]byte(password), []byte("clinic:"+username), 1, 64*1024, 2, 16)
	return hex.EncodeToString(key)
}
