package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashRefresh returns the salted hash stored for a refresh token.
func HashRefresh(raw string, cost int) (string, error) {
	return HashPassword(HashRefreshRaw(raw), cost)
}

// VerifyRefresh compares a candidate refresh token with a stored hash by
// re-hashing it; the stored value is never compared for equality.
func VerifyRefresh(hash, raw string) bool {
	return VerifyPassword(hash, HashRefreshRaw(raw))
}
