package security

import "golang.org/x/crypto/bcrypt"

// Cost matches the hashes already stored by earlier deployments.
const Cost = 10

// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected, not truncated.
const MaxPasswordBytes = 72

// Hash password hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
