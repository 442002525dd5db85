package auth

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt cost for new hashes. Tests lower it.
var PasswordCost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword reports whether candidate matches hash.
func ComparePassword(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}
