package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	return string(bytes), err
}

func CheckSecretHash(secret, hash string) bool {
	if secret == "" || hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}

// GenerateJWT signs an HS256 token carrying the claims read by middleware.Authenticate.
func GenerateJWT(secret []byte, userID int, role string, ttl time.Duration) (string, error) {
	return signToken(secret, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
	}, ttl)
}

// GenerateRatedJWT also signs the player's rating, which registration reads
// instead of trusting the request body.
func GenerateRatedJWT(secret []byte, userID int, role string, eloRating int, ttl time.Duration) (string, error) {
	return signToken(secret, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"elo":     eloRating,
	}, ttl)
}

func signToken(secret []byte, claims jwt.MapClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
