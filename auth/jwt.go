package auth

import (
	"alpha-qms/internal/config"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateAccessToken issues a short-lived access token bound to the
// user's current token version
func GenerateAccessToken(userID uint64, tokenVersion uint64) (string, error) {
	claims := jwt.MapClaims{
		"user_id":       userID,
		"token_version": tokenVersion,
		"exp":           time.Now().Add(15 * time.Minute).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// GenerateRefreshToken issues a long-lived refresh token
func GenerateRefreshToken(userID uint64, tokenVersion uint64) (string, error) {
	claims := jwt.MapClaims{
		"user_id":       userID,
		"token_version": tokenVersion,
		"exp":           time.Now().Add(7 * 24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	// parse token
	jwtToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if !jwtToken.Valid {
		return nil, errors.New("token invalid")
	}

	return jwtToken, nil
}

// GetDataFromToken extracts the user id and token version from a parsed token
func GetDataFromToken(token *jwt.Token) (uint64, uint64, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, 0, errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, 0, errors.New("user_id not found in token")
	}

	tokenVersion, ok := claims["token_version"].(float64)
	if !ok {
		return 0, 0, errors.New("token_version not found in token")
	}

	return uint64(userID), uint64(tokenVersion), nil
}
