package utils

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ParseJWT validates an HMAC-signed bearer token
func ParseJWT(tokenStr, jwtSecret string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		// Ensure it's HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, NewAuthError("INVALID_SIGNING_METHOD", "unexpected JWT signing method", errors.New("expected HMAC signing method"))
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, NewAuthError("TOKEN_PARSE_FAILED", "failed to parse JWT token", err)
	}

	if !token.Valid {
		return nil, NewAuthError("INVALID_TOKEN", "JWT token is invalid", ErrInvalidToken)
	}

	return token, nil
}

// ParseTeamIDFromJWT extracts the team_id claim carried by dashboard tokens
func ParseTeamIDFromJWT(tokenStr, jwtSecret string) (int, error) {
	token, err := ParseJWT(tokenStr, jwtSecret)
	if err != nil {
		return 0, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		if tid, ok := claims["team_id"].(float64); ok {
			return int(tid), nil
		}
		return 0, NewDataError("TEAM_ID_NOT_FOUND", "team_id claim not found in token", ErrInvalidClaims)
	}

	return 0, NewDataError("INVALID_CLAIMS", "failed to extract claims from JWT token", ErrInvalidClaims)
}
