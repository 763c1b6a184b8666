package security

import (
	"errors"
	"time"

	"trustpay/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and verifies HS256 bearer tokens. Constructed once
// in main and injected, so nothing reads signing material ambiently.
type TokenService struct {
	auth   *jwtauth.JWTAuth
	expiry time.Duration
}

func NewTokenService(secret []byte, expiry time.Duration) *TokenService {
	return &TokenService{
		auth:   jwtauth.New("HS256", secret, nil),
		expiry: expiry,
	}
}

// Auth exposes the verifier for the router's jwtauth middleware.
func (s *TokenService) Auth() *jwtauth.JWTAuth {
	return s.auth
}

func (s *TokenService) GenerateToken(identity model.Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": identity.UserID,
		"email":   identity.Email,
		"role":    string(identity.Role),
		"exp":     now.Add(s.expiry).Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := s.auth.Encode(claims)
	return tokenString, err
}

// IdentityFromClaims rebuilds the caller identity from verified claims.
func IdentityFromClaims(claims jwt.MapClaims) (model.Identity, error) {
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return model.Identity{}, errors.New("user_id claim is missing or not a string")
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return model.Identity{}, errors.New("email claim is missing or not a string")
	}
	roleStr, ok := claims["role"].(string)
	if !ok {
		return model.Identity{}, errors.New("role claim is missing or not a string")
	}
	role, err := model.ParseRole(roleStr)
	if err != nil {
		return model.Identity{}, err
	}
	return model.Identity{UserID: userID, Email: email, Role: role}, nil
}
