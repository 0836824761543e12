// Package token issues and verifies the bearer tokens guarding run control.
package token

import (
	"errors"
	"time"

	"github.com/beka-birhanu/vinom-tiles/service/i"
	"github.com/dgrijalva/jwt-go"
)

const (
	ClaimIssuer   = "iss"
	ClaimIssuedAt = "iat"
	ClaimExpires  = "exp"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongIssuer   = errors.New("token issued by another service")
	ErrSigningMethod = errors.New("unexpected signing method")
)

// JwtService signs HS256 tokens and accepts only tokens carrying its own issuer.
// Implements i.Tokenizer.
type JwtService struct {
	secretKey []byte
	issuer    string
}

// NewJwtService creates a JwtService.
func NewJwtService(secretKey, issuer string) i.Tokenizer {
	return &JwtService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
	}
}

// Generate creates a token for the given claims. Reserved claims are always
// set by the service and override caller values.
func (s *JwtService) Generate(claims map[string]interface{}, expTime time.Duration) (string, error) {
	now := time.Now().UTC()
	jwtClaims := jwt.MapClaims{}
	for key, val := range claims {
		jwtClaims[key] = val
	}
	jwtClaims[ClaimIssuer] = s.issuer
	jwtClaims[ClaimIssuedAt] = now.Unix()
	jwtClaims[ClaimExpires] = now.Add(expTime).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims)
	return token.SignedString(s.secretKey)
}

// Decode validates signature, expiry and issuer, returning the claims.
func (s *JwtService) Decode(tokenString string) (map[string]interface{}, error) {
	token, err := jwt.Parse(tokenString, s.signingKey)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return nil, ErrWrongIssuer
	}

	return claims, nil
}

func (s *JwtService) signingKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrSigningMethod
	}
	return s.secretKey, nil
}
