package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer is stamped into every token we mint and required on parse, so
// tokens minted by unrelated services sharing a secret are still rejected.
const tokenIssuer = "consignment-api"

const tokenTTL = 24 * time.Hour

var jwtSecret []byte

var (
	ErrNoSecret     = errors.New("JWT secret not set")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoEmpresa    = errors.New("token carries no empresa claim")
)

// SetSecret sets the JWT secret key (e.g., from config)
func SetSecret(secret string) {
	jwtSecret = []byte(secret)
}

// Enabled reports whether a secret was configured.
func Enabled() bool {
	return len(jwtSecret) > 0
}

// Claims represents the JWT payload
type Claims struct {
	Empresa string `json:"empresa"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT identifying the empresa.
func GenerateToken(empresa string) (string, error) {
	if !Enabled() {
		return "", ErrNoSecret
	}
	if empresa == "" {
		return "", ErrNoEmpresa
	}

	now := time.Now()
	claims := Claims{
		Empresa: empresa,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ValidateToken parses and verifies a JWT string. Only HS256 tokens minted
// by this service, unexpired and naming an empresa, are accepted.
func ValidateToken(tokenStr string) (*Claims, error) {
	if !Enabled() {
		return nil, ErrNoSecret
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return jwtSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if claims.Empresa == "" {
		return nil, ErrNoEmpresa
	}
	return claims, nil
}
