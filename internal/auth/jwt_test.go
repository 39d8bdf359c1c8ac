package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func setTestSecret(t *testing.T, secret string) {
	t.Helper()
	SetSecret(secret)
	t.Cleanup(func() { SetSecret("") })
}

// signTestToken mints a token outside GenerateToken so validation rules can
// be probed one at a time.
func signTestToken(t *testing.T, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(jwtSecret)
	require.NoError(t, err)
	return signed
}

func TestGenerateAndValidateRoundTrip(t *testing.T) {
	setTestSecret(t, "test-secret")

	token, err := GenerateToken("acme")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "acme", claims.Empresa)
	require.Equal(t, tokenIssuer, claims.Issuer)
	require.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestGenerateTokenRequirements(t *testing.T) {
	_, err := GenerateToken("acme")
	require.ErrorIs(t, err, ErrNoSecret)

	setTestSecret(t, "test-secret")
	_, err = GenerateToken("")
	require.ErrorIs(t, err, ErrNoEmpresa)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	setTestSecret(t, "first-secret")
	token, err := GenerateToken("acme")
	require.NoError(t, err)

	SetSecret("second-secret")
	_, err = ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsForeignAlgorithm(t *testing.T) {
	setTestSecret(t, "test-secret")

	claims := Claims{
		Empresa: "acme",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := signTestToken(t, jwt.SigningMethodHS512, claims)

	_, err := ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsForeignIssuer(t *testing.T) {
	setTestSecret(t, "test-secret")

	claims := Claims{
		Empresa: "acme",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "some-other-service",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := signTestToken(t, jwt.SigningMethodHS256, claims)

	_, err := ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	setTestSecret(t, "test-secret")

	claims := Claims{
		Empresa: "acme",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token := signTestToken(t, jwt.SigningMethodHS256, claims)

	_, err := ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRequiresExpiration(t *testing.T) {
	setTestSecret(t, "test-secret")

	claims := Claims{
		Empresa:          "acme",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
	}
	token := signTestToken(t, jwt.SigningMethodHS256, claims)

	_, err := ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRequiresEmpresa(t *testing.T) {
	setTestSecret(t, "test-secret")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := signTestToken(t, jwt.SigningMethodHS256, claims)

	_, err := ValidateToken(token)
	require.ErrorIs(t, err, ErrNoEmpresa)
}
