package mock

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errStaleToken = errors.New("token generation expired")

// createJWT creates a signed access token for subject bound to the current generation.
func (m *AuthenticationService) createJWT(subject string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": m.Issuer,
		"sub": subject,
		"exp": now.Add(m.AccessTTL).Unix(),
		"iat": now.Unix(),
		"jti": uuid.NewString(),
		"gen": m.generation.Load(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.Secret)
}

// verifyJWT returns the subject of a valid access token.
func (m *AuthenticationService) verifyJWT(raw string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return m.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(m.Issuer))
	if err != nil {
		return "", err
	}
	gen, _ := claims["gen"].(float64)
	if int64(gen) != m.generation.Load() {
		return "", errStaleToken
	}
	return claims.GetSubject()
}

// issueRefresh registers a new opaque refresh token for subject.
func (m *AuthenticationService) issueRefresh(subject string) string {
	token := uuid.NewString()
	m.refreshTokens.Put(token, subject)
	return token
}
