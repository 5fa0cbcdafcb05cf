package auth

import (
	"ephemeral-chat/contract"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "ephemeral-chat"

// Claims defines the structure of the data stored inside the JWT.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTAuthenticator validates HS256 tokens issued by the identity provider
// and yields the user id they carry.
type JWTAuthenticator struct {
	secret []byte
	now    func() time.Time
}

var _ contract.Authenticator = (*JWTAuthenticator)(nil)

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), now: time.Now}
}

// GenerateToken signs a token for userID. The server never issues tokens on
// its own; this is used by the tester CLI, the listener client and tests.
func (a *JWTAuthenticator) GenerateToken(userID string, duration time.Duration) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate parses and validates the signature and expiration of a token.
// The user id claim must be a canonical UUID.
func (a *JWTAuthenticator) Authenticate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: %v", errors.ErrUnauthenticated, jwt.ErrSignatureInvalid)
	}
	if err = chat.ValidateUserID(claims.UserID); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	return claims.UserID, nil
}
