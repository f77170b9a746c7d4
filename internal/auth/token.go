// Package auth issues and validates the bearer tokens used by the API.
// Tokens come in pairs: a short lived access token sent with every
// authenticated request and a longer lived refresh token that can only be
// exchanged for a new access token.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// ErrInvalidToken covers malformed, expired, wrongly signed and wrong-type tokens.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID    int64     `json:"user_id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Pair is the login response: both tokens for one user.
type Pair struct {
	Access  string
	Refresh string
}

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 5 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (i *Issuer) IssuePair(userID int64) (Pair, error) {
	access, err := i.issue(userID, AccessToken, i.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.issue(userID, RefreshToken, i.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) IssueAccess(userID int64) (string, error) {
	return i.issue(userID, AccessToken, i.accessTTL)
}

// Parse validates signature, expiry and token type.
func (i *Issuer) Parse(tokenString string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, want)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidToken)
	}
	return claims, nil
}

func (i *Issuer) issue(userID int64, typ TokenType, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:    userID,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}
