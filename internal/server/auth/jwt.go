package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the account attributes the
// file service needs.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user"`
	Permanent   bool     `json:"permanent,omitempty"`
	PersistAll  bool     `json:"persistAll,omitempty"`
	DefaultTags []string `json:"defaultTags,omitempty"`
}

// GenerateToken signs a token for p. A zero validity issues a token without
// expiry, which is how permanent credentials are minted.
func GenerateToken(p models.Principal, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Subject:  p.UserID,
		},
		UserID:      p.UserID,
		Permanent:   p.Permanent,
		PersistAll:  p.PersistAll,
		DefaultTags: p.DefaultTags,
	}
	if validityDuration != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(validityDuration))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates tokenString and returns the principal it names.
func ParseToken(tokenString string, secretKey []byte) (*models.Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return &models.Principal{
		UserID:      claims.UserID,
		Permanent:   claims.Permanent,
		PersistAll:  claims.PersistAll,
		DefaultTags: claims.DefaultTags,
	}, nil
}
