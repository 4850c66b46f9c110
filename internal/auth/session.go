// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
)

// privateKey and publicKey sign and verify identity tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long an issued token stays valid; 0 means no exp claim.
	tokenTTL time.Duration
)

// ErrNotInitialized is returned when tokens are used before Init.
var ErrNotInitialized = errors.New("auth keys are not initialized")

// ParseExpireTime interprets TOKEN_EXPIRE_TIME: "", "0" and "never" disable expiry,
// anything else is a Go duration.
func ParseExpireTime(v string) (time.Duration, error) {
	if v == "" || v == "0" || v == "never" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time %q: %w", v, err)
	}
	return d, nil
}

// Init generates a fresh ed25519 key pair. Tokens issued before a restart stop
// verifying, which only demotes their holders to guests.
func Init(ttl time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	publicKey, privateKey, tokenTTL = pub, priv, ttl
	return nil
}

// InitFromPath reads raw ed25519 keys from disk.
func InitFromPath(privatePath, publicPath string, ttl time.Duration) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("ed25519 key files have the wrong size")
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenTTL = ttl
	return nil
}

// CreateJWT signs a token carrying "sub" = user id and "name" = display name.
func CreateJWT(id models.Identity) (string, error) {
	if privateKey == nil {
		return "", ErrNotInitialized
	}
	claims := jwt.MapClaims{
		"sub":  id.UserID.String(),
		"name": id.DisplayName,
	}
	if tokenTTL > 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a token and returns the registered identity it asserts.
func AuthenticateJWT(tokenString string) (models.Identity, error) {
	if publicKey == nil {
		return models.Identity{}, ErrNotInitialized
	}

	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("jwt parse error: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return models.Identity{}, fmt.Errorf("invalid jwt claims")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return models.Identity{}, fmt.Errorf("invalid sub in jwt: %w", err)
	}
	name, _ := claims["name"].(string)
	if name == "" {
		name = "Player-" + sub[:8]
	}

	return models.Identity{UserID: userID, DisplayName: name, IsRegistered: true}, nil
}
