// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// tokenIssuer is stamped into every decryption token and required on parse.
const tokenIssuer = "vitalis-vault"

// HKDF info labels. Each one yields an independent key from the same token secret.
var (
	infoSigning = []byte("vitalis/decryption-token/signing")
	infoWrap    = []byte("vitalis/decryption-token/key-wrap")
)

// ErrInvalidToken covers every reason a decryption token is refused.
var ErrInvalidToken = errors.New("sec: invalid decryption token")

// ReportClaims is the payload of a decryption token.
//
// The derived report key travels inside the token, sealed under a server-held
// wrap key, so a leaked token is useless without the server and the server
// does not need to look anything up to honour it.
type ReportClaims struct {
	jwt.RegisteredClaims

	// WrappedKey is base64(AES-GCM(wrapKey, reportKey)).
	WrappedKey string `json:"wk"`
}

// TokenService issues and opens HS256 decryption tokens.
type TokenService struct {
	signingKey []byte
	wrapKey    []byte
	now        func() time.Time
}

// NewTokenService derives the signing and wrap keys from secret using HKDF-SHA256.
func NewTokenService(secret string) (*TokenService, error) {
	signingKey, err := expand([]byte(secret), infoSigning)
	if err != nil {
		return nil, err
	}
	wrapKey, err := expand([]byte(secret), infoWrap)
	if err != nil {
		return nil, err
	}

	return &TokenService{
		signingKey: signingKey,
		wrapKey:    wrapKey,
		now:        time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and validating tokens.
func (service *TokenService) WithClock(now func() time.Time) *TokenService {
	service.now = now
	return service
}

// Issue wraps reportKey and signs a token that expires after timeToLive.
func (service *TokenService) Issue(reportKey []byte, reportID string, timeToLive time.Duration) (string, error) {
	wrapped, err := Encrypt(service.wrapKey, reportKey)
	if err != nil {
		return "", fmt.Errorf("sec: wrapping report key: %w", err)
	}

	currentTime := service.now()
	claims := ReportClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        reportID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		WrappedKey: base64.RawURLEncoding.EncodeToString(wrapped),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(service.signingKey)
	if err != nil {
		return "", fmt.Errorf("sec: signing token: %w", err)
	}
	return signed, nil
}

// Open verifies tokenString and returns the unwrapped report key and report id.
// Any failure, including expiry, returns [ErrInvalidToken].
func (service *TokenService) Open(tokenString string) ([]byte, string, error) {
	claims := &ReportClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return service.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	wrapped, err := base64.RawURLEncoding.DecodeString(claims.WrappedKey)
	if err != nil {
		return nil, "", ErrInvalidToken
	}

	reportKey, err := Decrypt(service.wrapKey, wrapped)
	if err != nil {
		return nil, "", ErrInvalidToken
	}
	return reportKey, claims.ID, nil
}

func expand(secret, info []byte) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, info), key); err != nil {
		return nil, fmt.Errorf("sec: deriving token key: %w", err)
	}
	return key, nil
}
