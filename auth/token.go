// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidFormat = errors.New("invalid authorization header")
	ErrInvalidRole   = errors.New("invalid role")
	ErrNoSecret      = errors.New("token secret is not configured")
)

// Claims is the JWT payload identifying a caller
type Claims struct {
	Roles []Role `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 caller tokens
type TokenService struct {
	now    func() time.Time
	issuer string
	secret []byte
}

// NewTokenService returns a token service. A nil clock uses time.Now
func NewTokenService(
	secret []byte,
	issuer string,
	now func() time.Time,
) *TokenService {
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		secret: secret,
		issuer: issuer,
		now:    now,
	}
}

// Issue signs a token for the caller valid for ttl. A zero ttl issues a
// token without expiry
func (s *TokenService) Issue(caller Caller, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	if caller.Key == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	for _, role := range caller.Roles {
		if !role.Valid() {
			return "", fmt.Errorf("%w: %s", ErrInvalidRole, role)
		}
	}
	now := s.now()
	claims := &Claims{
		Roles: caller.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   caller.Key,
			ID:        uuid.New().String(),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns the caller it identifies
func (s *TokenService) Verify(tokenString string) (Caller, error) {
	if len(s.secret) == 0 {
		return Caller{}, ErrNoSecret
	}
	if tokenString == "" {
		return Caller{}, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Caller{}, ErrExpiredToken
		}
		return Caller{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Caller{}, ErrInvalidToken
	}
	for _, role := range claims.Roles {
		if !role.Valid() {
			return Caller{}, fmt.Errorf("%w: %s", ErrInvalidRole, role)
		}
	}
	return Caller{Key: claims.Subject, Roles: claims.Roles}, nil
}

// ExtractBearerToken returns the token from an Authorization header value
func ExtractBearerToken(authHeader string) (string, error) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrInvalidFormat
	}
	return strings.TrimSpace(token), nil
}

// ParseRoles converts role names to roles
func ParseRoles(names []string) ([]Role, error) {
	ret := make([]Role, 0, len(names))
	for _, name := range names {
		role := Role(strings.ToLower(strings.TrimSpace(name)))
		if !role.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, name)
		}
		ret = append(ret, role)
	}
	return ret, nil
}
