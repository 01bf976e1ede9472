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

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/certledger/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallerRoles(t *testing.T) {
	issuer := auth.NewCaller("uni", auth.RoleIssuer)
	assert.True(t, issuer.Has(auth.RoleIssuer))
	assert.False(t, issuer.Has(auth.RoleSponsor))
	assert.False(t, issuer.IsAdmin())

	admin := auth.NewCaller("root", auth.RoleAdmin)
	for _, role := range auth.AllRoles {
		assert.True(t, admin.Has(role), "admin should imply %s", role)
	}

	anon := auth.NewCaller("", auth.RoleAdmin)
	assert.True(t, anon.Anonymous())
	assert.False(t, anon.Has(auth.RoleAdmin))
}

func TestCallerContext(t *testing.T) {
	ctx := context.Background()
	assert.True(t, auth.CallerFromContext(ctx).Anonymous())
	caller := auth.NewCaller("alice", auth.RoleSponsor)
	ctx = auth.WithCaller(ctx, caller)
	assert.Equal(t, caller, auth.CallerFromContext(ctx))
}

func TestTokenRoundTrip(t *testing.T) {
	svc := auth.NewTokenService([]byte("s3cret"), "certledger", nil)
	caller := auth.NewCaller("uni-registrar", auth.RoleRegistrar, auth.RoleIssuer)
	token, err := svc.Issue(caller, time.Hour)
	require.NoError(t, err)
	got, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, caller, got)
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := auth.NewTokenService([]byte("s3cret"), "certledger", clock)
	token, err := svc.Issue(auth.NewCaller("alice"), time.Minute)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestTokenRejected(t *testing.T) {
	svc := auth.NewTokenService([]byte("s3cret"), "certledger", nil)
	token, err := svc.Issue(auth.NewCaller("alice"), 0)
	require.NoError(t, err)

	other := auth.NewTokenService([]byte("other"), "certledger", nil)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	wrongIssuer := auth.NewTokenService([]byte("s3cret"), "elsewhere", nil)
	_, err = wrongIssuer.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// Tokens signed with another algorithm are refused
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(none)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = svc.Verify("")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestIssueValidation(t *testing.T) {
	svc := auth.NewTokenService([]byte("s3cret"), "", nil)
	_, err := svc.Issue(auth.NewCaller(""), time.Hour)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = svc.Issue(auth.NewCaller("alice", "wizard"), time.Hour)
	assert.ErrorIs(t, err, auth.ErrInvalidRole)

	empty := auth.NewTokenService(nil, "", nil)
	_, err = empty.Issue(auth.NewCaller("alice"), time.Hour)
	assert.ErrorIs(t, err, auth.ErrNoSecret)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := auth.ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)
	for _, header := range []string{"", "abc.def", "Bearer ", "Basic abc"} {
		_, err := auth.ExtractBearerToken(header)
		assert.ErrorIs(t, err, auth.ErrInvalidFormat, header)
	}
}

func TestParseRoles(t *testing.T) {
	roles, err := auth.ParseRoles([]string{"Admin", " issuer "})
	require.NoError(t, err)
	assert.Equal(t, []auth.Role{auth.RoleAdmin, auth.RoleIssuer}, roles)
	_, err = auth.ParseRoles([]string{"student"})
	assert.ErrorIs(t, err, auth.ErrInvalidRole)
}
