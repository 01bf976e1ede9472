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
	"context"
	"slices"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleIssuer    Role = "issuer"
	RoleSponsor   Role = "sponsor"
	RoleRegistrar Role = "registrar"
)

var AllRoles = []Role{RoleAdmin, RoleIssuer, RoleSponsor, RoleRegistrar}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return slices.Contains(AllRoles, r)
}

// Caller is the authenticated principal of a ledger operation. Key is the
// caller's address or identity key
type Caller struct {
	Key   string
	Roles []Role
}

// NewCaller returns a caller with the given key and roles
func NewCaller(key string, roles ...Role) Caller {
	return Caller{Key: key, Roles: roles}
}

// IsAdmin reports whether the caller holds the admin role
func (c Caller) IsAdmin() bool {
	return slices.Contains(c.Roles, RoleAdmin)
}

// Has reports whether the caller holds the role. Admin implies every role
func (c Caller) Has(role Role) bool {
	if c.Key == "" {
		return false
	}
	return c.IsAdmin() || slices.Contains(c.Roles, role)
}

// Anonymous reports whether the caller carries no identity
func (c Caller) Anonymous() bool {
	return c.Key == ""
}

type callerContextKey struct{}

// WithCaller returns a copy of ctx carrying the caller
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext returns the caller stored in ctx, or an anonymous caller
func CallerFromContext(ctx context.Context) Caller {
	if caller, ok := ctx.Value(callerContextKey{}).(Caller); ok {
		return caller
	}
	return Caller{}
}
