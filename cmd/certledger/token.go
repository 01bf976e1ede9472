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

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/certledger/auth"
	"github.com/blinklabs-io/certledger/internal/config"
	"github.com/spf13/cobra"
)

var tokenFlags = struct {
	key   string
	roles []string
	ttl   time.Duration
}{}

func tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a caller token signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			token, err := issueToken(
				cfg,
				tokenFlags.key,
				tokenFlags.roles,
				tokenFlags.ttl,
			)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&tokenFlags.key, "key", "", "caller identity key")
	cmd.Flags().StringSliceVar(
		&tokenFlags.roles,
		"role",
		nil,
		"caller role (admin, issuer, sponsor, registrar), may be repeated",
	)
	cmd.Flags().DurationVar(
		&tokenFlags.ttl,
		"ttl",
		24*time.Hour,
		"token lifetime, 0 for no expiry",
	)
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func issueToken(
	cfg *config.Config,
	key string,
	roleNames []string,
	ttl time.Duration,
) (string, error) {
	secret, err := cfg.LoadTokenSecret()
	if err != nil {
		return "", fmt.Errorf("failed to load token secret: %w", err)
	}
	if len(secret) == 0 {
		return "", errors.New(
			"no token secret configured: set tokenSecret or tokenSecretFile",
		)
	}
	roles, err := auth.ParseRoles(roleNames)
	if err != nil {
		return "", err
	}
	tokens := auth.NewTokenService(secret, cfg.TokenIssuer, nil)
	return tokens.Issue(auth.NewCaller(key, roles...), ttl)
}
