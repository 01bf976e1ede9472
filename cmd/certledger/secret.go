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
	"fmt"
	"os"

	"github.com/blinklabs-io/certledger/internal/secret"
	"github.com/spf13/cobra"
)

var secretOutput string

func secretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Encrypt or decrypt a token secret file with sops",
	}
	cmd.PersistentFlags().StringVarP(
		&secretOutput,
		"output",
		"o",
		"",
		"write the result to a file instead of stdout",
	)
	cmd.AddCommand(
		&cobra.Command{
			Use:   "encrypt <file>",
			Short: "Encrypt a secret file using the master keys from the environment",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return transformSecret(cmd, args[0], secret.Encrypt)
			},
		},
		&cobra.Command{
			Use:   "decrypt <file>",
			Short: "Decrypt a sops encrypted secret file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return transformSecret(cmd, args[0], secret.Decrypt)
			},
		},
	)
	return cmd
}

func transformSecret(
	cmd *cobra.Command,
	path string,
	fn func([]byte) ([]byte, error),
) error {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	out, err := fn(data)
	if err != nil {
		return err
	}
	if secretOutput == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	return os.WriteFile(secretOutput, out, 0o600)
}
