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

package rpc

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/blinklabs-io/certledger/auth"
)

// authInterceptor resolves the bearer token of a request into a caller.
// Requests without an Authorization header proceed as anonymous
func authInterceptor(tokens *auth.TokenService, logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			header := req.Header().Get("Authorization")
			if header == "" {
				return next(ctx, req)
			}
			if tokens == nil {
				return nil, connect.NewError(
					connect.CodeUnauthenticated,
					errors.New("token authentication is not configured"),
				)
			}
			token, err := auth.ExtractBearerToken(header)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			caller, err := tokens.Verify(token)
			if err != nil {
				logger.Debug(
					"rejected token",
					"procedure", req.Spec().Procedure,
					"error", err,
				)
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(auth.WithCaller(ctx, caller), req)
		}
	}
}
