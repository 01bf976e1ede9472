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

	"connectrpc.com/connect"
	"github.com/blinklabs-io/certledger/auth"
	"github.com/blinklabs-io/certledger/ledger"
)

// ErrorKindHeader carries the ledger error kind on failed calls
const ErrorKindHeader = "Certledger-Error-Kind"

var errInternal = errors.New("internal error")

var kindCodes = map[ledger.ErrorKind]connect.Code{
	ledger.KindDuplicateSerial:   connect.CodeAlreadyExists,
	ledger.KindDuplicateMemo:     connect.CodeAlreadyExists,
	ledger.KindAlreadyRegistered: connect.CodeAlreadyExists,
	ledger.KindAlreadyClaimed:    connect.CodeAlreadyExists,
	ledger.KindNoValidCourses:    connect.CodeInvalidArgument,
	ledger.KindInvalidHolder:     connect.CodeInvalidArgument,
	ledger.KindInvalidArgument:   connect.CodeInvalidArgument,
	ledger.KindAlreadyRevoked:    connect.CodeFailedPrecondition,
	ledger.KindNotActive:         connect.CodeFailedPrecondition,
	ledger.KindDeadlinePassed:    connect.CodeFailedPrecondition,
	ledger.KindNotEligible:       connect.CodeFailedPrecondition,
	ledger.KindUnderfunded:       connect.CodeFailedPrecondition,
	ledger.KindExhausted:         connect.CodeResourceExhausted,
	ledger.KindUnauthorized:      connect.CodePermissionDenied,
	ledger.KindNotFound:          connect.CodeNotFound,
}

// CodeForKind returns the connect code used for a ledger error kind
func CodeForKind(kind ledger.ErrorKind) connect.Code {
	if code, ok := kindCodes[kind]; ok {
		return code
	}
	return connect.CodeInternal
}

// toConnectError converts a ledger error into a connect error carrying the
// error kind. Internal errors are logged and their details hidden
func (s *Server) toConnectError(ctx context.Context, method string, err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	kind := ledger.KindOf(err)
	code := CodeForKind(kind)
	if kind == ledger.KindUnauthorized && auth.CallerFromContext(ctx).Anonymous() {
		code = connect.CodeUnauthenticated
	}
	if code == connect.CodeInternal {
		s.config.Logger.Error(
			"request failed",
			"method", method,
			"error", err,
		)
		err = errInternal
	}
	ret := connect.NewError(code, err)
	ret.Meta().Set(ErrorKindHeader, string(kind))
	return ret
}

// ErrorKindOf returns the ledger error kind reported by a failed call, or
// the empty string when err carries none
func ErrorKindOf(err error) ledger.ErrorKind {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return ""
	}
	return ledger.ErrorKind(connectErr.Meta().Get(ErrorKindHeader))
}
