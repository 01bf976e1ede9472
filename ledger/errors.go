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

package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blinklabs-io/certledger/eligibility"
)

// ErrorKind is the stable, machine-readable classification of a ledger
// error. Calling layers branch on it instead of on error text
type ErrorKind string

const (
	KindDuplicateSerial   ErrorKind = "DuplicateSerial"
	KindDuplicateMemo     ErrorKind = "DuplicateMemo"
	KindNoValidCourses    ErrorKind = "NoValidCourses"
	KindInvalidHolder     ErrorKind = "InvalidHolder"
	KindAlreadyRevoked    ErrorKind = "AlreadyRevoked"
	KindNotActive         ErrorKind = "NotActive"
	KindDeadlinePassed    ErrorKind = "DeadlinePassed"
	KindExhausted         ErrorKind = "Exhausted"
	KindAlreadyClaimed    ErrorKind = "AlreadyClaimed"
	KindNotEligible       ErrorKind = "NotEligible"
	KindUnderfunded       ErrorKind = "Underfunded"
	KindUnauthorized      ErrorKind = "Unauthorized"
	KindNotFound          ErrorKind = "NotFound"
	KindAlreadyRegistered ErrorKind = "AlreadyRegistered"
	KindInvalidArgument   ErrorKind = "InvalidArgument"
	KindInternal          ErrorKind = "Internal"
)

// Error is a ledger domain error. The package sentinels below are *Error
// values, and detailed errors unwrap to them
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrDuplicateSerial   = newError(KindDuplicateSerial, "serial number already used")
	ErrDuplicateMemo     = newError(KindDuplicateMemo, "memo number already used")
	ErrNoValidCourses    = newError(KindNoValidCourses, "no course has both credits and grade points")
	ErrInvalidHolder     = newError(KindInvalidHolder, "holder is not a registered identity")
	ErrAlreadyRevoked    = newError(KindAlreadyRevoked, "already revoked")
	ErrNotActive         = newError(KindNotActive, "scholarship is not active")
	ErrDeadlinePassed    = newError(KindDeadlinePassed, "scholarship deadline has passed")
	ErrExhausted         = newError(KindExhausted, "scholarship funds exhausted")
	ErrAlreadyClaimed    = newError(KindAlreadyClaimed, "scholarship already claimed by identity")
	ErrNotEligible       = newError(KindNotEligible, "identity is not eligible")
	ErrUnderfunded       = newError(KindUnderfunded, "funding does not cover total amount")
	ErrUnauthorized      = newError(KindUnauthorized, "caller is not authorized")
	ErrNotFound          = newError(KindNotFound, "not found")
	ErrAlreadyRegistered = newError(KindAlreadyRegistered, "identity already registered")
	ErrInvalidArgument   = newError(KindInvalidArgument, "invalid argument")
)

// KindOf returns the ErrorKind of err, KindInternal for errors outside the
// taxonomy and an empty kind for nil
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ledgerErr *Error
	if errors.As(err, &ledgerErr) {
		return ledgerErr.Kind
	}
	return KindInternal
}

type DuplicateSerialError struct {
	SerialNo string
}

func (e DuplicateSerialError) Error() string {
	return fmt.Sprintf("serial number %q already used", e.SerialNo)
}

func (e DuplicateSerialError) Unwrap() error {
	return ErrDuplicateSerial
}

type DuplicateMemoError struct {
	MemoNo string
}

func (e DuplicateMemoError) Error() string {
	return fmt.Sprintf("memo number %q already used", e.MemoNo)
}

func (e DuplicateMemoError) Unwrap() error {
	return ErrDuplicateMemo
}

// NotEligibleError lists the eligibility checks an identity failed
type NotEligibleError struct {
	Failed []eligibility.Check
}

func (e NotEligibleError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, check := range e.Failed {
		names = append(names, string(check))
	}
	return "identity is not eligible: failed " + strings.Join(names, ", ")
}

func (e NotEligibleError) Unwrap() error {
	return ErrNotEligible
}

type NotFoundError struct {
	Entity string
	Key    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InvalidArgumentError describes rejected input. Fields maps input field
// names to the rule they failed
type InvalidArgumentError struct {
	Fields map[string]string
	Reason string
}

func (e InvalidArgumentError) Error() string {
	if e.Reason != "" {
		return "invalid argument: " + e.Reason
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range sortedKeys(e.Fields) {
		parts = append(parts, field+" "+e.Fields[field])
	}
	return "invalid argument: " + strings.Join(parts, ", ")
}

func (e InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArgument(format string, args ...any) error {
	return InvalidArgumentError{Reason: fmt.Sprintf(format, args...)}
}
