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
	"net/http"

	"connectrpc.com/connect"
	"github.com/blinklabs-io/certledger/auth"
	"github.com/blinklabs-io/certledger/ledger"
)

// ServiceName is the fully-qualified name of the ledger service
const ServiceName = "certledger.v1.LedgerService"

// Procedure returns the HTTP path of a ledger service method
func Procedure(method string) string {
	return "/" + ServiceName + "/" + method
}

func handle[Req, Res any](
	s *Server,
	mux *http.ServeMux,
	method string,
	fn func(context.Context, auth.Caller, *Req) (*Res, error),
	opts ...connect.HandlerOption,
) {
	procedure := Procedure(method)
	mux.Handle(
		procedure,
		connect.NewUnaryHandler(
			procedure,
			func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
				res, err := fn(ctx, auth.CallerFromContext(ctx), req.Msg)
				if err != nil {
					return nil, s.toConnectError(ctx, method, err)
				}
				return connect.NewResponse(res), nil
			},
			opts...,
		),
	)
}

func (s *Server) registerHandlers(mux *http.ServeMux, opts ...connect.HandlerOption) {
	l := s.config.Ledger

	// Identity registry
	handle(s, mux, "RegisterIdentity", func(ctx context.Context, caller auth.Caller, req *ledger.RegisterIdentityInput) (*ledger.IdentityRecord, error) {
		return l.RegisterIdentity(ctx, caller, *req)
	}, opts...)
	handle(s, mux, "GetIdentity", func(ctx context.Context, _ auth.Caller, req *IdentityKeyRequest) (*ledger.IdentityRecord, error) {
		return l.GetIdentity(ctx, req.IdentityKey)
	}, opts...)
	handle(s, mux, "SetGraduated", func(ctx context.Context, caller auth.Caller, req *SetGraduatedRequest) (*EmptyResponse, error) {
		return &EmptyResponse{}, l.SetGraduated(ctx, caller, req.IdentityKey, req.Graduated)
	}, opts...)

	// Certificates
	handle(s, mux, "MintGeneric", func(ctx context.Context, caller auth.Caller, req *ledger.MintGenericInput) (*IdResponse, error) {
		id, err := l.MintGeneric(ctx, caller, *req)
		return &IdResponse{Id: id}, err
	}, opts...)
	handle(s, mux, "MintSemester", func(ctx context.Context, caller auth.Caller, req *ledger.MintSemesterInput) (*IdResponse, error) {
		id, err := l.MintSemester(ctx, caller, *req)
		return &IdResponse{Id: id}, err
	}, opts...)
	handle(s, mux, "Revoke", func(ctx context.Context, caller auth.Caller, req *IdRequest) (*EmptyResponse, error) {
		return &EmptyResponse{}, l.Revoke(ctx, caller, req.Id)
	}, opts...)
	handle(s, mux, "Verify", func(ctx context.Context, _ auth.Caller, req *IdRequest) (*ledger.VerifyResult, error) {
		return l.Verify(ctx, req.Id)
	}, opts...)
	handle(s, mux, "IsSerialUsed", func(ctx context.Context, _ auth.Caller, req *SerialRequest) (*UsedResponse, error) {
		used, err := l.IsSerialUsed(ctx, req.SerialNo)
		return &UsedResponse{Used: used}, err
	}, opts...)
	handle(s, mux, "IsMemoUsed", func(ctx context.Context, _ auth.Caller, req *MemoRequest) (*UsedResponse, error) {
		used, err := l.IsMemoUsed(ctx, req.MemoNo)
		return &UsedResponse{Used: used}, err
	}, opts...)
	handle(s, mux, "UpdatePhotoRef", func(ctx context.Context, caller auth.Caller, req *UpdatePhotoRefRequest) (*EmptyResponse, error) {
		return &EmptyResponse{}, l.UpdatePhotoRef(ctx, caller, req.Id, req.PhotoRef)
	}, opts...)
	handle(s, mux, "CertificatesByHolder", func(ctx context.Context, _ auth.Caller, req *HolderRequest) (*CertificatesResponse, error) {
		certs, err := l.CertificatesByHolder(ctx, req.Holder)
		return &CertificatesResponse{Certificates: certs}, err
	}, opts...)

	// Scholarships
	handle(s, mux, "CreateScholarship", func(ctx context.Context, caller auth.Caller, req *ledger.CreateScholarshipInput) (*IdResponse, error) {
		id, err := l.CreateScholarship(ctx, caller, *req)
		return &IdResponse{Id: id}, err
	}, opts...)
	handle(s, mux, "GetScholarship", func(ctx context.Context, _ auth.Caller, req *IdRequest) (*ledger.ScholarshipRecord, error) {
		return l.GetScholarship(ctx, req.Id)
	}, opts...)
	handle(s, mux, "ListScholarships", func(ctx context.Context, _ auth.Caller, req *ListScholarshipsRequest) (*ScholarshipsResponse, error) {
		list, err := l.ListScholarships(ctx, req.ActiveOnly)
		return &ScholarshipsResponse{Scholarships: list}, err
	}, opts...)
	handle(s, mux, "EvaluateEligibility", func(ctx context.Context, _ auth.Caller, req *ClaimRequest) (*ledger.EligibilityResult, error) {
		return l.EvaluateEligibility(ctx, req.ScholarshipId, req.IdentityKey)
	}, opts...)
	handle(s, mux, "Claim", func(ctx context.Context, caller auth.Caller, req *ClaimRequest) (*ledger.ClaimRecord, error) {
		identityKey := req.IdentityKey
		if identityKey == "" {
			identityKey = caller.Key
		}
		return l.Claim(ctx, caller, req.ScholarshipId, identityKey)
	}, opts...)
	handle(s, mux, "RevokeScholarship", func(ctx context.Context, caller auth.Caller, req *IdRequest) (*EmptyResponse, error) {
		return &EmptyResponse{}, l.RevokeScholarship(ctx, caller, req.Id)
	}, opts...)
	handle(s, mux, "ClaimsByScholarship", func(ctx context.Context, _ auth.Caller, req *IdRequest) (*ClaimsResponse, error) {
		claims, err := l.ClaimsByScholarship(ctx, req.Id)
		return &ClaimsResponse{Claims: claims}, err
	}, opts...)

	// Custody and journal
	handle(s, mux, "Deposit", func(ctx context.Context, caller auth.Caller, req *DepositRequest) (*BalanceResponse, error) {
		balance, err := l.Deposit(ctx, caller, req.Account, req.Asset, req.Amount)
		return &BalanceResponse{Balance: balance}, err
	}, opts...)
	handle(s, mux, "Approve", func(ctx context.Context, caller auth.Caller, req *ApproveRequest) (*EmptyResponse, error) {
		return &EmptyResponse{}, l.Approve(ctx, caller, req.Owner, req.Asset, req.Amount)
	}, opts...)
	handle(s, mux, "Balance", func(ctx context.Context, _ auth.Caller, req *BalanceRequest) (*BalanceResponse, error) {
		balance, err := l.Balance(ctx, req.Account, req.Asset)
		return &BalanceResponse{Balance: balance}, err
	}, opts...)
	handle(s, mux, "Journal", func(ctx context.Context, _ auth.Caller, req *JournalRequest) (*JournalResponse, error) {
		limit := req.Limit
		if limit == 0 || limit > maxJournalPage {
			limit = maxJournalPage
		}
		entries, err := l.Journal(ctx, req.From, limit)
		if err != nil {
			return nil, err
		}
		return &JournalResponse{Entries: journalEntriesFromDatabase(entries)}, nil
	}, opts...)
}
