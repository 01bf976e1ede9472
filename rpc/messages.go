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
	"github.com/blinklabs-io/certledger/database"
	"github.com/blinklabs-io/certledger/ledger"
)

type EmptyResponse struct{}

type IdentityKeyRequest struct {
	IdentityKey string `json:"identity_key"`
}

type SetGraduatedRequest struct {
	IdentityKey string `json:"identity_key"`
	Graduated   bool   `json:"graduated"`
}

type IdRequest struct {
	Id uint64 `json:"id"`
}

type IdResponse struct {
	Id uint64 `json:"id"`
}

type SerialRequest struct {
	SerialNo string `json:"serial_no"`
}

type MemoRequest struct {
	MemoNo string `json:"memo_no"`
}

type UsedResponse struct {
	Used bool `json:"used"`
}

type UpdatePhotoRefRequest struct {
	PhotoRef string `json:"photo_ref"`
	Id       uint64 `json:"id"`
}

type HolderRequest struct {
	Holder string `json:"holder"`
}

type CertificatesResponse struct {
	Certificates []ledger.CertificateRecord `json:"certificates"`
}

type ListScholarshipsRequest struct {
	ActiveOnly bool `json:"active_only"`
}

type ScholarshipsResponse struct {
	Scholarships []ledger.ScholarshipRecord `json:"scholarships"`
}

// ClaimRequest addresses a single (scholarship, identity) pair. An empty
// identity key means the caller's own key
type ClaimRequest struct {
	IdentityKey   string `json:"identity_key"`
	ScholarshipId uint64 `json:"scholarship_id"`
}

type ClaimsResponse struct {
	Claims []ledger.ClaimRecord `json:"claims"`
}

type DepositRequest struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount"`
}

type ApproveRequest struct {
	Owner  string `json:"owner"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

type BalanceRequest struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
}

type BalanceResponse struct {
	Balance uint64 `json:"balance"`
}

type JournalRequest struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit"`
}

// JournalEntry is the wire form of a journal record. Payload holds the
// CBOR-encoded event
type JournalEntry struct {
	Type      string `json:"type"`
	Actor     string `json:"actor,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Payload   []byte `json:"payload,omitempty"`
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"`
}

type JournalResponse struct {
	Entries []JournalEntry `json:"entries"`
}

func journalEntriesFromDatabase(entries []database.JournalEntry) []JournalEntry {
	ret := make([]JournalEntry, 0, len(entries))
	for _, entry := range entries {
		ret = append(ret, JournalEntry{
			Type:      entry.Type,
			Actor:     entry.Actor,
			Subject:   entry.Subject,
			Payload:   entry.Payload,
			Seq:       entry.Seq,
			Timestamp: entry.Timestamp,
		})
	}
	return ret
}
