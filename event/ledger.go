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

package event

const (
	IdentityRegisteredEventType EventType = "identity.registered"
	IdentityGraduatedEventType  EventType = "identity.graduated"
	CertificateMintedEventType  EventType = "certificate.minted"
	CertificateRevokedEventType EventType = "certificate.revoked"
	CertificatePhotoEventType   EventType = "certificate.photo_updated"
	ScholarshipCreatedEventType EventType = "scholarship.created"
	ScholarshipClaimedEventType EventType = "scholarship.claimed"
	ScholarshipRevokedEventType EventType = "scholarship.revoked"
	CustodyDepositedEventType   EventType = "custody.deposited"
	CustodyApprovedEventType    EventType = "custody.approved"
	CustodyTransferredEventType EventType = "custody.transferred"
)

// LedgerEventTypes lists every event type published by the ledger
var LedgerEventTypes = []EventType{
	IdentityRegisteredEventType,
	IdentityGraduatedEventType,
	CertificateMintedEventType,
	CertificateRevokedEventType,
	CertificatePhotoEventType,
	ScholarshipCreatedEventType,
	ScholarshipClaimedEventType,
	ScholarshipRevokedEventType,
	CustodyDepositedEventType,
	CustodyApprovedEventType,
	CustodyTransferredEventType,
}

type IdentityRegisteredEvent struct {
	IdentityKey   string `cbor:"0,keyasint"`
	StudentNumber string `cbor:"1,keyasint"`
	Department    string `cbor:"2,keyasint"`
}

type IdentityGraduatedEvent struct {
	IdentityKey string `cbor:"0,keyasint"`
	Graduated   bool   `cbor:"1,keyasint"`
}

// CertificateMintedEvent is emitted for both generic and semester
// certificates. SerialNo and MemoNo are empty for generic certificates
type CertificateMintedEvent struct {
	Holder     string `cbor:"1,keyasint"`
	Issuer     string `cbor:"2,keyasint"`
	Variant    string `cbor:"3,keyasint"`
	CourseName string `cbor:"4,keyasint"`
	SerialNo   string `cbor:"5,keyasint,omitempty"`
	MemoNo     string `cbor:"6,keyasint,omitempty"`
	Id         uint64 `cbor:"0,keyasint"`
	Sgpa       uint64 `cbor:"7,keyasint,omitempty"`
}

type CertificateRevokedEvent struct {
	Holder string `cbor:"1,keyasint"`
	Id     uint64 `cbor:"0,keyasint"`
}

type CertificatePhotoEvent struct {
	PhotoRef string `cbor:"1,keyasint"`
	Id       uint64 `cbor:"0,keyasint"`
}

type ScholarshipCreatedEvent struct {
	Name               string `cbor:"1,keyasint"`
	Sponsor            string `cbor:"2,keyasint"`
	Asset              string `cbor:"3,keyasint"`
	Id                 uint64 `cbor:"0,keyasint"`
	TotalAmount        uint64 `cbor:"4,keyasint"`
	MaxRecipients      uint64 `cbor:"5,keyasint"`
	AmountPerRecipient uint64 `cbor:"6,keyasint"`
	Deadline           int64  `cbor:"7,keyasint"`
}

type ScholarshipClaimedEvent struct {
	Claimant      string `cbor:"1,keyasint"`
	TxRef         string `cbor:"2,keyasint"`
	ScholarshipId uint64 `cbor:"0,keyasint"`
	Amount        uint64 `cbor:"3,keyasint"`
}

type ScholarshipRevokedEvent struct {
	Id uint64 `cbor:"0,keyasint"`
}

type CustodyDepositedEvent struct {
	Account string `cbor:"0,keyasint"`
	Asset   string `cbor:"1,keyasint"`
	Amount  uint64 `cbor:"2,keyasint"`
}

type CustodyApprovedEvent struct {
	Owner  string `cbor:"0,keyasint"`
	Asset  string `cbor:"1,keyasint"`
	Amount uint64 `cbor:"2,keyasint"`
}

type CustodyTransferredEvent struct {
	From   string `cbor:"0,keyasint"`
	To     string `cbor:"1,keyasint"`
	Asset  string `cbor:"2,keyasint"`
	Amount uint64 `cbor:"3,keyasint"`
}
