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

package models

import (
	"errors"
	"time"

	"github.com/blinklabs-io/certledger/eligibility"
	"gorm.io/datatypes"
)

var (
	ErrScholarshipNotFound = errors.New("scholarship not found")
	ErrClaimNotFound       = errors.New("claim not found")
)

// Scholarship is a funded program. Claimed and remaining amounts are derived
// from the claim table and never stored here.
type Scholarship struct {
	CreatedAt          time.Time
	Deadline           time.Time
	RevokedAt          *time.Time
	Criteria           datatypes.JSONType[eligibility.Criteria]
	Name               string
	Description        string
	CreatedBy          string `gorm:"index;size:128"`
	FundingAsset       string `gorm:"size:128"`
	ID                 uint64 `gorm:"primaryKey;autoIncrement:false"`
	TotalAmount        uint64
	MaxRecipients      uint64
	AmountPerRecipient uint64
	IsActive           bool `gorm:"index"`
}

func (Scholarship) TableName() string {
	return "scholarship"
}

// Claim is the single disbursement record for a (scholarship, identity) pair
type Claim struct {
	ClaimedAt     time.Time
	IdentityKey   string `gorm:"uniqueIndex:idx_claim_key;size:128;not null"`
	TxRef         string `gorm:"uniqueIndex;size:64"`
	ID            uint   `gorm:"primarykey"`
	ScholarshipID uint64 `gorm:"uniqueIndex:idx_claim_key;not null"`
	Amount        uint64
}

func (Claim) TableName() string {
	return "claim"
}
