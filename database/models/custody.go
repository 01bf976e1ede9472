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

// Balance is the custody balance of an account for a single asset
type Balance struct {
	Account string `gorm:"uniqueIndex:idx_balance_key;size:128;not null"`
	Asset   string `gorm:"uniqueIndex:idx_balance_key;size:128;not null"`
	ID      uint   `gorm:"primarykey"`
	Amount  uint64
}

func (Balance) TableName() string {
	return "balance"
}

// Allowance is the amount of a token asset an owner has approved for the
// escrow to pull
type Allowance struct {
	Owner  string `gorm:"uniqueIndex:idx_allowance_key;size:128;not null"`
	Asset  string `gorm:"uniqueIndex:idx_allowance_key;size:128;not null"`
	ID     uint   `gorm:"primarykey"`
	Amount uint64
}

func (Allowance) TableName() string {
	return "allowance"
}

// Sequence is a named monotonic counter. Counters are advanced inside the
// caller's transaction so a rollback never leaves a gap.
type Sequence struct {
	Name    string `gorm:"primaryKey;size:64"`
	Counter uint64
}

func (Sequence) TableName() string {
	return "sequence"
}

const (
	SequenceCertificate = "certificate"
	SequenceScholarship = "scholarship"
	SequenceJournal     = "journal"
)

// Sequences lists the counters created at startup
var Sequences = []string{
	SequenceCertificate,
	SequenceScholarship,
	SequenceJournal,
}
