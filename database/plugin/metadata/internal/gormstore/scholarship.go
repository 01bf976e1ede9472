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

package gormstore

import (
	"errors"
	"time"

	"github.com/blinklabs-io/certledger/database/models"
	"github.com/blinklabs-io/certledger/database/types"
	"gorm.io/gorm"
)

func (s *Store) AddScholarship(
	scholarship *models.Scholarship,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return wrapWriteError(db.Create(scholarship).Error)
}

func (s *Store) GetScholarship(
	id uint64,
	txn types.Txn,
) (*models.Scholarship, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Scholarship
	result := db.Where("id = ?", id).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrScholarshipNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

func (s *Store) GetScholarships(
	activeOnly bool,
	txn types.Txn,
) ([]models.Scholarship, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Order("id ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var ret []models.Scholarship
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetScholarshipInactive deactivates a scholarship. It reports whether this
// call changed the record; false means it was already inactive.
func (s *Store) SetScholarshipInactive(
	id uint64,
	revokedAt time.Time,
	txn types.Txn,
) (bool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return false, err
	}
	result := db.Model(&models.Scholarship{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active":  false,
			"revoked_at": revokedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) AddClaim(claim *models.Claim, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return wrapWriteError(db.Create(claim).Error)
}

func (s *Store) GetClaim(
	scholarshipId uint64,
	identityKey string,
	txn types.Txn,
) (*models.Claim, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Claim
	result := db.Where(
		"scholarship_id = ? AND identity_key = ?",
		scholarshipId,
		identityKey,
	).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrClaimNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

func (s *Store) GetClaims(
	scholarshipId uint64,
	txn types.Txn,
) ([]models.Claim, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Claim
	result := db.Where("scholarship_id = ?", scholarshipId).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetClaimTotals returns the number of claims and the sum of claimed amounts
// for a scholarship
func (s *Store) GetClaimTotals(
	scholarshipId uint64,
	txn types.Txn,
) (uint64, uint64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, 0, err
	}
	var totals struct {
		ClaimCount    uint64
		ClaimedAmount uint64
	}
	result := db.Model(&models.Claim{}).
		Select("COUNT(*) AS claim_count, COALESCE(SUM(amount), 0) AS claimed_amount").
		Where("scholarship_id = ?", scholarshipId).
		Scan(&totals)
	if result.Error != nil {
		return 0, 0, result.Error
	}
	return totals.ClaimCount, totals.ClaimedAmount, nil
}
