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

	"github.com/blinklabs-io/certledger/database/models"
	"github.com/blinklabs-io/certledger/database/types"
	"gorm.io/gorm"
)

// GetBalance returns the balance of an account, or 0 if it has none
func (s *Store) GetBalance(
	account string,
	asset string,
	txn types.Txn,
) (uint64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	var ret models.Balance
	result := db.Where("account = ? AND asset = ?", account, asset).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return ret.Amount, nil
}

func (s *Store) SetBalance(
	account string,
	asset string,
	amount uint64,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	var tmp models.Balance
	result := db.Where(models.Balance{Account: account, Asset: asset}).
		Assign(map[string]any{"amount": amount}).
		FirstOrCreate(&tmp)
	return wrapWriteError(result.Error)
}

// GetAllowance returns the amount an owner has approved for the escrow, or 0
func (s *Store) GetAllowance(
	owner string,
	asset string,
	txn types.Txn,
) (uint64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	var ret models.Allowance
	result := db.Where("owner = ? AND asset = ?", owner, asset).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return ret.Amount, nil
}

func (s *Store) SetAllowance(
	owner string,
	asset string,
	amount uint64,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	var tmp models.Allowance
	result := db.Where(models.Allowance{Owner: owner, Asset: asset}).
		Assign(map[string]any{"amount": amount}).
		FirstOrCreate(&tmp)
	return wrapWriteError(result.Error)
}
