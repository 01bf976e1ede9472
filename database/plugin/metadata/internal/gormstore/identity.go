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

func (s *Store) GetIdentity(
	identityKey string,
	txn types.Txn,
) (*models.Identity, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Identity
	result := db.Where("identity_key = ?", identityKey).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrIdentityNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

func (s *Store) AddIdentity(identity *models.Identity, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return wrapWriteError(db.Create(identity).Error)
}

func (s *Store) SetIdentityGraduated(
	identityKey string,
	graduated bool,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Identity{}).
		Where("identity_key = ?", identityKey).
		Update("is_graduated", graduated)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrIdentityNotFound
	}
	return nil
}
