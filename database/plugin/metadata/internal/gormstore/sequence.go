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
	"fmt"

	"github.com/blinklabs-io/certledger/database/models"
	"github.com/blinklabs-io/certledger/database/types"
	"gorm.io/gorm"
)

// NextSequence advances the named counter and returns the new value. The
// update runs in the given transaction, so a rollback releases the value.
func (s *Store) NextSequence(name string, txn types.Txn) (uint64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	result := db.Model(&models.Sequence{}).
		Where("name = ?", name).
		UpdateColumn("counter", gorm.Expr("counter + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		seq := models.Sequence{Name: name, Counter: 1}
		if err := db.Create(&seq).Error; err != nil {
			return 0, wrapWriteError(err)
		}
		return seq.Counter, nil
	}
	var seq models.Sequence
	if err := db.Where("name = ?", name).First(&seq).Error; err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", name, err)
	}
	return seq.Counter, nil
}
