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
	"gorm.io/gorm/clause"
)

// AddCertificate inserts a certificate and, for the semester variant, its
// grade sheet and courses. Each row is inserted explicitly so that unique
// index violations surface as errors.
func (s *Store) AddCertificate(cert *models.Certificate, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if err := db.Omit(clause.Associations).Create(cert).Error; err != nil {
		return wrapWriteError(err)
	}
	if cert.Semester == nil {
		return nil
	}
	cert.Semester.CertificateID = cert.ID
	if err := db.Omit(clause.Associations).Create(cert.Semester).Error; err != nil {
		return wrapWriteError(err)
	}
	if len(cert.Semester.Courses) == 0 {
		return nil
	}
	for i := range cert.Semester.Courses {
		cert.Semester.Courses[i].CertificateID = cert.ID
		cert.Semester.Courses[i].Position = uint(i)
	}
	return wrapWriteError(db.Create(&cert.Semester.Courses).Error)
}

func (s *Store) preloadCertificate(db *gorm.DB) *gorm.DB {
	return db.Preload("Semester").
		Preload("Semester.Courses", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

func (s *Store) GetCertificate(
	id uint64,
	txn types.Txn,
) (*models.Certificate, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Certificate
	result := s.preloadCertificate(db).Where("id = ?", id).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrCertificateNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

func (s *Store) GetCertificatesByHolder(
	holder string,
	txn types.Txn,
) ([]models.Certificate, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Certificate
	result := s.preloadCertificate(db).
		Where("holder = ?", holder).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetCertificateRevoked marks a certificate revoked. It reports whether this
// call changed the record; false means it was already revoked.
func (s *Store) SetCertificateRevoked(
	id uint64,
	revokedAt time.Time,
	txn types.Txn,
) (bool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return false, err
	}
	result := db.Model(&models.Certificate{}).
		Where("id = ? AND is_revoked = ?", id, false).
		Updates(map[string]any{
			"is_revoked": true,
			"revoked_at": revokedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) SetCertificatePhotoRef(
	id uint64,
	photoRef string,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.SemesterDetail{}).
		Where("certificate_id = ?", id).
		Update("photo_ref", photoRef)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrCertificateNotFound
	}
	return nil
}

func (s *Store) IsSerialUsed(serialNo string, txn types.Txn) (bool, error) {
	return s.semesterKeyExists("serial_no", serialNo, txn)
}

func (s *Store) IsMemoUsed(memoNo string, txn types.Txn) (bool, error) {
	return s.semesterKeyExists("memo_no", memoNo, txn)
}

func (s *Store) semesterKeyExists(
	column string,
	value string,
	txn types.Txn,
) (bool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return false, err
	}
	var count int64
	result := db.Model(&models.SemesterDetail{}).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).
		Limit(1).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}
