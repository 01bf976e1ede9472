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
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrCertificateNotFound = errors.New("certificate not found")

// CertificateVariant identifies the kind of certificate record
type CertificateVariant uint8

const (
	CertificateVariantGeneric  CertificateVariant = 0
	CertificateVariantSemester CertificateVariant = 1
)

func (v CertificateVariant) String() string {
	switch v {
	case CertificateVariantGeneric:
		return "generic"
	case CertificateVariantSemester:
		return "semester"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// Value implements the driver.Valuer interface for database storage
func (v CertificateVariant) Value() (driver.Value, error) {
	return int64(v), nil
}

// Scan implements the sql.Scanner interface for database retrieval.
// Uses pointer receiver because it modifies the receiver.
func (v *CertificateVariant) Scan(value any) error {
	if value == nil {
		*v = 0
		return nil
	}
	var val int64
	switch tmp := value.(type) {
	case int64:
		val = tmp
	case int:
		val = int64(tmp)
	case uint64:
		if tmp > 255 {
			return fmt.Errorf("value too large for CertificateVariant: %d", tmp)
		}
		val = int64(tmp) // #nosec G115 -- bounds checked above
	case []byte:
		var err error
		val, err = strconv.ParseInt(string(tmp), 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse CertificateVariant: %w", err)
		}
	case string:
		var err error
		val, err = strconv.ParseInt(tmp, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse CertificateVariant: %w", err)
		}
	default:
		return fmt.Errorf("cannot scan %T into CertificateVariant", value)
	}
	if val < 0 || val > 255 {
		return fmt.Errorf("value out of range for CertificateVariant: %d", val)
	}
	*v = CertificateVariant(val) // #nosec G115 -- bounds checked above
	return nil
}

// CourseStatus is the outcome recorded for a course on a semester certificate
type CourseStatus string

const (
	CourseStatusPass        CourseStatus = "Pass"
	CourseStatusFail        CourseStatus = "Fail"
	CourseStatusAbsent      CourseStatus = "Absent"
	CourseStatusWithheld    CourseStatus = "Withheld"
	CourseStatusMalPractice CourseStatus = "MalPractice"
)

// Valid returns true for the known course statuses
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusPass,
		CourseStatusFail,
		CourseStatusAbsent,
		CourseStatusWithheld,
		CourseStatusMalPractice:
		return true
	}
	return false
}

// Certificate is the common record for both certificate variants. The ID is
// allocated from the ledger sequence rather than by the database.
type Certificate struct {
	IssueDate   time.Time
	RevokedAt   *time.Time
	Semester    *SemesterDetail `gorm:"foreignKey:CertificateID"`
	Holder      string          `gorm:"index;size:128;not null"`
	CourseName  string
	Grade       string
	Department  string
	MetadataRef string
	Issuer      string `gorm:"index;size:128"`
	ID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Variant     CertificateVariant
	IsRevoked   bool `gorm:"index"`
}

func (Certificate) TableName() string {
	return "certificate"
}

// SemesterDetail holds the grade-sheet fields of a semester certificate. The
// unique indexes on SerialNo and MemoNo are the serial/memo uniqueness index.
type SemesterDetail struct {
	SerialNo            string           `gorm:"uniqueIndex;size:128;not null"`
	MemoNo              string           `gorm:"uniqueIndex;size:128;not null"`
	RegistrationNo      string           `gorm:"index;size:128"`
	Branch              string
	ExaminationLabel    string
	ExamPeriodLabel     string
	NationalIdRef       string
	PhotoRef            string
	MediumOfInstruction string
	Courses             []SemesterCourse `gorm:"foreignKey:CertificateID;references:CertificateID"`
	CertificateID       uint64           `gorm:"primaryKey;autoIncrement:false"`
	TotalCredits        uint64
	Sgpa                uint64
}

func (SemesterDetail) TableName() string {
	return "semester_certificate"
}

// SemesterCourse is a single course entry on a semester certificate
type SemesterCourse struct {
	CourseCode      string
	CourseTitle     string
	GradeLetter     string
	Status          CourseStatus `gorm:"size:16"`
	ID              uint         `gorm:"primarykey"`
	CertificateID   uint64       `gorm:"index"`
	Position        uint
	GradePoints     uint64
	CreditsObtained uint64
}

func (SemesterCourse) TableName() string {
	return "semester_course"
}

// CourseNames returns the course names this certificate contributes to an
// identity's holdings
func (c *Certificate) CourseNames() []string {
	var ret []string
	if c.CourseName != "" {
		ret = append(ret, c.CourseName)
	}
	if c.Semester == nil {
		return ret
	}
	for _, course := range c.Semester.Courses {
		if course.Status != CourseStatusPass {
			continue
		}
		if course.CourseTitle != "" {
			ret = append(ret, course.CourseTitle)
		}
		if course.CourseCode != "" {
			ret = append(ret, course.CourseCode)
		}
	}
	return ret
}
