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

package ledger

import (
	"time"

	"github.com/blinklabs-io/certledger/database/models"
	"github.com/blinklabs-io/certledger/eligibility"
)

// Course is a single grade-sheet line of a semester certificate. GradePoints
// is scaled by 100 (10.00 == 1000)
type Course struct {
	CourseCode      string `json:"course_code"      validate:"max=64"`
	CourseTitle     string `json:"course_title"     validate:"max=256"`
	GradeLetter     string `json:"grade_letter"     validate:"max=8"`
	Status          string `json:"status"           validate:"required,oneof=Pass Fail Absent Withheld MalPractice"`
	GradePoints     uint64 `json:"grade_points"     validate:"max=10000"`
	CreditsObtained uint64 `json:"credits_obtained" validate:"max=1000"`
}

// RegisterIdentityInput is the caller-supplied part of an identity record
type RegisterIdentityInput struct {
	EnrollmentDate time.Time `json:"enrollment_date" validate:"required"`
	IdentityKey    string    `json:"identity_key"    validate:"required,max=128"`
	StudentNumber  string    `json:"student_number"  validate:"max=64"`
	Name           string    `json:"name"            validate:"required,max=256"`
	Email          string    `json:"email"           validate:"omitempty,email,max=256"`
	Department     string    `json:"department"      validate:"max=64"`
	Program        string    `json:"program"         validate:"max=256"`
}

// MintGenericInput is the caller-supplied part of a generic certificate.
// Id, issue date, issuer and revocation state are assigned by the ledger
type MintGenericInput struct {
	Holder      string `json:"holder"       validate:"required,max=128"`
	CourseName  string `json:"course_name"  validate:"required,max=256"`
	Grade       string `json:"grade"        validate:"max=16"`
	Department  string `json:"department"   validate:"max=64"`
	MetadataRef string `json:"metadata_ref" validate:"max=512"`
}

// MintSemesterInput is the caller-supplied part of a semester certificate.
// It has no SGPA or total credits: both are always computed from Courses
type MintSemesterInput struct {
	Holder              string   `json:"holder"                validate:"required,max=128"`
	SerialNo            string   `json:"serial_no"             validate:"required,max=128"`
	MemoNo              string   `json:"memo_no"               validate:"required,max=128"`
	CourseName          string   `json:"course_name"           validate:"max=256"`
	Grade               string   `json:"grade"                 validate:"max=16"`
	Department          string   `json:"department"            validate:"max=64"`
	MetadataRef         string   `json:"metadata_ref"          validate:"max=512"`
	RegistrationNo      string   `json:"registration_no"       validate:"max=128"`
	Branch              string   `json:"branch"                validate:"max=256"`
	ExaminationLabel    string   `json:"examination_label"     validate:"max=256"`
	ExamPeriodLabel     string   `json:"exam_period_label"     validate:"max=256"`
	NationalIdRef       string   `json:"national_id_ref"       validate:"max=512"`
	PhotoRef            string   `json:"photo_ref"             validate:"max=512"`
	MediumOfInstruction string   `json:"medium_of_instruction" validate:"max=64"`
	Courses             []Course `json:"courses"               validate:"dive"`
}

// CreateScholarshipInput describes a new scholarship. Funding is the amount
// of the native asset attached to the request and is ignored for tokens
type CreateScholarshipInput struct {
	Deadline      time.Time            `json:"deadline"       validate:"required"`
	Criteria      eligibility.Criteria `json:"criteria"`
	Name          string               `json:"name"           validate:"required,max=256"`
	Description   string               `json:"description"    validate:"max=4096"`
	FundingAsset  string               `json:"funding_asset"  validate:"max=128"`
	TotalAmount   uint64               `json:"total_amount"   validate:"required"`
	MaxRecipients uint64               `json:"max_recipients" validate:"required"`
	Funding       uint64               `json:"funding"`
}

type IdentityRecord struct {
	EnrollmentDate time.Time `json:"enrollment_date"`
	CreatedAt      time.Time `json:"created_at"`
	IdentityKey    string    `json:"identity_key"`
	StudentNumber  string    `json:"student_number"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Department     string    `json:"department"`
	Program        string    `json:"program"`
	GpaEquivalent  uint64    `json:"gpa_equivalent"`
	IsGraduated    bool      `json:"is_graduated"`
}

type SemesterRecord struct {
	SerialNo            string   `json:"serial_no"`
	MemoNo              string   `json:"memo_no"`
	RegistrationNo      string   `json:"registration_no"`
	Branch              string   `json:"branch"`
	ExaminationLabel    string   `json:"examination_label"`
	ExamPeriodLabel     string   `json:"exam_period_label"`
	NationalIdRef       string   `json:"national_id_ref"`
	PhotoRef            string   `json:"photo_ref"`
	MediumOfInstruction string   `json:"medium_of_instruction"`
	Courses             []Course `json:"courses"`
	TotalCredits        uint64   `json:"total_credits"`
	Sgpa                uint64   `json:"sgpa"`
}

type CertificateRecord struct {
	IssueDate   time.Time       `json:"issue_date"`
	RevokedAt   *time.Time      `json:"revoked_at,omitempty"`
	Semester    *SemesterRecord `json:"semester,omitempty"`
	Variant     string          `json:"variant"`
	Holder      string          `json:"holder"`
	CourseName  string          `json:"course_name"`
	Grade       string          `json:"grade"`
	Department  string          `json:"department"`
	MetadataRef string          `json:"metadata_ref"`
	Issuer      string          `json:"issuer"`
	Id          uint64          `json:"id"`
	IsRevoked   bool            `json:"is_revoked"`
}

// VerifyResult is the answer to a verification query. Certificate is nil
// when no certificate has the requested id
type VerifyResult struct {
	Certificate *CertificateRecord `json:"certificate,omitempty"`
	IsValid     bool               `json:"is_valid"`
}

type ScholarshipRecord struct {
	CreatedAt          time.Time            `json:"created_at"`
	Deadline           time.Time            `json:"deadline"`
	RevokedAt          *time.Time           `json:"revoked_at,omitempty"`
	Criteria           eligibility.Criteria `json:"criteria"`
	Name               string               `json:"name"`
	Description        string               `json:"description"`
	CreatedBy          string               `json:"created_by"`
	FundingAsset       string               `json:"funding_asset"`
	Id                 uint64               `json:"id"`
	TotalAmount        uint64               `json:"total_amount"`
	ClaimedAmount      uint64               `json:"claimed_amount"`
	RemainingAmount    uint64               `json:"remaining_amount"`
	MaxRecipients      uint64               `json:"max_recipients"`
	AmountPerRecipient uint64               `json:"amount_per_recipient"`
	ClaimCount         uint64               `json:"claim_count"`
	IsActive           bool                 `json:"is_active"`
}

type ClaimRecord struct {
	ClaimedAt     time.Time `json:"claimed_at"`
	IdentityKey   string    `json:"identity_key"`
	TxRef         string    `json:"tx_ref"`
	ScholarshipId uint64    `json:"scholarship_id"`
	Amount        uint64    `json:"amount"`
}

// EligibilityResult reports whether an identity may claim a scholarship and
// which checks failed otherwise
type EligibilityResult struct {
	Failed   []eligibility.Check `json:"failed,omitempty"`
	Eligible bool                `json:"eligible"`
}

func identityRecordFromModel(m *models.Identity, gpa uint64) *IdentityRecord {
	return &IdentityRecord{
		EnrollmentDate: m.EnrollmentDate,
		CreatedAt:      m.CreatedAt,
		IdentityKey:    m.IdentityKey,
		StudentNumber:  m.StudentNumber,
		Name:           m.Name,
		Email:          m.Email,
		Department:     m.Department,
		Program:        m.Program,
		GpaEquivalent:  gpa,
		IsGraduated:    m.IsGraduated,
	}
}

func certificateRecordFromModel(m *models.Certificate) *CertificateRecord {
	ret := &CertificateRecord{
		IssueDate:   m.IssueDate,
		RevokedAt:   m.RevokedAt,
		Variant:     m.Variant.String(),
		Holder:      m.Holder,
		CourseName:  m.CourseName,
		Grade:       m.Grade,
		Department:  m.Department,
		MetadataRef: m.MetadataRef,
		Issuer:      m.Issuer,
		Id:          m.ID,
		IsRevoked:   m.IsRevoked,
	}
	if s := m.Semester; s != nil {
		courses := make([]Course, 0, len(s.Courses))
		for _, c := range s.Courses {
			courses = append(courses, Course{
				CourseCode:      c.CourseCode,
				CourseTitle:     c.CourseTitle,
				GradeLetter:     c.GradeLetter,
				Status:          string(c.Status),
				GradePoints:     c.GradePoints,
				CreditsObtained: c.CreditsObtained,
			})
		}
		ret.Semester = &SemesterRecord{
			SerialNo:            s.SerialNo,
			MemoNo:              s.MemoNo,
			RegistrationNo:      s.RegistrationNo,
			Branch:              s.Branch,
			ExaminationLabel:    s.ExaminationLabel,
			ExamPeriodLabel:     s.ExamPeriodLabel,
			NationalIdRef:       s.NationalIdRef,
			PhotoRef:            s.PhotoRef,
			MediumOfInstruction: s.MediumOfInstruction,
			Courses:             courses,
			TotalCredits:        s.TotalCredits,
			Sgpa:                s.Sgpa,
		}
	}
	return ret
}

func scholarshipRecordFromModel(
	m *models.Scholarship,
	claimCount uint64,
	claimedAmount uint64,
) *ScholarshipRecord {
	return &ScholarshipRecord{
		CreatedAt:          m.CreatedAt,
		Deadline:           m.Deadline,
		RevokedAt:          m.RevokedAt,
		Criteria:           m.Criteria.Data(),
		Name:               m.Name,
		Description:        m.Description,
		CreatedBy:          m.CreatedBy,
		FundingAsset:       m.FundingAsset,
		Id:                 m.ID,
		TotalAmount:        m.TotalAmount,
		ClaimedAmount:      claimedAmount,
		RemainingAmount:    m.TotalAmount - claimedAmount,
		MaxRecipients:      m.MaxRecipients,
		AmountPerRecipient: m.AmountPerRecipient,
		ClaimCount:         claimCount,
		IsActive:           m.IsActive,
	}
}

func claimRecordFromModel(m *models.Claim) ClaimRecord {
	return ClaimRecord{
		ClaimedAt:     m.ClaimedAt,
		IdentityKey:   m.IdentityKey,
		TxRef:         m.TxRef,
		ScholarshipId: m.ScholarshipID,
		Amount:        m.Amount,
	}
}
