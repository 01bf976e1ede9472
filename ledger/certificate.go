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
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blinklabs-io/certledger/auth"
	"github.com/blinklabs-io/certledger/database"
	"github.com/blinklabs-io/certledger/database/models"
	"github.com/blinklabs-io/certledger/database/types"
	"github.com/blinklabs-io/certledger/event"
	"go.opentelemetry.io/otel/attribute"
)

// MintGeneric issues a generic certificate and returns its id
func (ls *LedgerState) MintGeneric(
	ctx context.Context,
	caller auth.Caller,
	input MintGenericInput,
) (id uint64, err error) {
	_, done := ls.startOp(
		ctx,
		"MintGeneric",
		attribute.String("holder", input.Holder),
	)
	defer func() { done(err) }()
	if !caller.Has(auth.RoleIssuer) {
		return 0, fmt.Errorf("%w: minting requires the issuer role", ErrUnauthorized)
	}
	input.Holder = strings.TrimSpace(input.Holder)
	if err := ls.validateInput(input); err != nil {
		return 0, err
	}
	cert := &models.Certificate{
		IssueDate:   ls.now(),
		Holder:      input.Holder,
		CourseName:  input.CourseName,
		Grade:       input.Grade,
		Department:  input.Department,
		MetadataRef: input.MetadataRef,
		Issuer:      caller.Key,
		Variant:     models.CertificateVariantGeneric,
	}
	err = ls.update(func(txn *database.Txn) error {
		return ls.addCertificate(txn, cert)
	})
	if err != nil {
		return 0, err
	}
	ls.metrics.certificatesMinted.WithLabelValues(cert.Variant.String()).Inc()
	ls.logger.Info(
		"certificate minted",
		"id", cert.ID,
		"variant", cert.Variant.String(),
		"holder", cert.Holder,
		"issuer", cert.Issuer,
	)
	return cert.ID, nil
}

// MintSemester issues a semester certificate and returns its id. Serial and
// memo numbers are reserved in the same transaction that stores the record.
// SGPA and total credits are always computed from the grade sheet
func (ls *LedgerState) MintSemester(
	ctx context.Context,
	caller auth.Caller,
	input MintSemesterInput,
) (id uint64, err error) {
	_, done := ls.startOp(
		ctx,
		"MintSemester",
		attribute.String("holder", input.Holder),
		attribute.String("serial_no", input.SerialNo),
	)
	defer func() { done(err) }()
	if !caller.Has(auth.RoleIssuer) {
		return 0, fmt.Errorf("%w: minting requires the issuer role", ErrUnauthorized)
	}
	input.Holder = strings.TrimSpace(input.Holder)
	input.SerialNo = strings.TrimSpace(input.SerialNo)
	input.MemoNo = strings.TrimSpace(input.MemoNo)
	if err := ls.validateInput(input); err != nil {
		return 0, err
	}
	unlock := ls.locks.Lock(
		serialLockKey(input.SerialNo),
		memoLockKey(input.MemoNo),
	)
	defer unlock()
	var cert *models.Certificate
	err = ls.update(func(txn *database.Txn) error {
		if err := ls.checkSemesterKeys(txn, input.SerialNo, input.MemoNo); err != nil {
			return err
		}
		sgpa, totalCredits, courses, err := ComputeSGPA(input.Courses)
		if err != nil {
			return err
		}
		cert = semesterCertificate(input, courses, sgpa, totalCredits)
		cert.IssueDate = ls.now()
		cert.Issuer = caller.Key
		return ls.addCertificate(txn, cert)
	})
	if err != nil {
		if errors.Is(err, types.ErrDuplicateKey) {
			return 0, ls.duplicateSemesterKey(input.SerialNo, input.MemoNo, err)
		}
		return 0, err
	}
	ls.metrics.certificatesMinted.WithLabelValues(cert.Variant.String()).Inc()
	ls.logger.Info(
		"certificate minted",
		"id", cert.ID,
		"variant", cert.Variant.String(),
		"holder", cert.Holder,
		"issuer", cert.Issuer,
		"serial_no", cert.Semester.SerialNo,
		"sgpa", cert.Semester.Sgpa,
	)
	return cert.ID, nil
}

func semesterCertificate(
	input MintSemesterInput,
	courses []Course,
	sgpa uint64,
	totalCredits uint64,
) *models.Certificate {
	semesterCourses := make([]models.SemesterCourse, 0, len(courses))
	for _, c := range courses {
		semesterCourses = append(semesterCourses, models.SemesterCourse{
			CourseCode:      c.CourseCode,
			CourseTitle:     c.CourseTitle,
			GradeLetter:     c.GradeLetter,
			Status:          models.CourseStatus(c.Status),
			GradePoints:     c.GradePoints,
			CreditsObtained: c.CreditsObtained,
		})
	}
	return &models.Certificate{
		Holder:      input.Holder,
		CourseName:  input.CourseName,
		Grade:       input.Grade,
		Department:  input.Department,
		MetadataRef: input.MetadataRef,
		Variant:     models.CertificateVariantSemester,
		Semester: &models.SemesterDetail{
			SerialNo:            input.SerialNo,
			MemoNo:              input.MemoNo,
			RegistrationNo:      input.RegistrationNo,
			Branch:              input.Branch,
			ExaminationLabel:    input.ExaminationLabel,
			ExamPeriodLabel:     input.ExamPeriodLabel,
			NationalIdRef:       input.NationalIdRef,
			PhotoRef:            input.PhotoRef,
			MediumOfInstruction: input.MediumOfInstruction,
			Courses:             semesterCourses,
			TotalCredits:        totalCredits,
			Sgpa:                sgpa,
		},
	}
}

// checkSemesterKeys runs the same membership checks as IsSerialUsed and
// IsMemoUsed inside the minting transaction
func (ls *LedgerState) checkSemesterKeys(
	txn *database.Txn,
	serialNo string,
	memoNo string,
) error {
	used, err := ls.db.Metadata().IsSerialUsed(serialNo, txn.Metadata())
	if err != nil {
		return err
	}
	if used {
		return DuplicateSerialError{SerialNo: serialNo}
	}
	used, err = ls.db.Metadata().IsMemoUsed(memoNo, txn.Metadata())
	if err != nil {
		return err
	}
	if used {
		return DuplicateMemoError{MemoNo: memoNo}
	}
	return nil
}

// duplicateSemesterKey classifies a unique index violation raised by the
// metadata store after a concurrent writer outside this process won the race
func (ls *LedgerState) duplicateSemesterKey(
	serialNo string,
	memoNo string,
	cause error,
) error {
	var ret error
	err := ls.view(func(txn *database.Txn) error {
		ret = ls.checkSemesterKeys(txn, serialNo, memoNo)
		return nil
	})
	if err != nil {
		return err
	}
	if ret == nil {
		return cause
	}
	return ret
}

// addCertificate allocates the next certificate id and stores cert. It must
// run inside an update
func (ls *LedgerState) addCertificate(
	txn *database.Txn,
	cert *models.Certificate,
) error {
	if ls.config.RequireRegisteredHolder {
		_, err := ls.db.Metadata().GetIdentity(cert.Holder, txn.Metadata())
		if err != nil {
			if errors.Is(err, models.ErrIdentityNotFound) {
				return fmt.Errorf("%w: %s", ErrInvalidHolder, cert.Holder)
			}
			return err
		}
	}
	id, err := ls.db.Metadata().NextSequence(models.SequenceCertificate, txn.Metadata())
	if err != nil {
		return err
	}
	cert.ID = id
	if err := ls.db.Metadata().AddCertificate(cert, txn.Metadata()); err != nil {
		return err
	}
	evt := event.CertificateMintedEvent{
		Holder:     cert.Holder,
		Issuer:     cert.Issuer,
		Variant:    cert.Variant.String(),
		CourseName: cert.CourseName,
		Id:         cert.ID,
	}
	if cert.Semester != nil {
		evt.SerialNo = cert.Semester.SerialNo
		evt.MemoNo = cert.Semester.MemoNo
		evt.Sgpa = cert.Semester.Sgpa
	}
	return ls.record(
		txn,
		cert.Issuer,
		certificateSubject(cert.ID),
		event.CertificateMintedEventType,
		evt,
	)
}

// Revoke marks a certificate as revoked. Under the idempotent policy revoking
// a revoked certificate succeeds without journaling anything. Under the
// strict policy it fails with ErrAlreadyRevoked
func (ls *LedgerState) Revoke(
	ctx context.Context,
	caller auth.Caller,
	id uint64,
) (err error) {
	_, done := ls.startOp(ctx, "Revoke", attribute.Int64("id", int64(id))) // #nosec G115
	defer func() { done(err) }()
	if !caller.Has(auth.RoleIssuer) {
		return fmt.Errorf("%w: revoking requires the issuer role", ErrUnauthorized)
	}
	unlock := ls.locks.Lock(certificateLockKey(id))
	defer unlock()
	var revoked bool
	err = ls.update(func(txn *database.Txn) error {
		cert, err := ls.getCertificate(txn, id)
		if err != nil {
			return err
		}
		if err := authorizeIssuer(caller, cert); err != nil {
			return err
		}
		if cert.IsRevoked {
			if ls.config.RevokePolicy == RevokePolicyStrict {
				return fmt.Errorf("%w: certificate %d", ErrAlreadyRevoked, id)
			}
			return nil
		}
		changed, err := ls.db.Metadata().SetCertificateRevoked(id, ls.now(), txn.Metadata())
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: certificate %d", ErrAlreadyRevoked, id)
		}
		revoked = true
		return ls.record(
			txn,
			caller.Key,
			certificateSubject(id),
			event.CertificateRevokedEventType,
			event.CertificateRevokedEvent{
				Holder: cert.Holder,
				Id:     id,
			},
		)
	})
	if err != nil {
		return err
	}
	if revoked {
		ls.metrics.certificatesRevoked.Inc()
		ls.logger.Info("certificate revoked", "id", id, "caller", caller.Key)
	}
	return nil
}

// Verify returns a certificate and whether it is currently valid. An unknown
// id is not an error: the result has no certificate and is not valid
func (ls *LedgerState) Verify(
	ctx context.Context,
	id uint64,
) (ret *VerifyResult, err error) {
	_, done := ls.startOp(ctx, "Verify", attribute.Int64("id", int64(id))) // #nosec G115
	defer func() { done(err) }()
	ret = &VerifyResult{}
	err = ls.view(func(txn *database.Txn) error {
		cert, err := ls.db.Metadata().GetCertificate(id, txn.Metadata())
		if err != nil {
			if errors.Is(err, models.ErrCertificateNotFound) {
				return nil
			}
			return err
		}
		ret.Certificate = certificateRecordFromModel(cert)
		ret.IsValid = !cert.IsRevoked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// IsSerialUsed reports whether a serial number is already taken
func (ls *LedgerState) IsSerialUsed(
	ctx context.Context,
	serialNo string,
) (used bool, err error) {
	_, done := ls.startOp(ctx, "IsSerialUsed")
	defer func() { done(err) }()
	serialNo = strings.TrimSpace(serialNo)
	if serialNo == "" {
		return false, invalidArgument("serial number must not be empty")
	}
	err = ls.view(func(txn *database.Txn) error {
		used, err = ls.db.Metadata().IsSerialUsed(serialNo, txn.Metadata())
		return err
	})
	return used, err
}

// IsMemoUsed reports whether a memo number is already taken
func (ls *LedgerState) IsMemoUsed(
	ctx context.Context,
	memoNo string,
) (used bool, err error) {
	_, done := ls.startOp(ctx, "IsMemoUsed")
	defer func() { done(err) }()
	memoNo = strings.TrimSpace(memoNo)
	if memoNo == "" {
		return false, invalidArgument("memo number must not be empty")
	}
	err = ls.view(func(txn *database.Txn) error {
		used, err = ls.db.Metadata().IsMemoUsed(memoNo, txn.Metadata())
		return err
	})
	return used, err
}

// UpdatePhotoRef replaces the photo reference of a semester certificate
func (ls *LedgerState) UpdatePhotoRef(
	ctx context.Context,
	caller auth.Caller,
	id uint64,
	photoRef string,
) (err error) {
	_, done := ls.startOp(ctx, "UpdatePhotoRef", attribute.Int64("id", int64(id))) // #nosec G115
	defer func() { done(err) }()
	if !caller.Has(auth.RoleIssuer) {
		return fmt.Errorf("%w: updating certificates requires the issuer role", ErrUnauthorized)
	}
	photoRef = strings.TrimSpace(photoRef)
	if len(photoRef) > 512 {
		return InvalidArgumentError{Fields: map[string]string{"PhotoRef": "max=512"}}
	}
	unlock := ls.locks.Lock(certificateLockKey(id))
	defer unlock()
	return ls.update(func(txn *database.Txn) error {
		cert, err := ls.getCertificate(txn, id)
		if err != nil {
			return err
		}
		if err := authorizeIssuer(caller, cert); err != nil {
			return err
		}
		if cert.IsRevoked {
			return fmt.Errorf("%w: certificate %d", ErrAlreadyRevoked, id)
		}
		if cert.Semester == nil {
			return invalidArgument("certificate %d is not a semester certificate", id)
		}
		if cert.Semester.PhotoRef == photoRef {
			return nil
		}
		if err := ls.db.Metadata().SetCertificatePhotoRef(id, photoRef, txn.Metadata()); err != nil {
			return err
		}
		return ls.record(
			txn,
			caller.Key,
			certificateSubject(id),
			event.CertificatePhotoEventType,
			event.CertificatePhotoEvent{
				PhotoRef: photoRef,
				Id:       id,
			},
		)
	})
}

// CertificatesByHolder returns every certificate issued to a holder,
// including revoked ones, ordered by id
func (ls *LedgerState) CertificatesByHolder(
	ctx context.Context,
	holder string,
) (ret []CertificateRecord, err error) {
	_, done := ls.startOp(ctx, "CertificatesByHolder")
	defer func() { done(err) }()
	err = ls.view(func(txn *database.Txn) error {
		certs, err := ls.db.Metadata().GetCertificatesByHolder(holder, txn.Metadata())
		if err != nil {
			return err
		}
		ret = make([]CertificateRecord, 0, len(certs))
		for i := range certs {
			ret = append(ret, *certificateRecordFromModel(&certs[i]))
		}
		return nil
	})
	return ret, err
}

func (ls *LedgerState) getCertificate(
	txn *database.Txn,
	id uint64,
) (*models.Certificate, error) {
	cert, err := ls.db.Metadata().GetCertificate(id, txn.Metadata())
	if err != nil {
		if errors.Is(err, models.ErrCertificateNotFound) {
			return nil, NotFoundError{
				Entity: "certificate",
				Key:    fmt.Sprintf("%d", id),
			}
		}
		return nil, err
	}
	return cert, nil
}

// authorizeIssuer allows the certificate's own issuer or an admin
func authorizeIssuer(caller auth.Caller, cert *models.Certificate) error {
	if caller.IsAdmin() || caller.Key == cert.Issuer {
		return nil
	}
	return fmt.Errorf(
		"%w: certificate %d was issued by another issuer",
		ErrUnauthorized,
		cert.ID,
	)
}

func certificateSubject(id uint64) string {
	return fmt.Sprintf("certificate/%d", id)
}
