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
	"strconv"
	"time"

	"github.com/blinklabs-io/certledger/auth"
	"github.com/blinklabs-io/certledger/custody"
	"github.com/blinklabs-io/certledger/database"
	"github.com/blinklabs-io/certledger/database/models"
	"github.com/blinklabs-io/certledger/database/types"
	"github.com/blinklabs-io/certledger/eligibility"
	"github.com/blinklabs-io/certledger/event"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

// CreateScholarship funds and activates a new scholarship. The whole total is
// moved from the sponsor into the scholarship's escrow account in the same
// transaction that stores the scholarship
func (ls *LedgerState) CreateScholarship(
	ctx context.Context,
	caller auth.Caller,
	input CreateScholarshipInput,
) (id uint64, err error) {
	_, done := ls.startOp(ctx, "CreateScholarship")
	defer func() { done(err) }()
	if !caller.Has(auth.RoleSponsor) {
		return 0, fmt.Errorf("%w: creating scholarships requires the sponsor role", ErrUnauthorized)
	}
	if err := ls.validateInput(input); err != nil {
		return 0, err
	}
	now := ls.now()
	if !input.Deadline.After(now) {
		return 0, invalidArgument("deadline %s is not in the future", input.Deadline.UTC().Format(time.RFC3339))
	}
	if input.TotalAmount > custody.MaxAmount {
		return 0, invalidArgument("total amount exceeds %d", uint64(custody.MaxAmount))
	}
	if input.TotalAmount < input.MaxRecipients {
		return 0, invalidArgument(
			"total amount %d cannot pay %d recipients",
			input.TotalAmount,
			input.MaxRecipients,
		)
	}
	asset := custody.NormalizeAsset(input.FundingAsset)
	scholarship := &models.Scholarship{
		CreatedAt:          now,
		Deadline:           input.Deadline.UTC(),
		Criteria:           datatypes.NewJSONType(input.Criteria.Normalize()),
		Name:               input.Name,
		Description:        input.Description,
		CreatedBy:          caller.Key,
		FundingAsset:       asset,
		TotalAmount:        input.TotalAmount,
		MaxRecipients:      input.MaxRecipients,
		AmountPerRecipient: input.TotalAmount / input.MaxRecipients,
		IsActive:           true,
	}
	unlock := ls.locks.Lock(
		balanceLockKey(caller.Key, asset),
		allowanceLockKey(caller.Key, asset),
	)
	defer unlock()
	err = ls.update(func(txn *database.Txn) error {
		id, err := ls.db.Metadata().NextSequence(models.SequenceScholarship, txn.Metadata())
		if err != nil {
			return err
		}
		scholarship.ID = id
		transfer, err := ls.custody.Fund(
			txn,
			caller.Key,
			id,
			asset,
			input.Funding,
			input.TotalAmount,
		)
		if err != nil {
			return custodyError(err)
		}
		if err := ls.db.Metadata().AddScholarship(scholarship, txn.Metadata()); err != nil {
			return err
		}
		if err := ls.recordTransfer(txn, caller.Key, transfer); err != nil {
			return err
		}
		return ls.record(
			txn,
			caller.Key,
			scholarshipSubject(id),
			event.ScholarshipCreatedEventType,
			event.ScholarshipCreatedEvent{
				Name:               scholarship.Name,
				Sponsor:            scholarship.CreatedBy,
				Asset:              scholarship.FundingAsset,
				Id:                 id,
				TotalAmount:        scholarship.TotalAmount,
				MaxRecipients:      scholarship.MaxRecipients,
				AmountPerRecipient: scholarship.AmountPerRecipient,
				Deadline:           scholarship.Deadline.Unix(),
			},
		)
	})
	if err != nil {
		return 0, err
	}
	ls.metrics.scholarshipsCreated.Inc()
	ls.logger.Info(
		"scholarship created",
		"id", scholarship.ID,
		"sponsor", caller.Key,
		"asset", asset,
		"total", scholarship.TotalAmount,
		"per_recipient", scholarship.AmountPerRecipient,
	)
	return scholarship.ID, nil
}

// GetScholarship returns a scholarship with its claim totals
func (ls *LedgerState) GetScholarship(
	ctx context.Context,
	id uint64,
) (ret *ScholarshipRecord, err error) {
	_, done := ls.startOp(ctx, "GetScholarship", attribute.Int64("id", int64(id))) // #nosec G115
	defer func() { done(err) }()
	err = ls.view(func(txn *database.Txn) error {
		scholarship, err := ls.getScholarship(txn, id)
		if err != nil {
			return err
		}
		ret, err = ls.scholarshipRecord(txn, scholarship)
		return err
	})
	return ret, err
}

// ListScholarships returns scholarships ordered by id
func (ls *LedgerState) ListScholarships(
	ctx context.Context,
	activeOnly bool,
) (ret []ScholarshipRecord, err error) {
	_, done := ls.startOp(ctx, "ListScholarships")
	defer func() { done(err) }()
	err = ls.view(func(txn *database.Txn) error {
		scholarships, err := ls.db.Metadata().GetScholarships(activeOnly, txn.Metadata())
		if err != nil {
			return err
		}
		ret = make([]ScholarshipRecord, 0, len(scholarships))
		for i := range scholarships {
			record, err := ls.scholarshipRecord(txn, &scholarships[i])
			if err != nil {
				return err
			}
			ret = append(ret, *record)
		}
		return nil
	})
	return ret, err
}

// EvaluateEligibility checks an identity against a scholarship's criteria
// using its current registry record and holdings. It never mutates state
func (ls *LedgerState) EvaluateEligibility(
	ctx context.Context,
	scholarshipId uint64,
	identityKey string,
) (ret *EligibilityResult, err error) {
	_, done := ls.startOp(
		ctx,
		"EvaluateEligibility",
		attribute.Int64("scholarship", int64(scholarshipId)), // #nosec G115
		attribute.String("identity", identityKey),
	)
	defer func() { done(err) }()
	err = ls.view(func(txn *database.Txn) error {
		scholarship, err := ls.getScholarship(txn, scholarshipId)
		if err != nil {
			return err
		}
		failed, err := ls.failedChecks(txn, scholarship, identityKey)
		if err != nil {
			return err
		}
		ret = &EligibilityResult{
			Failed:   failed,
			Eligible: len(failed) == 0,
		}
		return nil
	})
	return ret, err
}

// Claim pays a scholarship's per-recipient amount to an eligible identity.
// Each identity can claim a scholarship at most once
func (ls *LedgerState) Claim(
	ctx context.Context,
	caller auth.Caller,
	scholarshipId uint64,
	identityKey string,
) (ret *ClaimRecord, err error) {
	_, done := ls.startOp(
		ctx,
		"Claim",
		attribute.Int64("scholarship", int64(scholarshipId)), // #nosec G115
		attribute.String("identity", identityKey),
	)
	defer func() { done(err) }()
	if identityKey == "" {
		return nil, invalidArgument("identity key must not be empty")
	}
	if caller.Key != identityKey && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only the claimant may claim", ErrUnauthorized)
	}
	// The funding asset is fixed at creation, so it can be read before
	// taking the locks
	var asset string
	err = ls.view(func(txn *database.Txn) error {
		scholarship, err := ls.getScholarship(txn, scholarshipId)
		if err != nil {
			return err
		}
		asset = scholarship.FundingAsset
		return nil
	})
	if err != nil {
		return nil, err
	}
	unlock := ls.locks.Lock(
		scholarshipLockKey(scholarshipId),
		balanceLockKey(identityKey, asset),
	)
	defer unlock()
	var claim *models.Claim
	err = ls.update(func(txn *database.Txn) error {
		scholarship, err := ls.getScholarship(txn, scholarshipId)
		if err != nil {
			return err
		}
		now := ls.now()
		if !scholarship.IsActive {
			return fmt.Errorf("%w: scholarship %d", ErrNotActive, scholarshipId)
		}
		if now.After(scholarship.Deadline) {
			return fmt.Errorf("%w: scholarship %d", ErrDeadlinePassed, scholarshipId)
		}
		_, claimed, err := ls.db.Metadata().GetClaimTotals(scholarshipId, txn.Metadata())
		if err != nil {
			return err
		}
		if scholarship.TotalAmount-claimed < scholarship.AmountPerRecipient {
			return fmt.Errorf("%w: scholarship %d", ErrExhausted, scholarshipId)
		}
		_, err = ls.db.Metadata().GetClaim(scholarshipId, identityKey, txn.Metadata())
		if err == nil {
			return ErrAlreadyClaimed
		}
		if !errors.Is(err, models.ErrClaimNotFound) {
			return err
		}
		failed, err := ls.failedChecks(txn, scholarship, identityKey)
		if err != nil {
			return err
		}
		if len(failed) > 0 {
			return NotEligibleError{Failed: failed}
		}
		claim = &models.Claim{
			ClaimedAt:     now,
			IdentityKey:   identityKey,
			TxRef:         uuid.NewString(),
			ScholarshipID: scholarshipId,
			Amount:        scholarship.AmountPerRecipient,
		}
		if err := ls.db.Metadata().AddClaim(claim, txn.Metadata()); err != nil {
			return err
		}
		transfer, err := ls.custody.Disburse(
			txn,
			scholarshipId,
			identityKey,
			scholarship.FundingAsset,
			claim.Amount,
		)
		if err != nil {
			return custodyError(err)
		}
		if err := ls.recordTransfer(txn, caller.Key, transfer); err != nil {
			return err
		}
		return ls.record(
			txn,
			caller.Key,
			scholarshipSubject(scholarshipId),
			event.ScholarshipClaimedEventType,
			event.ScholarshipClaimedEvent{
				Claimant:      identityKey,
				TxRef:         claim.TxRef,
				ScholarshipId: scholarshipId,
				Amount:        claim.Amount,
			},
		)
	})
	if err != nil {
		if errors.Is(err, types.ErrDuplicateKey) {
			return nil, ErrAlreadyClaimed
		}
		return nil, err
	}
	ls.metrics.claimsTotal.Inc()
	ls.metrics.claimedAmount.Add(float64(claim.Amount))
	ls.logger.Info(
		"scholarship claimed",
		"scholarship", scholarshipId,
		"identity", identityKey,
		"amount", claim.Amount,
		"tx_ref", claim.TxRef,
	)
	record := claimRecordFromModel(claim)
	return &record, nil
}

// RevokeScholarship deactivates a scholarship for good. Only its creator
// holding the sponsor role, or an admin, may revoke it
func (ls *LedgerState) RevokeScholarship(
	ctx context.Context,
	caller auth.Caller,
	id uint64,
) (err error) {
	_, done := ls.startOp(ctx, "RevokeScholarship", attribute.Int64("id", int64(id))) // #nosec G115
	defer func() { done(err) }()
	if !caller.Has(auth.RoleSponsor) {
		return fmt.Errorf("%w: revoking scholarships requires the sponsor role", ErrUnauthorized)
	}
	unlock := ls.locks.Lock(scholarshipLockKey(id))
	defer unlock()
	var revoked bool
	err = ls.update(func(txn *database.Txn) error {
		scholarship, err := ls.getScholarship(txn, id)
		if err != nil {
			return err
		}
		if !caller.IsAdmin() && caller.Key != scholarship.CreatedBy {
			return fmt.Errorf(
				"%w: scholarship %d was created by another sponsor",
				ErrUnauthorized,
				id,
			)
		}
		if !scholarship.IsActive {
			if ls.config.RevokePolicy == RevokePolicyStrict {
				return fmt.Errorf("%w: scholarship %d", ErrAlreadyRevoked, id)
			}
			return nil
		}
		changed, err := ls.db.Metadata().SetScholarshipInactive(id, ls.now(), txn.Metadata())
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: scholarship %d", ErrAlreadyRevoked, id)
		}
		revoked = true
		return ls.record(
			txn,
			caller.Key,
			scholarshipSubject(id),
			event.ScholarshipRevokedEventType,
			event.ScholarshipRevokedEvent{Id: id},
		)
	})
	if err != nil {
		return err
	}
	if revoked {
		ls.metrics.scholarshipsRevoked.Inc()
		ls.logger.Info("scholarship revoked", "id", id, "caller", caller.Key)
	}
	return nil
}

// ClaimsByScholarship returns the claims made against a scholarship in the
// order they were made
func (ls *LedgerState) ClaimsByScholarship(
	ctx context.Context,
	id uint64,
) (ret []ClaimRecord, err error) {
	_, done := ls.startOp(ctx, "ClaimsByScholarship", attribute.Int64("id", int64(id))) // #nosec G115
	defer func() { done(err) }()
	err = ls.view(func(txn *database.Txn) error {
		if _, err := ls.getScholarship(txn, id); err != nil {
			return err
		}
		claims, err := ls.db.Metadata().GetClaims(id, txn.Metadata())
		if err != nil {
			return err
		}
		ret = make([]ClaimRecord, 0, len(claims))
		for i := range claims {
			ret = append(ret, claimRecordFromModel(&claims[i]))
		}
		return nil
	})
	return ret, err
}

func (ls *LedgerState) getScholarship(
	txn *database.Txn,
	id uint64,
) (*models.Scholarship, error) {
	scholarship, err := ls.db.Metadata().GetScholarship(id, txn.Metadata())
	if err != nil {
		if errors.Is(err, models.ErrScholarshipNotFound) {
			return nil, NotFoundError{
				Entity: "scholarship",
				Key:    strconv.FormatUint(id, 10),
			}
		}
		return nil, err
	}
	return scholarship, nil
}

func (ls *LedgerState) scholarshipRecord(
	txn *database.Txn,
	scholarship *models.Scholarship,
) (*ScholarshipRecord, error) {
	count, claimed, err := ls.db.Metadata().GetClaimTotals(scholarship.ID, txn.Metadata())
	if err != nil {
		return nil, err
	}
	return scholarshipRecordFromModel(scholarship, count, claimed), nil
}

// failedChecks evaluates the scholarship criteria against the identity's
// registry record and current holdings
func (ls *LedgerState) failedChecks(
	txn *database.Txn,
	scholarship *models.Scholarship,
	identityKey string,
) ([]eligibility.Check, error) {
	identity, err := ls.getIdentity(txn, identityKey)
	if err != nil {
		return nil, err
	}
	certs, err := ls.db.Metadata().GetCertificatesByHolder(identityKey, txn.Metadata())
	if err != nil {
		return nil, err
	}
	holdings := make([]eligibility.Holding, 0, len(certs))
	for i := range certs {
		holdings = append(holdings, eligibility.Holding{
			CourseNames: certs[i].CourseNames(),
			Revoked:     certs[i].IsRevoked,
		})
	}
	record := eligibility.Record{
		Department:     identity.Department,
		EnrollmentDate: identity.EnrollmentDate.Unix(),
		GpaEquivalent:  gpaEquivalent(certs),
	}
	return eligibility.Failed(scholarship.Criteria.Data(), record, holdings), nil
}

func scholarshipSubject(id uint64) string {
	return "scholarship/" + strconv.FormatUint(id, 10)
}
