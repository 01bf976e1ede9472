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
	"github.com/blinklabs-io/certledger/eligibility"
	"github.com/blinklabs-io/certledger/event"
	"go.opentelemetry.io/otel/attribute"
)

// RegisterIdentity adds an identity to the registry. The identity key and
// enrollment date are fixed from then on
func (ls *LedgerState) RegisterIdentity(
	ctx context.Context,
	caller auth.Caller,
	input RegisterIdentityInput,
) (ret *IdentityRecord, err error) {
	_, done := ls.startOp(
		ctx,
		"RegisterIdentity",
		attribute.String("identity", input.IdentityKey),
	)
	defer func() { done(err) }()
	if !caller.Has(auth.RoleRegistrar) {
		return nil, fmt.Errorf("%w: registering identities requires the registrar role", ErrUnauthorized)
	}
	input.IdentityKey = strings.TrimSpace(input.IdentityKey)
	if err := ls.validateInput(input); err != nil {
		return nil, err
	}
	identity := &models.Identity{
		EnrollmentDate: input.EnrollmentDate.UTC(),
		CreatedAt:      ls.now(),
		IdentityKey:    input.IdentityKey,
		StudentNumber:  input.StudentNumber,
		Name:           input.Name,
		Email:          input.Email,
		Department:     input.Department,
		Program:        input.Program,
	}
	unlock := ls.locks.Lock(identityLockKey(input.IdentityKey))
	defer unlock()
	err = ls.update(func(txn *database.Txn) error {
		_, err := ls.db.Metadata().GetIdentity(input.IdentityKey, txn.Metadata())
		if err == nil {
			return ErrAlreadyRegistered
		}
		if !errors.Is(err, models.ErrIdentityNotFound) {
			return err
		}
		if err := ls.db.Metadata().AddIdentity(identity, txn.Metadata()); err != nil {
			return err
		}
		return ls.record(
			txn,
			caller.Key,
			identity.IdentityKey,
			event.IdentityRegisteredEventType,
			event.IdentityRegisteredEvent{
				IdentityKey:   identity.IdentityKey,
				StudentNumber: identity.StudentNumber,
				Department:    identity.Department,
			},
		)
	})
	if err != nil {
		if errors.Is(err, types.ErrDuplicateKey) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	ls.metrics.identitiesRegistered.Inc()
	ls.logger.Info(
		"identity registered",
		"identity", identity.IdentityKey,
		"registrar", caller.Key,
	)
	return identityRecordFromModel(identity, 0), nil
}

// GetIdentity returns an identity with its current GPA equivalent
func (ls *LedgerState) GetIdentity(
	ctx context.Context,
	identityKey string,
) (ret *IdentityRecord, err error) {
	_, done := ls.startOp(ctx, "GetIdentity")
	defer func() { done(err) }()
	err = ls.view(func(txn *database.Txn) error {
		identity, err := ls.getIdentity(txn, identityKey)
		if err != nil {
			return err
		}
		certs, err := ls.db.Metadata().GetCertificatesByHolder(identityKey, txn.Metadata())
		if err != nil {
			return err
		}
		ret = identityRecordFromModel(identity, gpaEquivalent(certs))
		return nil
	})
	return ret, err
}

// SetGraduated marks an identity as graduated. It is the only change allowed
// after registration
func (ls *LedgerState) SetGraduated(
	ctx context.Context,
	caller auth.Caller,
	identityKey string,
	graduated bool,
) (err error) {
	_, done := ls.startOp(
		ctx,
		"SetGraduated",
		attribute.String("identity", identityKey),
	)
	defer func() { done(err) }()
	if !caller.Has(auth.RoleRegistrar) {
		return fmt.Errorf("%w: updating identities requires the registrar role", ErrUnauthorized)
	}
	unlock := ls.locks.Lock(identityLockKey(identityKey))
	defer unlock()
	return ls.update(func(txn *database.Txn) error {
		identity, err := ls.getIdentity(txn, identityKey)
		if err != nil {
			return err
		}
		if identity.IsGraduated == graduated {
			return nil
		}
		if err := ls.db.Metadata().SetIdentityGraduated(identityKey, graduated, txn.Metadata()); err != nil {
			return err
		}
		return ls.record(
			txn,
			caller.Key,
			identityKey,
			event.IdentityGraduatedEventType,
			event.IdentityGraduatedEvent{
				IdentityKey: identityKey,
				Graduated:   graduated,
			},
		)
	})
}

func (ls *LedgerState) getIdentity(
	txn *database.Txn,
	identityKey string,
) (*models.Identity, error) {
	identity, err := ls.db.Metadata().GetIdentity(identityKey, txn.Metadata())
	if err != nil {
		if errors.Is(err, models.ErrIdentityNotFound) {
			return nil, NotFoundError{Entity: "identity", Key: identityKey}
		}
		return nil, err
	}
	return identity, nil
}

// gpaEquivalent derives an identity's GPA from its semester certificates
func gpaEquivalent(certs []models.Certificate) uint64 {
	semesters := make([]eligibility.Semester, 0, len(certs))
	for _, cert := range certs {
		if cert.Semester == nil {
			continue
		}
		semesters = append(semesters, eligibility.Semester{
			Sgpa:    cert.Semester.Sgpa,
			Credits: cert.Semester.TotalCredits,
			Revoked: cert.IsRevoked,
		})
	}
	return eligibility.GpaEquivalent(semesters)
}
