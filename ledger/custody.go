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

	"github.com/blinklabs-io/certledger/auth"
	"github.com/blinklabs-io/certledger/custody"
	"github.com/blinklabs-io/certledger/database"
	"github.com/blinklabs-io/certledger/event"
)

// Deposit credits an account. It stands in for value arriving from the chain
// and requires the registrar role
func (ls *LedgerState) Deposit(
	ctx context.Context,
	caller auth.Caller,
	account string,
	asset string,
	amount uint64,
) (balance uint64, err error) {
	_, done := ls.startOp(ctx, "Deposit")
	defer func() { done(err) }()
	if !caller.Has(auth.RoleRegistrar) {
		return 0, fmt.Errorf("%w: deposits require the registrar role", ErrUnauthorized)
	}
	asset = custody.NormalizeAsset(asset)
	unlock := ls.locks.Lock(balanceLockKey(account, asset))
	defer unlock()
	err = ls.update(func(txn *database.Txn) error {
		var err error
		balance, err = ls.custody.Deposit(txn, account, asset, amount)
		if err != nil {
			return custodyError(err)
		}
		return ls.record(
			txn,
			caller.Key,
			account,
			event.CustodyDepositedEventType,
			event.CustodyDepositedEvent{
				Account: account,
				Asset:   asset,
				Amount:  amount,
			},
		)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Approve sets how much of a token the escrow may pull from owner when
// owner creates a scholarship. Owners approve for themselves and registrars
// may approve on their behalf
func (ls *LedgerState) Approve(
	ctx context.Context,
	caller auth.Caller,
	owner string,
	asset string,
	amount uint64,
) (err error) {
	_, done := ls.startOp(ctx, "Approve")
	defer func() { done(err) }()
	if caller.Key != owner && !caller.Has(auth.RoleRegistrar) {
		return fmt.Errorf("%w: only the owner may approve", ErrUnauthorized)
	}
	asset = custody.NormalizeAsset(asset)
	if custody.IsNative(asset) {
		return invalidArgument("allowances apply to tokens only")
	}
	if amount > custody.MaxAmount {
		return invalidArgument("amount exceeds %d", uint64(custody.MaxAmount))
	}
	unlock := ls.locks.Lock(allowanceLockKey(owner, asset))
	defer unlock()
	return ls.update(func(txn *database.Txn) error {
		if err := ls.custody.Approve(txn, owner, asset, amount); err != nil {
			return custodyError(err)
		}
		return ls.record(
			txn,
			caller.Key,
			owner,
			event.CustodyApprovedEventType,
			event.CustodyApprovedEvent{
				Owner:  owner,
				Asset:  asset,
				Amount: amount,
			},
		)
	})
}

// Balance returns an account's balance in the given asset
func (ls *LedgerState) Balance(
	ctx context.Context,
	account string,
	asset string,
) (balance uint64, err error) {
	_, done := ls.startOp(ctx, "Balance")
	defer func() { done(err) }()
	err = ls.view(func(txn *database.Txn) error {
		balance, err = ls.custody.Balance(txn, account, asset)
		return err
	})
	return balance, err
}

// Allowance returns the escrow allowance an owner has granted for a token
func (ls *LedgerState) Allowance(
	ctx context.Context,
	owner string,
	asset string,
) (allowance uint64, err error) {
	_, done := ls.startOp(ctx, "Allowance")
	defer func() { done(err) }()
	err = ls.view(func(txn *database.Txn) error {
		allowance, err = ls.custody.Allowance(txn, owner, asset)
		return err
	})
	return allowance, err
}

// Journal returns up to limit journal entries starting at sequence from. A
// zero limit returns every remaining entry
func (ls *LedgerState) Journal(
	ctx context.Context,
	from uint64,
	limit int,
) (ret []database.JournalEntry, err error) {
	_, done := ls.startOp(ctx, "Journal")
	defer func() { done(err) }()
	if limit < 0 {
		return nil, invalidArgument("limit must not be negative")
	}
	return ls.db.Journal(from, limit)
}

func (ls *LedgerState) recordTransfer(
	txn *database.Txn,
	actor string,
	transfer *custody.Transfer,
) error {
	return ls.record(
		txn,
		actor,
		transfer.From,
		event.CustodyTransferredEventType,
		event.CustodyTransferredEvent{
			From:   transfer.From,
			To:     transfer.To,
			Asset:  transfer.Asset,
			Amount: transfer.Amount,
		},
	)
}

// custodyError maps custody failures onto ledger error kinds. Anything not
// listed stays internal
func custodyError(err error) error {
	switch {
	case errors.Is(err, custody.ErrUnderfunded):
		return fmt.Errorf("%w: %w", ErrUnderfunded, err)
	case errors.Is(err, custody.ErrOverflow),
		errors.Is(err, custody.ErrInvalidAmount),
		errors.Is(err, custody.ErrInvalidAccount):
		return InvalidArgumentError{Reason: err.Error()}
	default:
		return err
	}
}
