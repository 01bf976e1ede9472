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

// Package custody keeps the funds accounting behind scholarships: account
// balances per asset and the allowances sponsors grant to the escrow. All
// movements run inside the caller's database transaction, so a transfer
// commits or rolls back together with the ledger state that caused it.
package custody

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/blinklabs-io/certledger/database"
)

// NativeAsset identifies the chain's native currency. Any other asset string
// is treated as a fungible token reference
const NativeAsset = "native"

// MaxAmount is the largest balance the SQL backends can store
const MaxAmount = math.MaxInt64

const escrowAccountPrefix = "escrow/scholarship/"

var (
	ErrUnderfunded       = errors.New("funding does not cover the total amount")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrOverflow          = errors.New("balance overflow")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidAccount    = errors.New("account must not be empty")
)

// IsNative reports whether the asset refers to the native currency
func IsNative(asset string) bool {
	return asset == "" || asset == NativeAsset
}

// NormalizeAsset maps the empty asset to NativeAsset
func NormalizeAsset(asset string) string {
	if asset == "" {
		return NativeAsset
	}
	return asset
}

// EscrowAccount returns the account holding a scholarship's pooled funds
func EscrowAccount(scholarshipId uint64) string {
	return escrowAccountPrefix + strconv.FormatUint(scholarshipId, 10)
}

// Transfer describes a completed movement of funds
type Transfer struct {
	From   string
	To     string
	Asset  string
	Amount uint64
}

type Custodian struct {
	db     *database.Database
	logger *slog.Logger
}

func New(db *database.Database, logger *slog.Logger) *Custodian {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Custodian{
		db:     db,
		logger: logger.With("component", "custody"),
	}
}

// Balance returns the balance of an account in the given asset
func (c *Custodian) Balance(
	txn *database.Txn,
	account string,
	asset string,
) (uint64, error) {
	return c.db.Metadata().GetBalance(
		account,
		NormalizeAsset(asset),
		txn.Metadata(),
	)
}

// Allowance returns the amount an owner has approved for the escrow
func (c *Custodian) Allowance(
	txn *database.Txn,
	owner string,
	asset string,
) (uint64, error) {
	return c.db.Metadata().GetAllowance(
		owner,
		NormalizeAsset(asset),
		txn.Metadata(),
	)
}

// Deposit credits an account and returns the new balance
func (c *Custodian) Deposit(
	txn *database.Txn,
	account string,
	asset string,
	amount uint64,
) (uint64, error) {
	if account == "" {
		return 0, ErrInvalidAccount
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	asset = NormalizeAsset(asset)
	balance, err := c.credit(txn, account, asset, amount)
	if err != nil {
		return 0, err
	}
	c.logger.Debug(
		"deposit",
		"account", account,
		"asset", asset,
		"amount", amount,
		"balance", balance,
	)
	return balance, nil
}

// Approve sets the amount of a token the escrow may pull from the owner.
// It replaces any previous allowance
func (c *Custodian) Approve(
	txn *database.Txn,
	owner string,
	asset string,
	amount uint64,
) error {
	if owner == "" {
		return ErrInvalidAccount
	}
	return c.db.Metadata().SetAllowance(
		owner,
		NormalizeAsset(asset),
		amount,
		txn.Metadata(),
	)
}

// Transfer moves funds between accounts
func (c *Custodian) Transfer(
	txn *database.Txn,
	from string,
	to string,
	asset string,
	amount uint64,
) (*Transfer, error) {
	if from == "" || to == "" {
		return nil, ErrInvalidAccount
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	asset = NormalizeAsset(asset)
	if err := c.debit(txn, from, asset, amount); err != nil {
		return nil, err
	}
	if _, err := c.credit(txn, to, asset, amount); err != nil {
		return nil, err
	}
	return &Transfer{From: from, To: to, Asset: asset, Amount: amount}, nil
}

// Fund moves a scholarship's total from the sponsor into its escrow account.
// For the native asset the declared funding must equal the total exactly.
// For a token the sponsor's allowance must cover the total and is reduced by
// it. Any shortfall is reported as ErrUnderfunded
func (c *Custodian) Fund(
	txn *database.Txn,
	sponsor string,
	scholarshipId uint64,
	asset string,
	funding uint64,
	total uint64,
) (*Transfer, error) {
	asset = NormalizeAsset(asset)
	if total == 0 {
		return nil, ErrInvalidAmount
	}
	if IsNative(asset) {
		if funding != total {
			return nil, fmt.Errorf(
				"%w: attached %d, required %d",
				ErrUnderfunded,
				funding,
				total,
			)
		}
	} else {
		allowance, err := c.Allowance(txn, sponsor, asset)
		if err != nil {
			return nil, err
		}
		if allowance < total {
			return nil, fmt.Errorf(
				"%w: allowance %d, required %d",
				ErrUnderfunded,
				allowance,
				total,
			)
		}
		if err := c.db.Metadata().SetAllowance(sponsor, asset, allowance-total, txn.Metadata()); err != nil {
			return nil, err
		}
	}
	transfer, err := c.Transfer(
		txn,
		sponsor,
		EscrowAccount(scholarshipId),
		asset,
		total,
	)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, fmt.Errorf("%w: %w", ErrUnderfunded, err)
		}
		return nil, err
	}
	return transfer, nil
}

// Disburse pays a claim from a scholarship's escrow account
func (c *Custodian) Disburse(
	txn *database.Txn,
	scholarshipId uint64,
	to string,
	asset string,
	amount uint64,
) (*Transfer, error) {
	return c.Transfer(txn, EscrowAccount(scholarshipId), to, asset, amount)
}

func (c *Custodian) credit(
	txn *database.Txn,
	account string,
	asset string,
	amount uint64,
) (uint64, error) {
	balance, err := c.db.Metadata().GetBalance(account, asset, txn.Metadata())
	if err != nil {
		return 0, err
	}
	if amount > MaxAmount || balance > MaxAmount-amount {
		return 0, ErrOverflow
	}
	balance += amount
	if err := c.db.Metadata().SetBalance(account, asset, balance, txn.Metadata()); err != nil {
		return 0, err
	}
	return balance, nil
}

func (c *Custodian) debit(
	txn *database.Txn,
	account string,
	asset string,
	amount uint64,
) error {
	balance, err := c.db.Metadata().GetBalance(account, asset, txn.Metadata())
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf(
			"%w: %s holds %d %s, needs %d",
			ErrInsufficientFunds,
			account,
			balance,
			asset,
			amount,
		)
	}
	return c.db.Metadata().SetBalance(account, asset, balance-amount, txn.Metadata())
}
