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

package custody_test

import (
	"testing"

	"github.com/blinklabs-io/certledger/custody"
	"github.com/blinklabs-io/certledger/database"
	"github.com/blinklabs-io/certledger/internal/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*database.Database, *custody.Custodian) {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	return db, custody.New(db, nil)
}

func balance(t *testing.T, db *database.Database, c *custody.Custodian, account, asset string) uint64 {
	t.Helper()
	txn := database.NewMetadataOnlyTxn(db, false)
	defer txn.Release()
	ret, err := c.Balance(txn, account, asset)
	require.NoError(t, err)
	return ret
}

func TestDepositAndTransfer(t *testing.T) {
	db, c := setup(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		bal, err := c.Deposit(txn, "alice", "", 100)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), bal)
		bal, err = c.Deposit(txn, "alice", custody.NativeAsset, 50)
		require.NoError(t, err)
		assert.Equal(t, uint64(150), bal)
		transfer, err := c.Transfer(txn, "alice", "bob", "", 40)
		require.NoError(t, err)
		assert.Equal(t, custody.NativeAsset, transfer.Asset)
		return nil
	}))
	assert.Equal(t, uint64(110), balance(t, db, c, "alice", ""))
	assert.Equal(t, uint64(40), balance(t, db, c, "bob", custody.NativeAsset))
}

func TestTransferInsufficient(t *testing.T) {
	db, c := setup(t)
	txn := db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := c.Deposit(txn, "alice", "", 10); err != nil {
			return err
		}
		_, err := c.Transfer(txn, "alice", "bob", "", 11)
		return err
	})
	require.ErrorIs(t, err, custody.ErrInsufficientFunds)
	// The deposit rolled back with the failed transfer
	assert.Zero(t, balance(t, db, c, "alice", ""))
}

func TestInvalidArguments(t *testing.T) {
	db, c := setup(t)
	txn := db.Transaction(true)
	defer txn.Release()
	_, err := c.Deposit(txn, "", "", 1)
	assert.ErrorIs(t, err, custody.ErrInvalidAccount)
	_, err = c.Deposit(txn, "alice", "", 0)
	assert.ErrorIs(t, err, custody.ErrInvalidAmount)
	_, err = c.Transfer(txn, "alice", "", "", 1)
	assert.ErrorIs(t, err, custody.ErrInvalidAccount)
	assert.ErrorIs(t, c.Approve(txn, "", "tok", 1), custody.ErrInvalidAccount)
}

func TestDepositOverflow(t *testing.T) {
	db, c := setup(t)
	txn := db.Transaction(true)
	defer txn.Release()
	_, err := c.Deposit(txn, "alice", "", custody.MaxAmount)
	require.NoError(t, err)
	_, err = c.Deposit(txn, "alice", "", 1)
	assert.ErrorIs(t, err, custody.ErrOverflow)
}

func TestFundNative(t *testing.T) {
	db, c := setup(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		_, err := c.Deposit(txn, "sponsor", "", 500)
		return err
	}))

	testDefs := []struct {
		name    string
		funding uint64
		total   uint64
		wantErr error
	}{
		{name: "short", funding: 99, total: 100, wantErr: custody.ErrUnderfunded},
		{name: "over", funding: 101, total: 100, wantErr: custody.ErrUnderfunded},
		{name: "balance too low", funding: 1000, total: 1000, wantErr: custody.ErrUnderfunded},
		{name: "exact", funding: 100, total: 100},
	}
	for _, test := range testDefs {
		t.Run(test.name, func(t *testing.T) {
			txn := db.Transaction(true)
			err := txn.Do(func(txn *database.Txn) error {
				_, err := c.Fund(txn, "sponsor", 1, "", test.funding, test.total)
				return err
			})
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
	assert.Equal(t, uint64(400), balance(t, db, c, "sponsor", ""))
	assert.Equal(t, uint64(100), balance(t, db, c, custody.EscrowAccount(1), ""))
}

func TestFundToken(t *testing.T) {
	const asset = "token:scholar"
	db, c := setup(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		if _, err := c.Deposit(txn, "sponsor", asset, 1000); err != nil {
			return err
		}
		return c.Approve(txn, "sponsor", asset, 250)
	}))

	txn = db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		_, err := c.Fund(txn, "sponsor", 7, asset, 0, 300)
		return err
	})
	require.ErrorIs(t, err, custody.ErrUnderfunded)

	txn = db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		_, err := c.Fund(txn, "sponsor", 7, asset, 0, 200)
		return err
	}))
	assert.Equal(t, uint64(800), balance(t, db, c, "sponsor", asset))
	assert.Equal(t, uint64(200), balance(t, db, c, custody.EscrowAccount(7), asset))

	rtxn := database.NewMetadataOnlyTxn(db, false)
	defer rtxn.Release()
	allowance, err := c.Allowance(rtxn, "sponsor", asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), allowance)
}

func TestDisburse(t *testing.T) {
	db, c := setup(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		if _, err := c.Deposit(txn, "sponsor", "", 100); err != nil {
			return err
		}
		if _, err := c.Fund(txn, "sponsor", 3, "", 100, 100); err != nil {
			return err
		}
		_, err := c.Disburse(txn, 3, "student", "", 33)
		return err
	}))
	assert.Equal(t, uint64(67), balance(t, db, c, custody.EscrowAccount(3), ""))
	assert.Equal(t, uint64(33), balance(t, db, c, "student", ""))
}

func TestEscrowAccount(t *testing.T) {
	assert.Equal(t, "escrow/scholarship/42", custody.EscrowAccount(42))
	assert.True(t, custody.IsNative(""))
	assert.True(t, custody.IsNative(custody.NativeAsset))
	assert.False(t, custody.IsNative("token:x"))
}
