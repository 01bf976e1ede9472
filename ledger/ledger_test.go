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
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/certledger/auth"
	"github.com/blinklabs-io/certledger/event"
	"github.com/blinklabs-io/certledger/internal/test/testutil"
	"github.com/stretchr/testify/require"
)

var (
	testAdmin     = auth.NewCaller("admin", auth.RoleAdmin)
	testRegistrar = auth.NewCaller("registrar", auth.RoleRegistrar)
	testIssuer    = auth.NewCaller("issuer-1", auth.RoleIssuer)
	testSponsor   = auth.NewCaller("sponsor-1", auth.RoleSponsor)
	testEpoch     = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
)

// testClock is a settable clock shared by a ledger and its test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testLedger struct {
	*LedgerState
	bus   *event.EventBus
	clock *testClock
}

func newTestLedger(t *testing.T, opts ...func(*LedgerStateConfig)) *testLedger {
	t.Helper()
	clock := &testClock{now: testEpoch}
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(bus.Stop)
	cfg := LedgerStateConfig{
		Database: testutil.NewTestDatabase(t),
		EventBus: bus,
		Clock:    clock.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	ls, err := NewLedgerState(cfg)
	require.NoError(t, err)
	return &testLedger{
		LedgerState: ls,
		bus:         bus,
		clock:       clock,
	}
}

func withStrictRevoke(cfg *LedgerStateConfig) {
	cfg.RevokePolicy = RevokePolicyStrict
}

func withRegisteredHolders(cfg *LedgerStateConfig) {
	cfg.RequireRegisteredHolder = true
}

func (l *testLedger) register(t *testing.T, key string, department string) {
	t.Helper()
	_, err := l.RegisterIdentity(
		context.Background(),
		testRegistrar,
		RegisterIdentityInput{
			EnrollmentDate: testEpoch.AddDate(-2, 0, 0),
			IdentityKey:    key,
			Name:           "Student " + key,
			Department:     department,
		},
	)
	require.NoError(t, err)
}

// mintSgpa mints a single-course semester certificate whose SGPA equals
// points
func (l *testLedger) mintSgpa(t *testing.T, holder string, serial string, points uint64) uint64 {
	t.Helper()
	id, err := l.MintSemester(
		context.Background(),
		testIssuer,
		MintSemesterInput{
			Holder:   holder,
			SerialNo: serial,
			MemoNo:   "memo-" + serial,
			Courses: []Course{
				{
					CourseCode:      "CS" + serial,
					CourseTitle:     "Course " + serial,
					Status:          "Pass",
					GradePoints:     points,
					CreditsObtained: 4,
				},
			},
		},
	)
	require.NoError(t, err)
	return id
}

func (l *testLedger) journalTypes(t *testing.T) []string {
	t.Helper()
	entries, err := l.Journal(context.Background(), 0, 0)
	require.NoError(t, err)
	ret := make([]string, 0, len(entries))
	for _, entry := range entries {
		ret = append(ret, entry.Type)
	}
	return ret
}

func TestNewLedgerState(t *testing.T) {
	_, err := NewLedgerState(LedgerStateConfig{})
	require.Error(t, err)

	_, err = NewLedgerState(LedgerStateConfig{
		Database:     testutil.NewTestDatabase(t),
		RevokePolicy: "sometimes",
	})
	require.Error(t, err)

	ls, err := NewLedgerState(LedgerStateConfig{
		Database: testutil.NewTestDatabase(t),
	})
	require.NoError(t, err)
	require.Equal(t, RevokePolicyIdempotent, ls.RevokePolicy())
	require.NotNil(t, ls.Database())
}
