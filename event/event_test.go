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

package event_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/certledger/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "event channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return event.Event{}
}

func TestEventBusSingleSubscriber(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(event.CertificateMintedEventType)
	eb.Publish(
		event.CertificateMintedEventType,
		event.NewEvent(
			event.CertificateMintedEventType,
			event.CertificateMintedEvent{Id: 1, Holder: "alice"},
		),
	)
	evt := receive(t, subCh)
	data, ok := evt.Data.(event.CertificateMintedEvent)
	require.True(t, ok, "unexpected event data type %T", evt.Data)
	assert.Equal(t, uint64(1), data.Id)
	assert.Equal(t, "alice", data.Holder)
	assert.Equal(t, event.CertificateMintedEventType, evt.Type)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(event.ScholarshipClaimedEventType)
	_, sub2Ch := eb.Subscribe(event.ScholarshipClaimedEventType)
	eb.Publish(
		event.ScholarshipClaimedEventType,
		event.NewEvent(event.ScholarshipClaimedEventType, 999),
	)
	assert.Equal(t, 999, receive(t, sub1Ch).Data)
	assert.Equal(t, 999, receive(t, sub2Ch).Data)
}

func TestEventBusOtherTypeNotDelivered(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(event.CertificateRevokedEventType)
	eb.Publish(
		event.CertificateMintedEventType,
		event.NewEvent(event.CertificateMintedEventType, nil),
	)
	select {
	case evt := <-subCh:
		t.Fatalf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(event.IdentityRegisteredEventType)
	eb.Unsubscribe(event.IdentityRegisteredEventType, subId)
	eb.Publish(
		event.IdentityRegisteredEventType,
		event.NewEvent(event.IdentityRegisteredEventType, nil),
	)
	_, ok := <-subCh
	assert.False(t, ok, "expected closed channel after unsubscribe")
}

func TestEventBusSubscribeFunc(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	var count atomic.Int32
	done := make(chan struct{})
	eb.SubscribeFunc(event.CustodyDepositedEventType, func(evt event.Event) {
		if count.Add(1) == 3 {
			close(done)
		}
	})
	for range 3 {
		eb.Publish(
			event.CustodyDepositedEventType,
			event.NewEvent(event.CustodyDepositedEventType, nil),
		)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for handler")
	}
	// Stop waits for the handler goroutine to exit
	eb.Stop()
	assert.Equal(t, int32(3), count.Load())
	assert.Equal(
		t,
		event.EventSubscriberId(0),
		eb.SubscribeFunc(event.CustodyDepositedEventType, func(event.Event) {}),
	)
}

func TestEventBusPublishAsync(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(event.ScholarshipCreatedEventType)
	ok := eb.PublishAsync(
		event.ScholarshipCreatedEventType,
		event.NewEvent(event.ScholarshipCreatedEventType, "async"),
	)
	require.True(t, ok)
	assert.Equal(t, "async", receive(t, subCh).Data)
}

func TestEventBusStop(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(event.CertificateMintedEventType)
	eb.Stop()
	_, ok := <-subCh
	assert.False(t, ok)
	assert.False(
		t,
		eb.PublishAsync(
			event.CertificateMintedEventType,
			event.NewEvent(event.CertificateMintedEventType, nil),
		),
	)
	// Stop is idempotent
	eb.Stop()
}

func TestEventBusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(event.CertificateMintedEventType)
	for range event.EventQueueSize + 2 {
		eb.Publish(
			event.CertificateMintedEventType,
			event.NewEvent(event.CertificateMintedEventType, nil),
		)
	}
	assert.Len(t, subCh, event.EventQueueSize)
	count, err := testutil.GatherAndCount(
		reg,
		"certledger_event_published_total",
		"certledger_event_delivery_errors_total",
		"certledger_event_subscribers",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
