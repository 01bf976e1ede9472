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

package event

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSubscriber struct {
	closed bool
}

func (m *mockSubscriber) Deliver(Event) error {
	return errors.New("deliver failed")
}

func (m *mockSubscriber) Close() {
	m.closed = true
}

type panicSubscriber struct{}

func (panicSubscriber) Deliver(Event) error {
	panic("boom")
}

func (panicSubscriber) Close() {}

func TestDeliverFailureUnregisters(t *testing.T) {
	eb := NewEventBus(nil, nil)
	defer eb.Stop()
	sub := &mockSubscriber{}
	subId := eb.RegisterSubscriber("test.fail", sub)
	require.NotZero(t, subId)
	eb.Publish("test.fail", NewEvent("test.fail", "x"))
	eb.mu.RLock()
	_, exists := eb.subscribers["test.fail"][subId]
	eb.mu.RUnlock()
	assert.False(t, exists, "expected subscriber to be removed after deliver failure")
	assert.True(t, sub.closed)
}

func TestDeliverPanicUnregisters(t *testing.T) {
	eb := NewEventBus(nil, nil)
	defer eb.Stop()
	subId := eb.RegisterSubscriber("test.panic", panicSubscriber{})
	require.NotPanics(t, func() {
		eb.Publish("test.panic", NewEvent("test.panic", nil))
	})
	eb.mu.RLock()
	_, exists := eb.subscribers["test.panic"][subId]
	eb.mu.RUnlock()
	assert.False(t, exists)
}

func TestChannelSubscriberDropsWhenFull(t *testing.T) {
	const bufferSize = 5
	var dropped []Event
	sub := newChannelSubscriber(bufferSize, func(evt Event) {
		dropped = append(dropped, evt)
	})
	for i := range bufferSize {
		require.NoError(t, sub.Deliver(NewEvent("test", i)))
	}
	done := make(chan error, 1)
	go func() {
		done <- sub.Deliver(NewEvent("test", "overflow"))
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked on full channel buffer")
	}
	assert.Len(t, sub.ch, bufferSize)
	require.Len(t, dropped, 1)
	assert.Equal(t, "overflow", dropped[0].Data)
}

func TestChannelSubscriberDeliverAfterClose(t *testing.T) {
	sub := newChannelSubscriber(5, nil)
	sub.Close()
	sub.Close()
	assert.NoError(t, sub.Deliver(NewEvent("test", "after-close")))
}

// Publishing while unsubscribing and stopping must neither panic nor block
func TestPublishUnsubscribeRace(t *testing.T) {
	for range 200 {
		eb := NewEventBus(nil, nil)
		typ := EventType("race.test")
		subId, ch := eb.Subscribe(typ)
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := range 10 {
				eb.Publish(typ, NewEvent(typ, j))
			}
		}()
		go func() {
			defer wg.Done()
			eb.Unsubscribe(typ, subId)
			eb.Stop()
		}()
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		wg.Wait()
	}
}

func TestSubscribeFuncStopRace(t *testing.T) {
	for range 200 {
		eb := NewEventBus(nil, nil)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			eb.SubscribeFunc("race.func", func(Event) {})
		}()
		go func() {
			defer wg.Done()
			eb.Stop()
		}()
		wg.Wait()
		eb.Stop()
	}
}
