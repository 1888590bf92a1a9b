// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeNowStandsStill(t *testing.T) {
	fakeClock := Fake(testEpoch)

	if got := fakeClock.Now(); !got.Equal(testEpoch) {
		t.Errorf("Now() = %v, want %v", got, testEpoch)
	}
	if got := fakeClock.Now(); !got.Equal(testEpoch) {
		t.Errorf("Now() moved without Advance: %v", got)
	}
}

func TestFakeAdvanceMovesNow(t *testing.T) {
	fakeClock := Fake(testEpoch)
	fakeClock.Advance(90 * time.Second)

	want := testEpoch.Add(90 * time.Second)
	if got := fakeClock.Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	fakeClock := Fake(testEpoch)

	ch := fakeClock.After(30 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	fakeClock.Advance(30 * time.Second)
	select {
	case fired := <-ch:
		if !fired.Equal(testEpoch.Add(30 * time.Second)) {
			t.Errorf("fire time = %v, want %v", fired, testEpoch.Add(30*time.Second))
		}
	default:
		t.Fatal("After did not fire after Advance")
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	fakeClock := Fake(testEpoch)

	select {
	case <-fakeClock.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
	if fakeClock.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", fakeClock.PendingCount())
	}
}

func TestFakeAdvancePartial(t *testing.T) {
	fakeClock := Fake(testEpoch)

	ch := fakeClock.After(time.Minute)
	fakeClock.Advance(30 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}

	fakeClock.Advance(30 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeSleepBlocksUntilAdvance(t *testing.T) {
	fakeClock := Fake(testEpoch)
	done := make(chan struct{})

	go func() {
		fakeClock.Sleep(5 * time.Second)
		close(done)
	}()

	fakeClock.WaitForTimers(1)
	select {
	case <-done:
		t.Fatal("Sleep returned before Advance")
	default:
	}

	fakeClock.Advance(5 * time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}
