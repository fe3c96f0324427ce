package escrow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"
)

func TestKeeperSweepFinalizesOnlyUncontestedSuccesses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	success := f.create(t, 100, 10*day)
	failedFunded := f.create(t, 10_000, day)
	pending := f.create(t, 10_000, 10*day)
	f.donate(t, success, donor1, 150)
	f.donate(t, failedFunded, donor2, 40)
	f.donate(t, pending, donor1, 5)
	f.clock.Advance(2 * day)

	k := NewKeeper(f.engine, time.Minute, zerolog.Nop())
	if n := k.Sweep(ctx); n != 1 {
		t.Fatalf("settled %d campaigns, want 1", n)
	}
	if !f.campaign(t, success).Finalized {
		t.Fatal("successful campaign not finalized")
	}
	if f.campaign(t, failedFunded).Finalized {
		t.Fatal("keeper must not decide a contested campaign")
	}
	if f.campaign(t, pending).Finalized {
		t.Fatal("pending campaign finalized")
	}
	if n := k.Sweep(ctx); n != 0 {
		t.Fatalf("second sweep settled %d", n)
	}
}

func TestKeeperRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	id := f.create(t, 100, day)
	f.donate(t, id, donor1, 100)

	ctx, cancel := context.WithCancel(context.Background())
	k := NewKeeper(f.engine, 5*time.Millisecond, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !f.campaign(t, id).Finalized {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("keeper did not finalize within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
}

func TestKeeperRejectsNonPositiveInterval(t *testing.T) {
	f := newFixture(t)
	if err := NewKeeper(f.engine, 0, zerolog.Nop()).Run(context.Background()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
