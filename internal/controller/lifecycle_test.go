package controller

import (
	"errors"
	"testing"
)

func TestConfigure(t *testing.T) {
	t.Run("non-loaded name fails", func(t *testing.T) {
		r, _ := newTestRegistry()
		if err := r.Configure("ghost"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("from unconfigured runs configure hook", func(t *testing.T) {
		r, factory := newTestRegistry()
		if _, err := r.Load("c1", "test/ok"); err != nil {
			t.Fatalf("loading: %v", err)
		}
		if err := r.Configure("c1"); err != nil {
			t.Fatalf("configure: %v", err)
		}
		c := factory.last()
		if c.configureCalls != 1 || c.cleanupCalls != 0 {
			t.Fatalf("hook counts: configure=%d cleanup=%d", c.configureCalls, c.cleanupCalls)
		}
		if st, _ := r.State("c1"); st != StateInactive {
			t.Fatalf("expected inactive, got %s", st)
		}
	})

	t.Run("failed configure hook stays unconfigured", func(t *testing.T) {
		r, factory := newTestRegistry()
		if _, err := r.Load("c1", "test/ok"); err != nil {
			t.Fatalf("loading: %v", err)
		}
		factory.last().failConfigure = true

		if err := r.Configure("c1"); !errors.Is(err, ErrConfigureFailed) {
			t.Fatalf("expected ErrConfigureFailed, got %v", err)
		}
		if st, _ := r.State("c1"); st != StateUnconfigured {
			t.Fatalf("expected unconfigured, got %s", st)
		}

		// Retry succeeds once the hook stops failing.
		factory.last().failConfigure = false
		if err := r.Configure("c1"); err != nil {
			t.Fatalf("retry configure: %v", err)
		}
	})

	t.Run("reconfigure runs cleanup then configure", func(t *testing.T) {
		r, factory := newTestRegistry()
		if _, err := r.Load("c1", "test/ok"); err != nil {
			t.Fatalf("loading: %v", err)
		}
		if err := r.Configure("c1"); err != nil {
			t.Fatalf("configure: %v", err)
		}
		if err := r.Configure("c1"); err != nil {
			t.Fatalf("reconfigure: %v", err)
		}
		c := factory.last()
		if c.cleanupCalls != 1 || c.configureCalls != 2 {
			t.Fatalf("hook counts: cleanup=%d configure=%d", c.cleanupCalls, c.configureCalls)
		}
		if st, _ := r.State("c1"); st != StateInactive {
			t.Fatalf("expected inactive, got %s", st)
		}
	})

	t.Run("failed cleanup aborts reconfigure and stays inactive", func(t *testing.T) {
		r, factory := newTestRegistry()
		if _, err := r.Load("c1", "test/ok"); err != nil {
			t.Fatalf("loading: %v", err)
		}
		if err := r.Configure("c1"); err != nil {
			t.Fatalf("configure: %v", err)
		}
		c := factory.last()
		c.failCleanup = true

		if err := r.Configure("c1"); !errors.Is(err, ErrCleanupFailed) {
			t.Fatalf("expected ErrCleanupFailed, got %v", err)
		}
		if st, _ := r.State("c1"); st != StateInactive {
			t.Fatalf("expected inactive, got %s", st)
		}
		if c.configureCalls != 1 {
			t.Fatalf("configure hook ran after failed cleanup: %d", c.configureCalls)
		}
	})

	t.Run("cleanup success then configure failure leaves unconfigured", func(t *testing.T) {
		r, factory := newTestRegistry()
		if _, err := r.Load("c1", "test/ok"); err != nil {
			t.Fatalf("loading: %v", err)
		}
		if err := r.Configure("c1"); err != nil {
			t.Fatalf("configure: %v", err)
		}
		c := factory.last()
		c.failConfigure = true

		if err := r.Configure("c1"); !errors.Is(err, ErrConfigureFailed) {
			t.Fatalf("expected ErrConfigureFailed, got %v", err)
		}
		if st, _ := r.State("c1"); st != StateUnconfigured {
			t.Fatalf("expected unconfigured, got %s", st)
		}
		if c.cleanupCalls != 1 {
			t.Fatalf("expected 1 cleanup call, got %d", c.cleanupCalls)
		}
	})

	t.Run("refused while active", func(t *testing.T) {
		r, factory := newTestRegistry()
		if _, err := r.Load("c1", "test/ok"); err != nil {
			t.Fatalf("loading: %v", err)
		}
		if err := r.Configure("c1"); err != nil {
			t.Fatalf("configure: %v", err)
		}
		if err := r.Activate("c1"); err != nil {
			t.Fatalf("activate: %v", err)
		}
		if err := r.Configure("c1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if st, _ := r.State("c1"); st != StateActive {
			t.Fatalf("state changed on refused configure: %s", st)
		}
		if factory.last().cleanupCalls != 0 {
			t.Fatal("cleanup hook ran on refused configure")
		}
	})

	t.Run("refused after shutdown", func(t *testing.T) {
		r, _ := newTestRegistry()
		if _, err := r.Load("c1", "test/ok"); err != nil {
			t.Fatalf("loading: %v", err)
		}
		if err := r.Shutdown("c1"); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
		if err := r.Configure("c1"); !errors.Is(err, ErrFinalized) {
			t.Fatalf("expected ErrFinalized, got %v", err)
		}
	})
}

func TestActivate(t *testing.T) {
	r, factory := newTestRegistry()
	if _, err := r.Load("c1", "test/ok"); err != nil {
		t.Fatalf("loading: %v", err)
	}

	t.Run("refused from unconfigured", func(t *testing.T) {
		if err := r.Activate("c1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("hook failure stays inactive", func(t *testing.T) {
		if err := r.Configure("c1"); err != nil {
			t.Fatalf("configure: %v", err)
		}
		factory.last().failActivate = true
		if err := r.Activate("c1"); !errors.Is(err, ErrActivateFailed) {
			t.Fatalf("expected ErrActivateFailed, got %v", err)
		}
		if st, _ := r.State("c1"); st != StateInactive {
			t.Fatalf("expected inactive, got %s", st)
		}
	})

	t.Run("success transitions to active", func(t *testing.T) {
		factory.last().failActivate = false
		if err := r.Activate("c1"); err != nil {
			t.Fatalf("activate: %v", err)
		}
		if st, _ := r.State("c1"); st != StateActive {
			t.Fatalf("expected active, got %s", st)
		}
		// Double activate is an error.
		if err := r.Activate("c1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestDeactivate(t *testing.T) {
	r, factory := newTestRegistry()
	if _, err := r.Load("c1", "test/ok"); err != nil {
		t.Fatalf("loading: %v", err)
	}

	t.Run("refused unless active", func(t *testing.T) {
		if err := r.Deactivate("c1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("hook failure still commits the stop", func(t *testing.T) {
		if err := r.Configure("c1"); err != nil {
			t.Fatalf("configure: %v", err)
		}
		if err := r.Activate("c1"); err != nil {
			t.Fatalf("activate: %v", err)
		}
		factory.last().failDeactivate = true
		if err := r.Deactivate("c1"); err != nil {
			t.Fatalf("deactivate: %v", err)
		}
		if st, _ := r.State("c1"); st != StateInactive {
			t.Fatalf("expected inactive, got %s", st)
		}
	})
}

func TestShutdown(t *testing.T) {
	r, factory := newTestRegistry()
	if _, err := r.Load("c1", "test/ok"); err != nil {
		t.Fatalf("loading: %v", err)
	}
	if err := r.Shutdown("c1"); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if st, _ := r.State("c1"); st != StateFinalized {
		t.Fatalf("expected finalized, got %s", st)
	}
	if factory.last().shutdownCalls != 1 {
		t.Fatalf("expected 1 shutdown call, got %d", factory.last().shutdownCalls)
	}

	// Idempotent: a second shutdown succeeds without re-running the hook.
	if err := r.Shutdown("c1"); err != nil {
		t.Fatalf("repeat shutdown: %v", err)
	}
	if factory.last().shutdownCalls != 1 {
		t.Fatalf("shutdown hook ran twice: %d", factory.last().shutdownCalls)
	}
}

func TestObserverNotifications(t *testing.T) {
	type transition struct {
		name     string
		from, to State
	}

	r, _ := newTestRegistry()
	var seen []transition
	r.SetObserver(func(name string, from, to State) {
		seen = append(seen, transition{name, from, to})
	})

	if _, err := r.Load("c1", "test/ok"); err != nil {
		t.Fatalf("loading: %v", err)
	}
	if err := r.Configure("c1"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := r.Activate("c1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := r.Deactivate("c1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := r.Shutdown("c1"); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	want := []transition{
		{"c1", StateUnconfigured, StateInactive},
		{"c1", StateInactive, StateActive},
		{"c1", StateActive, StateInactive},
		{"c1", StateInactive, StateFinalized},
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d: %v", len(want), len(seen), seen)
	}
	for i, w := range want {
		if seen[i] != w {
			t.Fatalf("notification %d: got %+v, want %+v", i, seen[i], w)
		}
	}
}
