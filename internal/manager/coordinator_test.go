package manager

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/pilot-core/internal/controller"
)

// fakeController is a test controller with error injection.
type fakeController struct {
	mu sync.Mutex

	activateCalls   int
	deactivateCalls int
	updateCalls     int
	lastDT          time.Duration

	failActivate bool
}

func (f *fakeController) OnConfigure() error { return nil }
func (f *fakeController) OnCleanup() error   { return nil }
func (f *fakeController) OnShutdown() error  { return nil }

func (f *fakeController) OnActivate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failActivate {
		return errors.New("activate refused")
	}
	f.activateCalls++
	return nil
}

func (f *fakeController) OnDeactivate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivateCalls++
	return nil
}

func (f *fakeController) Update(dt time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.lastDT = dt
	return nil
}

func (f *fakeController) updates() (int, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateCalls, f.lastDT
}

// fakeFactory hands out pre-seeded fakeController instances by type name.
type fakeFactory struct {
	mu        sync.Mutex
	instances map[string]*fakeController
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{instances: make(map[string]*fakeController)}
}

func (f *fakeFactory) Instantiate(typeName string) (controller.Controller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.instances[typeName]; ok {
		return c, nil
	}
	c := &fakeController{}
	f.instances[typeName] = c
	return c, nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// newTestCoordinator builds a registry with one inactive and one active
// controller plus a coordinator over them.
func newTestCoordinator(t *testing.T) (*Coordinator, *controller.Registry, *fakeFactory) {
	t.Helper()
	factory := newFakeFactory()
	registry := controller.NewRegistry(factory, 100)

	for _, name := range []string{"idle", "running"} {
		if _, err := registry.Load(name, "test/"+name); err != nil {
			t.Fatalf("loading %s: %v", name, err)
		}
		if err := registry.Configure(name); err != nil {
			t.Fatalf("configuring %s: %v", name, err)
		}
	}
	if err := registry.Activate("running"); err != nil {
		t.Fatalf("activating: %v", err)
	}
	return NewCoordinator(registry), registry, factory
}

func TestSwitchValidation(t *testing.T) {
	t.Run("strict rejects unknown start name synchronously", func(t *testing.T) {
		coord, registry, _ := newTestCoordinator(t)
		err := coord.Switch([]string{"idle", "ghost"}, nil, controller.StrictnessStrict, false, 0)
		if !errors.Is(err, ErrValidationRejected) {
			t.Fatalf("expected ErrValidationRejected, got %v", err)
		}
		if coord.Pending() {
			t.Fatal("rejected request was staged")
		}
		// Nothing stays claimed: the slot is free for other operations.
		if err := registry.Unload("idle"); err != nil {
			t.Fatalf("slot still claimed after rejection: %v", err)
		}
	})

	t.Run("strict rejects start candidate that is not inactive", func(t *testing.T) {
		coord, _, _ := newTestCoordinator(t)
		err := coord.Switch([]string{"running"}, nil, controller.StrictnessStrict, false, 0)
		if !errors.Is(err, ErrValidationRejected) {
			t.Fatalf("expected ErrValidationRejected, got %v", err)
		}
	})

	t.Run("strict rejects stop candidate that is not active", func(t *testing.T) {
		coord, registry, _ := newTestCoordinator(t)
		err := coord.Switch(nil, []string{"idle"}, controller.StrictnessStrict, false, 0)
		if !errors.Is(err, ErrValidationRejected) {
			t.Fatalf("expected ErrValidationRejected, got %v", err)
		}
		if st, _ := registry.State("running"); st != controller.StateActive {
			t.Fatalf("unrelated controller changed state: %s", st)
		}
	})

	t.Run("empty lists succeed immediately without staging", func(t *testing.T) {
		coord, _, _ := newTestCoordinator(t)
		if err := coord.Switch(nil, nil, controller.StrictnessStrict, false, 0); err != nil {
			t.Fatalf("empty switch: %v", err)
		}
		if coord.Pending() {
			t.Fatal("empty request was staged")
		}
	})

	t.Run("best effort reduced to nothing succeeds immediately", func(t *testing.T) {
		coord, _, _ := newTestCoordinator(t)
		err := coord.Switch([]string{"ghost", "running"}, []string{"idle"}, controller.StrictnessBestEffort, false, 0)
		if err != nil {
			t.Fatalf("filtered-to-empty switch: %v", err)
		}
		if coord.Pending() {
			t.Fatal("empty request was staged")
		}
	})
}

func TestSwitchBlocksUntilApplied(t *testing.T) {
	coord, registry, _ := newTestCoordinator(t)

	result := make(chan error, 1)
	go func() {
		result <- coord.Switch([]string{"idle"}, []string{"running"}, controller.StrictnessStrict, false, 0)
	}()
	waitFor(t, coord.Pending, "request to stage")

	// The caller stays blocked and no state changes before the tick.
	select {
	case err := <-result:
		t.Fatalf("switch returned before application: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
	if st, _ := registry.State("idle"); st != controller.StateInactive {
		t.Fatalf("start candidate changed state before tick: %s", st)
	}

	if !coord.ApplyPending() {
		t.Fatal("expected a request to apply")
	}
	if err := <-result; err != nil {
		t.Fatalf("switch result: %v", err)
	}

	if st, _ := registry.State("idle"); st != controller.StateActive {
		t.Fatalf("expected idle active, got %s", st)
	}
	if st, _ := registry.State("running"); st != controller.StateInactive {
		t.Fatalf("expected running inactive, got %s", st)
	}
	if coord.ApplyPending() {
		t.Fatal("second apply found a request")
	}
}

func TestSwitchSingleSlot(t *testing.T) {
	coord, registry, _ := newTestCoordinator(t)
	if _, err := registry.Load("extra", "test/extra"); err != nil {
		t.Fatalf("loading: %v", err)
	}
	if err := registry.Configure("extra"); err != nil {
		t.Fatalf("configuring: %v", err)
	}

	result := make(chan error, 1)
	go func() {
		result <- coord.Switch([]string{"idle"}, nil, controller.StrictnessStrict, false, 0)
	}()
	waitFor(t, coord.Pending, "request to stage")

	err := coord.Switch([]string{"extra"}, nil, controller.StrictnessStrict, false, 0)
	if !errors.Is(err, ErrSwitchInProgress) {
		t.Fatalf("expected ErrSwitchInProgress, got %v", err)
	}
	// The rejected request must not leave claims behind.
	if err := registry.Unload("extra"); err != nil {
		t.Fatalf("slot still claimed after rejected request: %v", err)
	}

	coord.ApplyPending()
	if err := <-result; err != nil {
		t.Fatalf("first switch result: %v", err)
	}
}

func TestSwitchTimeout(t *testing.T) {
	coord, registry, _ := newTestCoordinator(t)

	// No tick consumes the request: it is withdrawn.
	err := coord.Switch([]string{"idle"}, nil, controller.StrictnessStrict, false, 30*time.Millisecond)
	if !errors.Is(err, ErrSwitchTimeout) {
		t.Fatalf("expected ErrSwitchTimeout, got %v", err)
	}
	if coord.Pending() {
		t.Fatal("withdrawn request still staged")
	}
	if st, _ := registry.State("idle"); st != controller.StateInactive {
		t.Fatalf("withdrawn request changed state: %s", st)
	}
	// The claim is released with the withdrawal.
	if err := registry.Configure("idle"); err != nil {
		t.Fatalf("slot still claimed after withdrawal: %v", err)
	}

	// A tick arriving in time applies the request normally.
	result := make(chan error, 1)
	go func() {
		result <- coord.Switch([]string{"idle"}, nil, controller.StrictnessStrict, false, 2*time.Second)
	}()
	waitFor(t, coord.Pending, "request to stage")
	coord.ApplyPending()
	if err := <-result; err != nil {
		t.Fatalf("switch result: %v", err)
	}
}

func TestSwitchHookFailures(t *testing.T) {
	t.Run("strict surfaces activation failure", func(t *testing.T) {
		coord, _, factory := newTestCoordinator(t)
		factory.instances["test/idle"].failActivate = true

		result := make(chan error, 1)
		go func() {
			result <- coord.Switch([]string{"idle"}, []string{"running"}, controller.StrictnessStrict, false, 0)
		}()
		waitFor(t, coord.Pending, "request to stage")
		coord.ApplyPending()

		if err := <-result; !errors.Is(err, ErrSwitchFailed) {
			t.Fatalf("expected ErrSwitchFailed, got %v", err)
		}
	})

	t.Run("best effort absorbs activation failure", func(t *testing.T) {
		coord, registry, factory := newTestCoordinator(t)
		factory.instances["test/idle"].failActivate = true

		result := make(chan error, 1)
		go func() {
			result <- coord.Switch([]string{"idle"}, []string{"running"}, controller.StrictnessBestEffort, false, 0)
		}()
		waitFor(t, coord.Pending, "request to stage")
		coord.ApplyPending()

		if err := <-result; err != nil {
			t.Fatalf("best effort switch result: %v", err)
		}
		// The stop half still applied.
		if st, _ := registry.State("running"); st != controller.StateInactive {
			t.Fatalf("expected running inactive, got %s", st)
		}
	})
}

func TestSwitchOutcomeCallback(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)

	var mu sync.Mutex
	var outcomes []Outcome
	coord.SetOnApplied(func(o Outcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	})

	result := make(chan error, 1)
	go func() {
		result <- coord.Switch([]string{"idle"}, []string{"running"}, controller.StrictnessBestEffort, true, 0)
	}()
	waitFor(t, coord.Pending, "request to stage")
	coord.ApplyPending()
	if err := <-result; err != nil {
		t.Fatalf("switch result: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	o := outcomes[0]
	if len(o.Started) != 1 || o.Started[0] != "idle" {
		t.Fatalf("unexpected started set: %v", o.Started)
	}
	if len(o.Stopped) != 1 || o.Stopped[0] != "running" {
		t.Fatalf("unexpected stopped set: %v", o.Stopped)
	}
	if o.Strictness != controller.StrictnessBestEffort || !o.StartASAP {
		t.Fatalf("request attributes lost: %+v", o)
	}
	if o.Err != nil {
		t.Fatalf("unexpected outcome error: %v", o.Err)
	}
	if o.AppliedAt.Before(o.StagedAt) {
		t.Fatalf("applied before staged: %+v", o)
	}
}
