package plugin

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/pilot-core/internal/controller"
)

// stubController satisfies controller.Controller for factory tests.
type stubController struct{}

func (stubController) OnConfigure() error         { return nil }
func (stubController) OnActivate() error          { return nil }
func (stubController) OnDeactivate() error        { return nil }
func (stubController) OnCleanup() error           { return nil }
func (stubController) OnShutdown() error          { return nil }
func (stubController) Update(time.Duration) error { return nil }

func okConstructor() (controller.Controller, error) {
	return stubController{}, nil
}

func TestFactoryRegister(t *testing.T) {
	f := NewFactory()

	if err := f.Register("", okConstructor); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType for empty name, got %v", err)
	}
	if err := f.Register("test/stub", nil); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType for nil constructor, got %v", err)
	}
	if err := f.Register("test/stub", okConstructor); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.Register("test/stub", okConstructor); !errors.Is(err, ErrTypeExists) {
		t.Fatalf("expected ErrTypeExists, got %v", err)
	}
}

func TestFactoryMustRegister(t *testing.T) {
	f := NewFactory()
	f.MustRegister("test/stub", okConstructor)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate MustRegister")
		}
	}()
	f.MustRegister("test/stub", okConstructor)
}

func TestFactoryInstantiate(t *testing.T) {
	f := NewFactory()
	f.MustRegister("test/stub", okConstructor)
	f.MustRegister("test/failing", func() (controller.Controller, error) {
		return nil, errors.New("no resources")
	})
	f.MustRegister("test/nil", func() (controller.Controller, error) {
		return nil, nil
	})
	f.MustRegister("test/panicking", func() (controller.Controller, error) {
		panic("constructor blew up")
	})

	t.Run("known type", func(t *testing.T) {
		c, err := f.Instantiate("test/stub")
		if err != nil || c == nil {
			t.Fatalf("instantiate: c=%v err=%v", c, err)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := f.Instantiate("test/ghost"); !errors.Is(err, ErrUnknownType) {
			t.Fatalf("expected ErrUnknownType, got %v", err)
		}
	})

	t.Run("failing constructor", func(t *testing.T) {
		if _, err := f.Instantiate("test/failing"); !errors.Is(err, ErrConstructionFailed) {
			t.Fatalf("expected ErrConstructionFailed, got %v", err)
		}
	})

	t.Run("nil-returning constructor", func(t *testing.T) {
		if _, err := f.Instantiate("test/nil"); !errors.Is(err, ErrConstructionFailed) {
			t.Fatalf("expected ErrConstructionFailed, got %v", err)
		}
	})

	t.Run("panicking constructor is recovered", func(t *testing.T) {
		c, err := f.Instantiate("test/panicking")
		if c != nil || !errors.Is(err, ErrConstructionFailed) {
			t.Fatalf("expected recovered failure, got c=%v err=%v", c, err)
		}
	})
}

func TestFactoryTypes(t *testing.T) {
	f := NewFactory()
	f.MustRegister("zeta", okConstructor)
	f.MustRegister("alpha", okConstructor)
	f.MustRegister("mid", okConstructor)

	got := f.Types()
	want := []string{"alpha", "mid", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
