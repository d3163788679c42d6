package stack

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

// T is the part of testing.T that components assert and clean up with.
// A *testing.T satisfies it, and ToolingT serves tools and TestMain.
type T interface {
	Errorf(format string, args ...interface{})
	FailNow()
	Cleanup(fn func())
	Logf(format string, args ...any)
	Helper()
	Name() string
}

var _ require.TestingT = T(nil)

// ErrToolingFailed is the panic value of ToolingT.FailNow.
var ErrToolingFailed = errors.New("devstack tooling failed")

// ToolingT is a T outside of go test. Assertion errors are logged, and
// FailNow panics with ErrToolingFailed for the owner to recover.
type ToolingT struct {
	name string
	log  log.Logger

	mu       sync.Mutex
	failures int
	cleanups []func()
}

var _ T = (*ToolingT)(nil)

func NewToolingT(name string, logger log.Logger) *ToolingT {
	return &ToolingT{name: name, log: logger}
}

func (t *ToolingT) Logger() log.Logger {
	return t.log
}

func (t *ToolingT) Errorf(format string, args ...interface{}) {
	t.mu.Lock()
	t.failures++
	t.mu.Unlock()
	t.log.Error(fmt.Sprintf(format, args...))
}

// Failed reports whether Errorf was called.
func (t *ToolingT) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures > 0
}

func (t *ToolingT) FailNow() {
	panic(ErrToolingFailed)
}

func (t *ToolingT) Cleanup(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanups = append(t.cleanups, fn)
}

func (t *ToolingT) pop() func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.cleanups)
	if n == 0 {
		return nil
	}
	fn := t.cleanups[n-1]
	t.cleanups = t.cleanups[:n-1]
	return fn
}

// RunCleanup runs the registered cleanups, last registered first. Cleanups
// may register more cleanups. A panicking cleanup does not stop the others;
// the panics are returned as one error.
func (t *ToolingT) RunCleanup() error {
	var errs []error
	for fn := t.pop(); fn != nil; fn = t.pop() {
		if err := runCleanup(fn); err != nil {
			t.log.Error("Cleanup panicked", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func runCleanup(fn func()) (err error) {
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("cleanup panic: %v", x)
		}
	}()
	fn()
	return nil
}

func (t *ToolingT) Logf(format string, args ...any) {
	t.log.Info(fmt.Sprintf(format, args...))
}

func (t *ToolingT) Helper() {}

func (t *ToolingT) Name() string {
	return t.name
}
