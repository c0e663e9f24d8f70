package testutil

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	// Verify nil error doesn't cause issues
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	// Verify non-nil error is handled correctly
	AssertError(t, errors.New("test error"))
}

func TestEventually_ConditionAlreadyTrue(t *testing.T) {
	t.Parallel()

	Eventually(t, time.Second, func() bool { return true }, "immediate condition timed out")
}

func TestEventually_ConditionBecomesTrue(t *testing.T) {
	t.Parallel()

	var flag atomic.Bool
	go func() {
		time.Sleep(5 * time.Millisecond)
		flag.Store(true)
	}()

	Eventually(t, time.Second, flag.Load, "flag never observed true")
}
