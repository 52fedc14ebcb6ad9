package safego

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunRecoversPanic(t *testing.T) {
	done := make(chan struct{})
	Run(func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not finish")
	}
}

func TestRunWithRestartRunsFunction(t *testing.T) {
	done := make(chan struct{})
	RunWithRestart(func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestRecoveryWithoutExit(t *testing.T) {
	require.NotPanics(t, func() {
		defer Recovery(false)
		panic("boom")
	})
}
