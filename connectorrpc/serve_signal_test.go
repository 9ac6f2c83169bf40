//go:build unix

package connectorrpc

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotifyStop_ClosesOnSignal(t *testing.T) {
	stop, release := notifyStop(syscall.SIGUSR1)
	defer release()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case <-stop:
	case <-time.After(5 * time.Second):
		t.Fatal("stop channel not closed after signal")
	}
}

func TestNotifyStop_ReleaseEndsWatcher(t *testing.T) {
	stop, release := notifyStop(syscall.SIGUSR2)

	released := make(chan struct{})
	go func() {
		release()
		release()
		close(released)
	}()

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("release did not return")
	}
	select {
	case <-stop:
		t.Fatal("stop closed without a signal")
	default:
	}
}
