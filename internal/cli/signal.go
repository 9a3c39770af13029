package cli

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SignalContext is cancelled on SIGINT or SIGTERM and remembers which one arrived.
// It can be used wherever signal.NotifyContext would be.
type SignalContext struct {
	context.Context
	Cancel   context.CancelFunc
	received atomic.Pointer[os.Signal]
}

// NewSignalContext derives a SignalContext from parent.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, shutdownSignals...)
	go sc.await(ch)
	return sc
}

func (sc *SignalContext) await(ch chan os.Signal) {
	defer signal.Stop(ch)
	select {
	case sig := <-ch:
		sc.received.Store(&sig)
		sc.Cancel()
	case <-sc.Done():
	}
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	if sig := sc.received.Load(); sig != nil {
		return *sig
	}
	return nil
}
