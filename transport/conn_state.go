package transport

import (
	"context"
	"sync"
)

// ConnState is the connection state of a Client.
type ConnState uint32

const (
	// NotConnectedState indicates that no connection is established.
	NotConnectedState ConnState = iota
	// ConnectedState indicates that the connection is established and ready to send.
	ConnectedState
)

// IsConnected returns if the state is connected.
func (cs ConnState) IsConnected() bool { return cs == ConnectedState }

// String returns string representation of the state.
func (cs ConnState) String() string {
	switch cs {
	case NotConnectedState:
		return "not-connected"
	case ConnectedState:
		return "connected"
	default:
		return "unknown"
	}
}

// connStateMgr tracks a ConnState and lets callers wait for a transition.
type connStateMgr struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state ConnState
}

func newConnStateMgr() *connStateMgr {
	cs := &connStateMgr{state: NotConnectedState}
	cs.cond = sync.NewCond(&cs.mu)

	return cs
}

func (cs *connStateMgr) State() ConnState {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return cs.state
}

func (cs *connStateMgr) set(state ConnState) {
	cs.mu.Lock()
	cs.state = state
	cs.mu.Unlock()

	cs.cond.Broadcast()
}

// WaitState waits until the state is reached or ctx is done.
func (cs *connStateMgr) WaitState(ctx context.Context, state ConnState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.state == state {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		cs.cond.Broadcast()
	})
	defer stopFunc()

	for cs.state != state {
		if err := ctx.Err(); err != nil {
			return err
		}
		cs.cond.Wait()
	}

	return nil
}
