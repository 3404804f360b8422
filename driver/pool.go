package driver

import (
	"fmt"
	"sync"

	"github.com/arloliu/go-scale/correlator"
	"github.com/arloliu/go-scale/logger"
	"github.com/arloliu/go-scale/scale"
	"github.com/puzpuzpuz/xsync/v3"
)

// Op is an operation run against one scale session. The returned value is reported
// in the Result of the session.
type Op func(s *scale.Session) (any, error)

// Result is the outcome of an operation on one scale.
type Result struct {
	DeviceID string
	Value    any
	Err      error
}

// ReportFunc receives every failed Result of a broadcast, in broadcast order.
type ReportFunc func(op string, res Result)

// Pool holds the sessions of the connected scales in connection order.
//
// Add and Remove are called by the connection handler, Broadcast by operator
// triggers. Broadcasts are serialized: a broadcast starts after the previous one
// finished.
type Pool struct {
	logger logger.Logger
	report ReportFunc

	mu       sync.RWMutex
	sessions []*scale.Session
	index    *xsync.MapOf[string, *scale.Session]

	dispatchMu sync.Mutex
}

// NewPool creates an empty Pool. report may be nil.
func NewPool(l logger.Logger, report ReportFunc) *Pool {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Pool{
		logger: l,
		report: report,
		index:  xsync.NewMapOf[string, *scale.Session](),
	}
}

// Add registers a session at the end of the pool. A session with the same id
// replaces the registered one in place.
func (p *Pool) Add(s *scale.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, loaded := p.index.LoadAndStore(s.ID(), s); loaded {
		for i, cur := range p.sessions {
			if cur.ID() == s.ID() {
				p.sessions[i] = s
				return
			}
		}
	}

	p.sessions = append(p.sessions, s)
}

// Remove unregisters the session with the given id and returns it.
func (p *Pool) Remove(id string) (*scale.Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.index.LoadAndDelete(id)
	if !ok {
		return nil, false
	}

	for i, cur := range p.sessions {
		if cur.ID() == id {
			p.sessions = append(p.sessions[:i], p.sessions[i+1:]...)
			break
		}
	}

	return s, true
}

// Get returns the session with the given id.
func (p *Pool) Get(id string) (*scale.Session, bool) {
	return p.index.Load(id)
}

// Sessions returns a snapshot of the registered sessions in connection order.
func (p *Pool) Sessions() []*scale.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sessions := make([]*scale.Session, len(p.sessions))
	copy(sessions, p.sessions)

	return sessions
}

// Len returns the number of registered sessions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.sessions)
}

// Broadcast runs op on every registered session, one after the other, each one
// completing (or failing) before the next starts. A failure does not stop the
// broadcast. It returns one Result per session in connection order.
//
// A session removed after the broadcast started is not invoked; its Result carries
// correlator.ErrNoConnection.
func (p *Pool) Broadcast(name string, op Op) []Result {
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	sessions := p.Sessions()
	p.logger.Info("broadcast", "op", name, "devices", len(sessions))

	results := make([]Result, 0, len(sessions))
	for _, s := range sessions {
		results = append(results, p.run(name, s, op))
	}

	return results
}

// Exec runs op on one session. It is serialized with broadcasts.
func (p *Pool) Exec(id string, name string, op Op) Result {
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	s, ok := p.Get(id)
	if !ok {
		res := Result{DeviceID: id, Err: fmt.Errorf("%s: %w", id, correlator.ErrNoConnection)}
		p.fail(name, res)

		return res
	}

	return p.run(name, s, op)
}

func (p *Pool) run(name string, s *scale.Session, op Op) Result {
	res := Result{DeviceID: s.ID()}

	if cur, ok := p.Get(s.ID()); !ok || cur != s {
		res.Err = fmt.Errorf("%s: %w", s.ID(), correlator.ErrNoConnection)
		p.fail(name, res)

		return res
	}

	res.Value, res.Err = op(s)
	if res.Err != nil {
		p.fail(name, res)
		return res
	}

	p.logger.Info("device result", "op", name, "device", res.DeviceID, "value", res.Value)

	return res
}

func (p *Pool) fail(name string, res Result) {
	p.logger.Warn("device failed", "op", name, "device", res.DeviceID,
		"error_kind", correlator.ErrorKind(res.Err), "error", res.Err)

	if p.report != nil {
		p.report(name, res)
	}
}
