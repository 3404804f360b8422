package scale

import (
	"fmt"
	"strings"

	"github.com/arloliu/go-scale/correlator"
	"github.com/arloliu/go-scale/logger"
)

// ErrInvalidArgument is returned when an operation is called with malformed input.
// Nothing is sent to the device in that case.
var ErrInvalidArgument = correlator.ErrInvalidArgument

// Session runs the typed operations of one connected scale.
//
// Errors of the correlator (correlator.ErrNoConnection, correlator.ErrTimeout,
// correlator.ErrBusy) are returned unchanged. A reply that does not match the
// expected id and status is not an error: the operation reports false or a nil
// reading.
type Session struct {
	c      *correlator.Correlator
	logger logger.Logger
}

// NewSession creates a Session issuing its commands through c.
func NewSession(c *correlator.Correlator, l logger.Logger) *Session {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Session{
		c:      c,
		logger: l.With("device", c.ID()),
	}
}

// ID returns the connection identity of the scale.
func (s *Session) ID() string { return s.c.ID() }

// Connected reports whether the scale is still connected.
func (s *Session) Connected() bool { return s.c.Connected() }

// Correlator returns the correlator of the session.
func (s *Session) Correlator() *correlator.Correlator { return s.c }

// Send sends a command and returns the decoded reply.
func (s *Session) Send(verb string, args ...string) (Reply, error) {
	raw, err := s.c.Issue(EncodeCommand(verb, args...))
	if err != nil {
		return Reply{}, err
	}

	return DecodeReply(raw), nil
}

// Display shows text on the scale display.
func (s *Session) Display(text string) (bool, error) {
	if text == "" {
		return false, fmt.Errorf("display: %w: text is empty", ErrInvalidArgument)
	}
	if strings.ContainsAny(text, Delimiter+Terminator) {
		return false, fmt.Errorf("display: %w: text contains %q or a line break", ErrInvalidArgument, Delimiter)
	}

	reply, err := s.Send(VerbDisplay, text)
	if err != nil {
		return false, err
	}

	return s.check("display", reply, VerbDisplay, StatusAck), nil
}

// Tare uses the current weight as the new zero point.
func (s *Session) Tare() (bool, error) {
	reply, err := s.Send(VerbTare)
	if err != nil {
		return false, err
	}

	return s.check("tare", reply, VerbTare, StatusStable), nil
}

// Reset clears the tare and the current value.
func (s *Session) Reset() (bool, error) {
	reply, err := s.Send(VerbReset)
	if err != nil {
		return false, err
	}

	return s.check("reset", reply, VerbReset, StatusAck), nil
}

// ReadNow returns the current weight, stable or not. It returns nil if the scale
// did not report a value.
func (s *Session) ReadNow() (*Reading, error) {
	reply, err := s.Send(VerbReadNow)
	if err != nil {
		return nil, err
	}

	if !s.check("read now", reply, VerbReadStable, StatusStable, StatusDynamic) {
		return nil, nil //nolint:nilnil
	}

	return reply.reading(), nil
}

// ReadStable returns the stable weight. It returns nil if the scale is not stable
// or did not report a value.
func (s *Session) ReadStable() (*Reading, error) {
	reply, err := s.Send(VerbReadStable)
	if err != nil {
		return nil, err
	}

	if !s.check("read stable", reply, VerbReadStable, StatusStable) {
		return nil, nil //nolint:nilnil
	}

	return reply.reading(), nil
}

func (s *Session) check(op string, reply Reply, id string, statuses ...string) bool {
	if reply.Is(id, statuses...) {
		return true
	}

	s.logger.Debug("unexpected reply", "method", op, "reply", reply.String())

	return false
}
