// Package simulator implements a fake weighing scale that speaks the scale command
// grammar and connects to a driver like a real device.
package simulator

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-scale/logger"
	"github.com/arloliu/go-scale/scale"
)

// ErrUnstable is returned when the weight is changed before the scale stabilized.
var ErrUnstable = errors.New("scale is not stable yet")

// ScaleOption configures a Scale.
type ScaleOption func(*Scale)

// WithResolution sets the number of decimals of reported values.
func WithResolution(decimals int) ScaleOption {
	return func(s *Scale) { s.resolution = decimals }
}

// WithUnit sets the unit of reported values.
func WithUnit(unit string) ScaleOption {
	return func(s *Scale) { s.unit = unit }
}

// WithStabilizeTime sets how long the scale stays unstable after a weight change.
func WithStabilizeTime(d time.Duration) ScaleOption {
	return func(s *Scale) { s.stabilizeTime = d }
}

// WithScaleLogger sets the logger of the scale.
func WithScaleLogger(l logger.Logger) ScaleOption {
	return func(s *Scale) { s.logger = l }
}

// Scale is the state of a simulated scale.
//
// The reported value is the raw value minus the tare. After the raw value changes
// the scale is unstable for the stabilize time and the reported value carries
// a small noise.
type Scale struct {
	mu sync.Mutex

	display       string
	rawVal        float64
	tareVal       float64
	currentVal    float64
	unstableUntil time.Time

	resolution    int
	unit          string
	stabilizeTime time.Duration

	now    func() time.Time
	rng    *rand.Rand
	logger logger.Logger
}

// NewScale creates a stable scale with zero weight.
func NewScale(opts ...ScaleOption) *Scale {
	s := &Scale{
		resolution:    4,
		unit:          "g",
		stabilizeTime: 5 * time.Second,
		now:           time.Now,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
		logger:        logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ProcessCommand executes a raw command and returns the reply without terminator.
// ok is false when the command has no reply: unknown commands and reset.
func (s *Scale) ProcessCommand(raw string) (reply string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	tokens := strings.Split(raw, scale.Delimiter)
	verb, params := tokens[0], tokens[1:]

	s.mu.Lock()
	defer s.mu.Unlock()

	switch verb {
	case scale.VerbDisplay:
		return s.doDisplay(params), true
	case scale.VerbTare:
		return s.doTare(), true
	case scale.VerbReadStable:
		return s.doReadStable(), true
	case scale.VerbReadNow:
		return s.doReadNow(), true
	case scale.VerbReset:
		s.doReset()
		return "", false
	default:
		s.logger.Warn("unknown command", "command", raw)
		return "", false
	}
}

func (s *Scale) doDisplay(params []string) string {
	if len(params) != 1 {
		return reply(scale.VerbDisplay, scale.StatusLogicalError)
	}

	s.display = params[0]
	s.logger.Info("display", "text", s.display)

	return reply(scale.VerbDisplay, scale.StatusAck)
}

func (s *Scale) doTare() string {
	if !s.isStable() {
		return reply(scale.VerbTare, scale.StatusInvalid)
	}

	s.tareVal += s.currentVal
	s.currentVal = s.rawVal - s.tareVal
	s.logger.Info("tare", "tare", s.tareVal)

	return reply(scale.VerbTare, scale.StatusStable, s.format(s.currentVal), s.unit)
}

func (s *Scale) doReadStable() string {
	if !s.isStable() {
		return reply(scale.VerbReadStable, scale.StatusInvalid)
	}

	return reply(scale.VerbReadStable, scale.StatusStable, s.format(s.currentVal), s.unit)
}

func (s *Scale) doReadNow() string {
	if !s.isStable() {
		return reply(scale.VerbReadStable, scale.StatusDynamic, s.format(s.value()), s.unit)
	}

	return reply(scale.VerbReadStable, scale.StatusStable, s.format(s.currentVal), s.unit)
}

// doReset clears the tare and the current value. It has no reply.
func (s *Scale) doReset() {
	s.currentVal = 0
	s.tareVal = 0
	s.unstableUntil = time.Time{}
	s.logger.Info("reset")
}

// SetRaw sets the absolute weight on the scale and makes it unstable.
func (s *Scale) SetRaw(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setRaw(v)
}

func (s *Scale) setRaw(v float64) {
	if v == s.rawVal {
		return
	}

	s.rawVal = v
	s.currentVal = s.rawVal - s.tareVal
	s.unstableUntil = s.now().Add(s.stabilizeTime)
}

// AddWeight puts delta more weight on the scale.
func (s *Scale) AddWeight(delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isStable() {
		return ErrUnstable
	}
	s.setRaw(s.rawVal + delta)

	return nil
}

// RemoveWeight takes delta weight off the scale. The raw weight never goes below zero.
func (s *Scale) RemoveWeight(delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isStable() {
		return ErrUnstable
	}
	s.setRaw(max(s.rawVal-delta, 0))

	return nil
}

// Randomize puts a random weight in [0, 100) on the scale.
func (s *Scale) Randomize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isStable() {
		return ErrUnstable
	}
	s.setRaw(float64(s.rng.Intn(100)))

	return nil
}

// State is a snapshot of a Scale.
type State struct {
	Display string
	Value   string
	Unit    string
	Tare    float64
	Raw     float64
	Stable  bool
}

// State returns a snapshot of the scale.
func (s *Scale) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Display: s.display,
		Value:   s.format(s.value()),
		Unit:    s.unit,
		Tare:    s.tareVal,
		Raw:     s.rawVal,
		Stable:  s.isStable(),
	}
}

func (s *Scale) isStable() bool {
	return !s.now().Before(s.unstableUntil)
}

// value returns the current value with noise while unstable.
func (s *Scale) value() float64 {
	if s.isStable() {
		return s.currentVal
	}

	noise := float64(s.rng.Intn(10))/1000 - 1.0/500

	return s.currentVal + noise
}

func (s *Scale) format(v float64) string {
	return strconv.FormatFloat(v, 'f', s.resolution, 64)
}

func reply(id string, status string, params ...string) string {
	return strings.Join(append([]string{id, status}, params...), scale.Delimiter)
}
