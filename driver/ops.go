package driver

import "github.com/arloliu/go-scale/scale"

// Operation names.
const (
	OpTare       = "tare"
	OpReadStable = "stable"
	OpReadNow    = "now"
	OpReset      = "reset"
	OpDisplay    = "display"
)

// TareOp tares the scale. The value is the success flag.
func TareOp(s *scale.Session) (any, error) {
	return s.Tare()
}

// ResetOp resets the scale. The value is the success flag.
func ResetOp(s *scale.Session) (any, error) {
	return s.Reset()
}

// ReadStableOp reads the stable weight. The value is a *scale.Reading, nil when the
// scale reported none.
func ReadStableOp(s *scale.Session) (any, error) {
	return s.ReadStable()
}

// ReadNowOp reads the current weight. The value is a *scale.Reading, nil when the
// scale reported none.
func ReadNowOp(s *scale.Session) (any, error) {
	return s.ReadNow()
}

// DisplayOp returns an operation showing text on the scale display.
func DisplayOp(text string) Op {
	return func(s *scale.Session) (any, error) {
		return s.Display(text)
	}
}

// Ops returns the parameterless operations by name.
func Ops() map[string]Op {
	return map[string]Op{
		OpTare:       TareOp,
		OpReadStable: ReadStableOp,
		OpReadNow:    ReadNowOp,
		OpReset:      ResetOp,
	}
}
