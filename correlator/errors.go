package correlator

import "errors"

var (
	// ErrNoConnection is returned when a command is issued on a connection that is not
	// established, or when the connection is lost while the command is outstanding.
	ErrNoConnection = errors.New("no connection")

	// ErrTimeout is returned when no response arrives within the response timeout.
	ErrTimeout = errors.New("response timeout")

	// ErrBusy is returned when a command is issued while another one is outstanding.
	ErrBusy = errors.New("command already outstanding")

	// ErrInvalidArgument is returned for malformed caller input detected before sending.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error kind names reported by ErrorKind.
const (
	KindNoConnection    = "NO_CONNECTION"
	KindTimeout         = "TIMEOUT"
	KindBusy            = "BUSY"
	KindInvalidArgument = "INVALID_ARGUMENT"
	KindUnknown         = "UNKNOWN"
)

// ErrorKind returns the kind name of err, or an empty string for a nil error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoConnection):
		return KindNoConnection
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindUnknown
	}
}
