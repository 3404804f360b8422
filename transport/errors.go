package transport

import "errors"

var (
	// ErrConnClosed indicates the connection is closed or was never established.
	ErrConnClosed = errors.New("transport: connection closed")

	// ErrSendTimeout indicates the outgoing queue stayed full for the whole send timeout.
	ErrSendTimeout = errors.New("transport: send timeout")

	// ErrMessageTooLarge indicates the frame exceeds the maximum message size.
	ErrMessageTooLarge = errors.New("transport: message too large")

	// ErrMessageEmpty indicates an empty frame.
	ErrMessageEmpty = errors.New("transport: message is empty")

	// ErrFrameTruncated indicates the peer closed the stream in the middle of a frame.
	ErrFrameTruncated = errors.New("transport: frame truncated")

	// ErrInvalidKind indicates a message without kind.
	ErrInvalidKind = errors.New("transport: message kind is empty")
)
