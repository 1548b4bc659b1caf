package bridge

import "errors"

var (
	// ErrAuthTimeout fires when the daemon sends neither auth_ok nor
	// auth_error within the auth window.
	ErrAuthTimeout = errors.New("bridge authentication timed out")

	// ErrAuthFailed wraps a daemon-reported auth_error message.
	ErrAuthFailed = errors.New("bridge authentication failed")

	// ErrConnectionClosed terminates in-flight streams when the socket
	// drops. The transport itself may reconnect on the next call.
	ErrConnectionClosed = errors.New("bridge connection closed")

	// ErrRunFailed wraps a daemon-reported chat.error for a run.
	ErrRunFailed = errors.New("bridge run failed")

	// ErrNoActiveStream: stream resumption is not supported; any run in
	// flight when the transport goes away is lost.
	ErrNoActiveStream = errors.New("no existing stream to reconnect to")
)
