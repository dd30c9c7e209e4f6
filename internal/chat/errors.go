package chat

import "errors"

var (
	// ErrUnauthenticated is returned by Hub.Serve when no identity was supplied.
	ErrUnauthenticated = errors.New("chat: connection has no identity")

	// ErrUnknownConnection is returned by Registry.Disconnect when the id is
	// not registered, i.e. a double disconnect or disconnect without connect.
	ErrUnknownConnection = errors.New("chat: unknown connection")

	// ErrRegistryClosed is returned by Registry.Connect once the registry is shut down.
	ErrRegistryClosed = errors.New("chat: registry closed")

	// ErrMalformedMessage marks an inbound frame that is not a JSON object.
	ErrMalformedMessage = errors.New("chat: malformed message")

	// ErrConnClosed is returned by a handle whose connection is already gone.
	ErrConnClosed = errors.New("chat: connection closed")

	// ErrSendQueueFull is returned by a handle that dropped its connection
	// because the outbound queue overflowed.
	ErrSendQueueFull = errors.New("chat: send queue full")
)
