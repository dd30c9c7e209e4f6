// Package chat implements the relay core: the connection Registry, the
// broadcast Dispatcher and the per-connection lifecycle run by Hub.
//
// The package is transport agnostic. The server package adapts WebSocket
// connections to the Conn interface and hands them to Hub.Serve.
package chat
