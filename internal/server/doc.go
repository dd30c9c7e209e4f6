// Package server is the HTTP and WebSocket transport of the chat relay.
//
// It upgrades chat connections with gorilla/websocket, adapts them to
// chat.Conn, and serves the identity cookie endpoints, the static pages,
// health and metrics.
package server
