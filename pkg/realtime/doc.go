// Package realtime pushes registration change notifications to websocket clients.
//
// Registry tracks the live connections. Hub.Notify sends the fixed message
//
//	{"type":"update"}
//
// to every connection that is currently open, skipping the rest without
// removing them. Clients treat the message as a signal to re-fetch the
// registration list over HTTP; no registration data travels over the socket.
//
// Handler upgrades GET /ws requests, registers each socket for its lifetime
// and drains outgoing messages on a per-connection goroutine so that one slow
// client never delays the others.
package realtime
