// Package ws streams session events to UI clients over WebSocket.
//
// Each connection subscribes to the event bus on upgrade and receives block
// creation, streaming output, and exit notifications as JSON messages.
// Inbound messages drive the active session: raw writes, commands, resize,
// and session switching. A connection never blocks session processing; slow
// clients drop events at the bus.
package ws
