// Package demo implements the interactive demo engine.
//
// A Store of ephemeral sessions (LRU-capped, TTL-bound) feeds a connection
// Registry with global and per-session caps; a Router fans simulator
// snapshots out to live websocket connections with a drop-oldest overflow
// policy; a Reaper retires expired and idle sessions. One simulator tick loop
// runs per session with at least one viewer.
package demo
