// Package server wires the HTTP surface of the site: public pages, the
// contact pipeline, the blog, the demo session API with its WebSocket
// streams, and the GitHub-authenticated admin area.
package server
