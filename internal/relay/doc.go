// Package relay moves bytes between two established connections without
// inspecting them.
//
// Each direction is copied independently. EOF on one direction propagates
// as a write-side shutdown on its destination so the opposite direction can
// keep draining; a transport error tears both connections down immediately.
package relay
