// Package store defines the client's local persistence capability. It is the
// equivalent of the browser's localStorage: a flat key-value space of small
// JSON-encoded values that survives restarts. Implementations make no
// atomicity promise across keys, which is why the session is persisted as a
// single envelope under one key.
package store

import "errors"

// ErrKeyNotFound is returned by Load when no value exists for the key.
var ErrKeyNotFound = errors.New("key not found")

// Persisted keys. Values are JSON documents.
const (
	KeySession             = "syntopia_session"              // session envelope: user + tokens
	KeyConsciousnessLevel  = "syntopia_consciousness_level"  // current consciousness level
	KeySacredMetrics       = "syntopia_sacred_metrics"       // cached sacred metrics
	KeySynchronicityEvents = "syntopia_synchronicity_events" // bounded event log
)

// Store is a key-value persistence capability.
type Store interface {
	Save(key string, value []byte) error
	Load(key string) ([]byte, error)
	Remove(key string) error
}
