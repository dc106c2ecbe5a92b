// Package gsstats tracks counters for the manager and transceiver
// packages and exposes them both as an in-memory snapshot and as
// Prometheus metrics.
package gsstats

import "sync/atomic"

// Stats is the atomic counter set a Manager and its transceivers report
// into. All methods are safe for concurrent use.
type Stats struct {
	framesEncoded  int64
	framesDecoded  int64
	decodeErrors   int64
	encodeFull     int64
	transportErrors int64

	unregisteredUpdates int64
	unregisteredUnknown int64
	registrationConflicts int64

	retransmits map[string]*int64
	renders     map[string]*int64
}

// retransmitReasons and renderOutcomes list every retransmit-reason and
// render-outcome label this package pre-allocates a counter for, so Inc*
// calls never race on map insertion.
var retransmitReasons = []string{
	"grace_period", "receive_only", "send_only_emit", "send_only_no_local",
	"empty", "no_local", "no_remote", "newer_local", "recent_remote", "expired_remote",
}

var renderOutcomes = []string{"local", "remote", "suppressed", "none"}

// New returns a zeroed Stats with every counter label pre-allocated.
func New() *Stats {
	s := &Stats{
		retransmits: make(map[string]*int64, len(retransmitReasons)),
		renders:     make(map[string]*int64, len(renderOutcomes)),
	}
	for _, r := range retransmitReasons {
		var v int64
		s.retransmits[r] = &v
	}
	for _, r := range renderOutcomes {
		var v int64
		s.renders[r] = &v
	}
	return s
}

func (s *Stats) IncFramesEncoded()    { atomic.AddInt64(&s.framesEncoded, 1) }
func (s *Stats) IncFramesDecoded()    { atomic.AddInt64(&s.framesDecoded, 1) }
func (s *Stats) IncDecodeErrors()     { atomic.AddInt64(&s.decodeErrors, 1) }
func (s *Stats) IncEncodeFull()       { atomic.AddInt64(&s.encodeFull, 1) }
func (s *Stats) IncTransportErrors()  { atomic.AddInt64(&s.transportErrors, 1) }

func (s *Stats) IncUnregisteredUpdate()  { atomic.AddInt64(&s.unregisteredUpdates, 1) }
func (s *Stats) IncUnregisteredUnknown() { atomic.AddInt64(&s.unregisteredUnknown, 1) }
func (s *Stats) IncRegistrationConflict() {
	atomic.AddInt64(&s.registrationConflicts, 1)
}

// IncRetransmit increments the counter for a retransmit reason label. An
// unrecognized label is a no-op rather than a panic, since this is fed
// by a label mapping at a call site this package does not control.
func (s *Stats) IncRetransmit(reason string) {
	if v, ok := s.retransmits[reason]; ok {
		atomic.AddInt64(v, 1)
	}
}

// IncRender increments the counter for a render outcome label.
func (s *Stats) IncRender(outcome string) {
	if v, ok := s.renders[outcome]; ok {
		atomic.AddInt64(v, 1)
	}
}

// Snapshot is a point-in-time, JSON-friendly copy of every counter.
type Snapshot struct {
	FramesEncoded    int64            `json:"frames_encoded"`
	FramesDecoded    int64            `json:"frames_decoded"`
	DecodeErrors     int64            `json:"decode_errors"`
	EncodeFull       int64            `json:"encode_full"`
	TransportErrors  int64            `json:"transport_errors"`

	UnregisteredUpdates   int64 `json:"unregistered_updates"`
	UnregisteredUnknown   int64 `json:"unregistered_unknown"`
	RegistrationConflicts int64 `json:"registration_conflicts"`

	Retransmits map[string]int64 `json:"retransmits_by_reason"`
	Renders     map[string]int64 `json:"renders_by_outcome"`
}

// Snapshot copies every counter atomically (with respect to each
// individual counter; the set as a whole is not a single atomic unit,
// matching the teacher's own json.Stats.Snapshot contract).
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		FramesEncoded:         atomic.LoadInt64(&s.framesEncoded),
		FramesDecoded:         atomic.LoadInt64(&s.framesDecoded),
		DecodeErrors:          atomic.LoadInt64(&s.decodeErrors),
		EncodeFull:            atomic.LoadInt64(&s.encodeFull),
		TransportErrors:       atomic.LoadInt64(&s.transportErrors),
		UnregisteredUpdates:   atomic.LoadInt64(&s.unregisteredUpdates),
		UnregisteredUnknown:   atomic.LoadInt64(&s.unregisteredUnknown),
		RegistrationConflicts: atomic.LoadInt64(&s.registrationConflicts),
		Retransmits:           make(map[string]int64, len(s.retransmits)),
		Renders:               make(map[string]int64, len(s.renders)),
	}
	for k, v := range s.retransmits {
		snap.Retransmits[k] = atomic.LoadInt64(v)
	}
	for k, v := range s.renders {
		snap.Renders[k] = atomic.LoadInt64(v)
	}
	return snap
}

// Reset atomically sets every counter back to 0.
func (s *Stats) Reset() {
	atomic.StoreInt64(&s.framesEncoded, 0)
	atomic.StoreInt64(&s.framesDecoded, 0)
	atomic.StoreInt64(&s.decodeErrors, 0)
	atomic.StoreInt64(&s.encodeFull, 0)
	atomic.StoreInt64(&s.transportErrors, 0)
	atomic.StoreInt64(&s.unregisteredUpdates, 0)
	atomic.StoreInt64(&s.unregisteredUnknown, 0)
	atomic.StoreInt64(&s.registrationConflicts, 0)
	for _, v := range s.retransmits {
		atomic.StoreInt64(v, 0)
	}
	for _, v := range s.renders {
		atomic.StoreInt64(v, 0)
	}
}
