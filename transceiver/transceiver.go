// Package transceiver implements the per-object reconciliation state
// machine: two independently-locked slots (local and remote) that
// Render merges down to a single renderable value, and a periodic
// Retransmit that decides whether a silent owner's last value must be
// re-asserted on the wire.
package transceiver

import (
	"sync"
	"time"

	"github.com/quilvr/gssync/gsobject"
)

// Config configures a new Transceiver. Mode and Algorithm default to
// their zero values (Bidirectional, Timestamp) when left unset.
type Config struct {
	Mode      Mode
	Algorithm Algorithm
	// Expiry is the staleness threshold after which a silent remote
	// owner's last value becomes eligible for takeover.
	Expiry time.Duration
	// Prerendered suppresses Render's local-wins output: when true, a
	// render that would otherwise surface the local value returns nil
	// instead, because the local producer already drew its own frame.
	Prerendered bool
	// Clock is injected for deterministic tests; defaults to SystemClock.
	Clock Clock
	// OnMessageToSend is invoked synchronously, on the calling
	// goroutine, whenever SetLocal or Retransmit produces a value that
	// must cross the wire.
	OnMessageToSend func(gsobject.AuthoredObject)
	// OnRetransmitReason, if set, is invoked once per Retransmit call
	// with the branch it took.
	OnRetransmitReason func(Reason)
	// OnRenderOutcome, if set, is invoked once per Render call with one
	// of "local", "remote", "suppressed", or "none".
	OnRenderOutcome func(string)
}

// Transceiver is the per-object reconciliation state machine described
// in the package doc. It is safe for concurrent use from multiple
// goroutines: SetLocal/SetRemote/Render/Retransmit may each be called
// from a different one.
type Transceiver struct {
	mode        Mode
	algorithm   Algorithm
	expiry      time.Duration
	prerendered bool
	clock       Clock

	onMessageToSend func(gsobject.AuthoredObject)
	onReason        func(Reason)
	onRenderOutcome func(string)

	localMu       sync.Mutex
	local         *gsobject.AuthoredObject
	lastLocal     *gsobject.AuthoredObject
	lastLocalTime time.Time
	haveLastLocal bool

	remoteMu           sync.Mutex
	remote             *gsobject.AuthoredObject
	lastRemote         *gsobject.AuthoredObject
	lastRemoteTime     time.Time
	haveLastRemote     bool
	lastUpdateReceived time.Time

	retransmitMu        sync.Mutex
	lastRetransmitCheck time.Time
}

// New constructs a Transceiver per cfg.
func New(cfg Config) *Transceiver {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock
	}
	return &Transceiver{
		mode:            cfg.Mode,
		algorithm:       cfg.Algorithm,
		expiry:          cfg.Expiry,
		prerendered:     cfg.Prerendered,
		clock:           clock,
		onMessageToSend: cfg.OnMessageToSend,
		onReason:        cfg.OnRetransmitReason,
		onRenderOutcome: cfg.OnRenderOutcome,
	}
}

// Mode reports the transceiver's configured direction.
func (t *Transceiver) Mode() Mode { return t.mode }

func (t *Transceiver) emit(reason Reason) {
	if t.onReason != nil {
		t.onReason(reason)
	}
}

func (t *Transceiver) send(obj gsobject.AuthoredObject) {
	if t.onMessageToSend != nil {
		t.onMessageToSend(obj)
	}
}

// logicalTime computes the comparison time for obj under the configured
// algorithm: the carried timestamp for Timestamp algorithm (falling back
// to now for untimed variants, for which only Latest is meaningful), or
// the wall-clock instant `now` for Latest algorithm.
func (t *Transceiver) logicalTime(obj gsobject.GSObject, now time.Time) time.Time {
	if t.algorithm == Timestamp {
		if ts, ok := obj.(gsobject.Timestamped); ok {
			return ts.Timestamp().Time()
		}
	}
	return now
}

// SetLocal validates and stores a locally-produced update, then
// synchronously fires OnMessageToSend. It fails with ErrModeViolation in
// ReceiveOnly mode, ErrFutureTimestamp if the update's logical time is
// ahead of the wall clock, or ErrNonMonotonic if it is older than the
// last accepted local update; state is unchanged on any failure.
func (t *Transceiver) SetLocal(obj gsobject.AuthoredObject) error {
	if t.mode == ReceiveOnly {
		return ErrModeViolation
	}

	now := t.clock.Now()
	ts := t.logicalTime(obj.Object, now)

	t.localMu.Lock()
	if ts.After(now) {
		t.localMu.Unlock()
		return ErrFutureTimestamp
	}
	if t.haveLastLocal && ts.Before(t.lastLocalTime) {
		t.localMu.Unlock()
		return ErrNonMonotonic
	}
	t.local = &obj
	t.lastLocal = &obj
	t.lastLocalTime = ts
	t.haveLastLocal = true
	t.localMu.Unlock()

	t.send(obj)
	return nil
}

// SetRemote records a remote peer's update. It fails with
// ErrModeViolation in SendOnly mode.
func (t *Transceiver) SetRemote(obj gsobject.AuthoredObject) error {
	if t.mode == SendOnly {
		return ErrModeViolation
	}

	now := t.clock.Now()
	ts := t.logicalTime(obj.Object, now)

	t.remoteMu.Lock()
	t.remote = &obj
	t.lastRemote = &obj
	t.lastRemoteTime = ts
	t.lastUpdateReceived = now
	t.haveLastRemote = true
	t.remoteMu.Unlock()
	return nil
}

// Render returns the chosen renderable value, clearing the local and
// remote slots (but never last_local/last_remote) regardless of outcome.
// See the package doc and spec §4.3.1 for the selection rule.
func (t *Transceiver) Render() *gsobject.AuthoredObject {
	t.localMu.Lock()
	t.remoteMu.Lock()

	var result *gsobject.AuthoredObject
	outcome := "none"

	switch t.mode {
	case SendOnly:
		if t.local != nil {
			result, outcome = t.local, "local"
		}
	case ReceiveOnly:
		if t.remote != nil {
			result, outcome = t.remote, "remote"
		}
	default:
		local, remote := t.local, t.remote
		switch {
		case local == nil && remote == nil:
			outcome = "none"
		case local != nil && remote == nil:
			if t.haveLastRemote && t.lastLocalTime.Before(t.lastRemoteTime) {
				outcome = "suppressed"
			} else {
				result, outcome = local, "local"
			}
		case local == nil && remote != nil:
			if t.haveLastLocal && t.lastRemoteTime.Before(t.lastLocalTime) {
				outcome = "suppressed"
			} else {
				result, outcome = remote, "remote"
			}
		default: // both present; ties favor local
			if t.lastRemoteTime.After(t.lastLocalTime) {
				result, outcome = remote, "remote"
			} else {
				result, outcome = local, "local"
			}
		}
		if t.prerendered && outcome == "local" {
			result, outcome = nil, "suppressed"
		}
	}

	t.local = nil
	t.remote = nil
	t.remoteMu.Unlock()
	t.localMu.Unlock()

	t.emitRender(outcome)
	return result
}

func (t *Transceiver) emitRender(outcome string) {
	if t.onRenderOutcome != nil {
		t.onRenderOutcome(outcome)
	}
}

// Retransmit runs the periodic ownership/takeover decision (spec
// §4.3.2) and returns whether a message was emitted.
func (t *Transceiver) Retransmit() bool {
	switch t.mode {
	case ReceiveOnly:
		t.emit(ReasonReceiveOnly)
		return false
	case SendOnly:
		return t.retransmitSendOnly()
	default:
		return t.retransmitBidirectional()
	}
}

func (t *Transceiver) retransmitSendOnly() bool {
	t.retransmitMu.Lock()
	t.lastRetransmitCheck = t.clock.Now()
	t.retransmitMu.Unlock()

	t.localMu.Lock()
	lastLocal := t.lastLocal
	t.localMu.Unlock()

	if lastLocal == nil {
		t.emit(ReasonSendOnlyNoLocal)
		return false
	}
	t.send(*lastLocal)
	t.emit(ReasonSendOnlyEmit)
	return true
}

func (t *Transceiver) retransmitBidirectional() bool {
	now := t.clock.Now()

	t.retransmitMu.Lock()
	firstTick := t.lastRetransmitCheck.IsZero()
	t.lastRetransmitCheck = now
	t.retransmitMu.Unlock()

	if firstTick {
		t.emit(ReasonGracePeriod)
		return false
	}

	t.localMu.Lock()
	t.remoteMu.Lock()

	expiredCutoff := now.Add(-t.expiry)
	takeover := t.haveLastRemote && !t.lastUpdateReceived.IsZero() &&
		t.lastUpdateReceived.Before(expiredCutoff) &&
		(!t.haveLastLocal || t.lastLocalTime.Before(t.lastUpdateReceived))

	if takeover {
		promoted := *t.lastRemote
		t.local = &promoted
		t.lastLocal = &promoted
		t.lastLocalTime = t.lastRemoteTime
		t.haveLastLocal = true

		t.remote = nil
		t.lastRemote = nil
		t.haveLastRemote = false
		t.lastUpdateReceived = time.Time{}

		t.remoteMu.Unlock()
		t.localMu.Unlock()

		t.send(promoted)
		t.emit(ReasonExpiredRemote)
		return true
	}

	if !t.haveLastLocal {
		haveRemote := t.haveLastRemote
		t.remoteMu.Unlock()
		t.localMu.Unlock()
		if haveRemote {
			t.emit(ReasonNoLocal)
		} else {
			t.emit(ReasonEmpty)
		}
		return false
	}

	if !t.haveLastRemote {
		toSend := *t.lastLocal
		t.remoteMu.Unlock()
		t.localMu.Unlock()
		t.send(toSend)
		t.emit(ReasonNoRemote)
		return true
	}

	tL, tR := t.lastLocalTime, t.lastRemoteTime
	t.remoteMu.Unlock()
	if tL.After(tR) {
		toSend := *t.lastLocal
		t.localMu.Unlock()
		t.send(toSend)
		t.emit(ReasonNewerLocal)
		return true
	}
	t.localMu.Unlock()
	t.emit(ReasonRecentRemote)
	return false
}
