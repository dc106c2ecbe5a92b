// Package manager multiplexes a set of transceivers over a single
// transport: it decodes inbound frames and routes them to the matching
// transceiver's remote slot, fans a transceiver's outbound updates back
// through the codec onto the transport, and drives periodic retransmit
// across every registered transceiver.
package manager

import (
	"errors"
	"fmt"
	"hash/fnv"

	log "github.com/sirupsen/logrus"

	"github.com/quilvr/gssync/gsobject"
	"github.com/quilvr/gssync/transceiver"
)

const scratchBufferSize = 1500

// Manager is the router described in the package doc. It is safe for
// concurrent use: Deliver, Register, Unregister, Send and RetransmitAll
// may each be called from a different goroutine.
type Manager struct {
	transport  Transport
	debugging  bool
	numWorkers int
	queueSize  int

	byID  byIDMap
	byTag byTagMap
	all   allSet

	sw []*sendWorker

	onUnregisteredUpdate  func(gsobject.GSObject)
	onUnregisteredUnknown func(*gsobject.UnknownObject)

	onFrameDecoded         func(gsobject.GSObject)
	onDecodeError          func(error)
	onEncodeFull           func()
	onTransportError       func(error)
	onRegistrationConflict func()
}

// Option configures optional Manager behavior at construction time.
type Option func(*Manager)

// WithDebugging sets the manager's debugging flag. The flag is only
// stored: logging goes through the package-level logrus logger at its
// configured level whether or not it is set.
func WithDebugging(debugging bool) Option {
	return func(m *Manager) { m.debugging = debugging }
}

// WithWorkers sets the number of outbound send workers. Defaults to 4.
func WithWorkers(n int) Option {
	return func(m *Manager) { m.numWorkers = n }
}

// WithQueueSize sets the per-worker outbound queue depth. Defaults to 64.
func WithQueueSize(n int) Option {
	return func(m *Manager) { m.queueSize = n }
}

// OnUnregisteredUpdate registers the hook fired when a recognized
// (non-UnknownObject) variant arrives with no registered transceiver:
// looked up by ObjectId, or by tag for a variant whose Id() is zero
// (HeadIPD1).
func OnUnregisteredUpdate(fn func(gsobject.GSObject)) Option {
	return func(m *Manager) { m.onUnregisteredUpdate = fn }
}

// OnUnregisteredUnknown registers the hook fired when an unknown-tag
// frame arrives with no transceiver registered for that raw tag.
func OnUnregisteredUnknown(fn func(*gsobject.UnknownObject)) Option {
	return func(m *Manager) { m.onUnregisteredUnknown = fn }
}

// OnFrameDecoded registers the hook fired once per successfully decoded
// inbound frame, before it is routed.
func OnFrameDecoded(fn func(gsobject.GSObject)) Option {
	return func(m *Manager) { m.onFrameDecoded = fn }
}

// OnDecodeError registers the hook fired when Deliver receives a frame
// that fails to decode.
func OnDecodeError(fn func(error)) Option {
	return func(m *Manager) { m.onDecodeError = fn }
}

// OnEncodeFull registers the hook fired when Send's encode step runs out
// of scratch buffer space (gsobject.ErrEncodeFull).
func OnEncodeFull(fn func()) Option {
	return func(m *Manager) { m.onEncodeFull = fn }
}

// OnTransportError registers the hook fired when a send worker's
// underlying Transport.Send call returns an error.
func OnTransportError(fn func(error)) Option {
	return func(m *Manager) { m.onTransportError = fn }
}

// OnRegistrationConflict registers the hook fired when Register or
// RegisterTag rejects a duplicate id or tag.
func OnRegistrationConflict(fn func()) Option {
	return func(m *Manager) { m.onRegistrationConflict = fn }
}

// New constructs a Manager bound to transport and starts its outbound
// send workers.
func New(transport Transport, opts ...Option) *Manager {
	m := &Manager{transport: transport, numWorkers: 4, queueSize: 64}
	for _, opt := range opts {
		opt(m)
	}
	m.byID.init()
	m.byTag.init()
	m.all.init()

	m.sw = make([]*sendWorker, m.numWorkers)
	for i := range m.sw {
		w := &sendWorker{id: i, queue: make(chan sendJob, m.queueSize), transport: transport, onError: m.onTransportError}
		m.sw[i] = w
		go w.run()
	}
	return m
}

// Stop closes every outbound worker's queue, draining in-flight sends.
// It must only be called once, after no further Register/Send calls
// will be made.
func (m *Manager) Stop() {
	for _, w := range m.sw {
		close(w.queue)
	}
}

// Register binds a transceiver to a recognized ObjectId and, optionally,
// a raw tag. It fails with ErrNilIdentity for a zero id, or
// ErrRegistrationConflict if id (or tag, when non-zero) is already
// bound.
func (m *Manager) Register(id gsobject.ObjectId, tag gsobject.Tag, tr *transceiver.Transceiver) error {
	if id == 0 {
		return ErrNilIdentity
	}
	r := &registration{tr: tr, id: id, tag: tag}
	if !m.byID.storeIfAbsent(id, r) {
		m.emitRegistrationConflict()
		return fmt.Errorf("%w: id %d already registered", ErrRegistrationConflict, id)
	}
	if tag != 0 {
		if !m.byTag.storeIfAbsent(tag, r) {
			m.byID.delete(id)
			m.emitRegistrationConflict()
			return fmt.Errorf("%w: tag %d already registered", ErrRegistrationConflict, tag)
		}
	}
	m.all.add(r)
	return nil
}

func (m *Manager) emitRegistrationConflict() {
	if m.onRegistrationConflict != nil {
		m.onRegistrationConflict()
	}
}

// RegisterTag binds a transceiver to a raw unknown tag only, for peers
// that want to reconcile an opaque variant without a recognized
// ObjectId. It fails with ErrRegistrationConflict if tag is already
// bound.
func (m *Manager) RegisterTag(tag gsobject.Tag, tr *transceiver.Transceiver) error {
	r := &registration{tr: tr, tag: tag}
	if !m.byTag.storeIfAbsent(tag, r) {
		m.emitRegistrationConflict()
		return fmt.Errorf("%w: tag %d already registered", ErrRegistrationConflict, tag)
	}
	m.all.add(r)
	return nil
}

// Unregister detaches the transceiver registered under id, removing it
// from every map it was filed in. A dropped transceiver stops
// participating in RetransmitAll.
func (m *Manager) Unregister(id gsobject.ObjectId) {
	r, ok := m.byID.load(id)
	if !ok {
		return
	}
	m.byID.delete(id)
	if r.tag != 0 {
		m.byTag.delete(r.tag)
	}
	m.all.remove(r)
}

// Send is the outbound entry point a host wires a transceiver's
// OnMessageToSend callback to, e.g.:
//
//	tr := transceiver.New(transceiver.Config{
//	    OnMessageToSend: func(o gsobject.AuthoredObject) { mgr.Send(id, o) },
//	})
//
// It encodes obj into a scratch buffer, stamps it with the transport's
// local identifier, and enqueues it on the worker owning id so that a
// single transceiver's sends are never reordered relative to each
// other. Encode or enqueue failures are logged and dropped; they never
// propagate back to the transceiver.
func (m *Manager) Send(id gsobject.ObjectId, obj gsobject.AuthoredObject) {
	enc := gsobject.NewEncoder(scratchBufferSize)
	if err := enc.Encode(obj.Object); err != nil {
		log.WithError(err).WithField("object_id", id).Error("manager: encode failed, dropping frame")
		if errors.Is(err, gsobject.ErrEncodeFull) && m.onEncodeFull != nil {
			m.onEncodeFull()
		}
		return
	}
	msg := EncodedMessage{
		Bytes:  append([]byte(nil), enc.Bytes()...),
		Author: gsobject.AuthorId(m.transport.LocalIdentifier()),
	}

	idx := workerIndexForID(id, len(m.sw))
	select {
	case m.sw[idx].queue <- sendJob{msg: msg}:
	default:
		log.WithField("object_id", id).Warn("manager: outbound queue full, dropping frame")
	}
}

// Deliver decodes buf and routes the resulting object to the matching
// transceiver's remote slot. Decode errors and unregistered routes are
// logged; Deliver never returns an error to the caller because a
// malformed or unroutable inbound frame must never bring the manager
// down.
func (m *Manager) Deliver(msg EncodedMessage) {
	dec := gsobject.NewDecoder(msg.Bytes, nil)
	obj, err := dec.Decode()
	if err != nil {
		log.WithError(err).Debug("manager: dropping undecodable frame")
		if m.onDecodeError != nil {
			m.onDecodeError(err)
		}
		return
	}
	if m.onFrameDecoded != nil {
		m.onFrameDecoded(obj)
	}

	authored := gsobject.AuthoredObject{Object: obj, Author: msg.Author}

	if unknown, ok := obj.(*gsobject.UnknownObject); ok {
		r, found := m.byTag.load(gsobject.Tag(unknown.RawTag))
		if !found {
			if m.onUnregisteredUnknown != nil {
				m.onUnregisteredUnknown(unknown)
			}
			return
		}
		m.deliverSafely(r, authored)
		return
	}

	// Recognized variants without an identity of their own (HeadIPD1)
	// route by their fixed tag instead, the same map an UnknownObject
	// with that tag would have used.
	if obj.Id() == 0 {
		r, found := m.byTag.load(obj.Tag())
		if !found {
			if m.onUnregisteredUpdate != nil {
				m.onUnregisteredUpdate(obj)
			}
			return
		}
		m.deliverSafely(r, authored)
		return
	}

	r, found := m.byID.load(obj.Id())
	if !found {
		if m.onUnregisteredUpdate != nil {
			m.onUnregisteredUpdate(obj)
		}
		return
	}
	m.deliverSafely(r, authored)
}

func (m *Manager) deliverSafely(r *registration, authored gsobject.AuthoredObject) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("manager: recovered from transceiver panic")
		}
	}()
	if err := r.tr.SetRemote(authored); err != nil {
		log.WithError(err).Debug("manager: remote rejected by transceiver")
	}
}

// RetransmitAll calls Retransmit on every registered transceiver,
// isolating and logging any individual failure.
func (m *Manager) RetransmitAll() {
	for _, r := range m.all.snapshot() {
		m.retransmitOne(r)
	}
}

func (m *Manager) retransmitOne(r *registration) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("manager: recovered from retransmit panic")
		}
	}()
	r.tr.Retransmit()
}

// workerIndexForID deterministically maps an ObjectId to a worker slot
// so every send for a given transceiver lands on the same worker,
// preserving per-transceiver send ordering.
func workerIndexForID(id gsobject.ObjectId, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	fmt.Fprintf(h, "%d", id)
	return int(h.Sum32() % uint32(n))
}
