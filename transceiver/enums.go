package transceiver

// Mode controls which direction of the Transceiver's slots are active.
type Mode int

const (
	// Bidirectional reconciles local and remote updates (the default).
	Bidirectional Mode = iota
	// ReceiveOnly rejects SetLocal; Render always yields the remote slot.
	ReceiveOnly
	// SendOnly rejects SetRemote; Render always yields the local slot.
	SendOnly
)

func (m Mode) String() string {
	switch m {
	case Bidirectional:
		return "Bidirectional"
	case ReceiveOnly:
		return "ReceiveOnly"
	case SendOnly:
		return "SendOnly"
	default:
		return "Unknown"
	}
}

// Algorithm selects how two candidate updates are compared for recency.
type Algorithm int

const (
	// Timestamp compares the message-carried timestamp of each update.
	// It is the default for timestamped variants.
	Timestamp Algorithm = iota
	// Latest compares wall-clock arrival time instead of the carried
	// timestamp; it is the only algorithm meaningful for untimed
	// variants (Mesh1, HeadIPD1, UnknownObject).
	Latest
)

func (a Algorithm) String() string {
	switch a {
	case Timestamp:
		return "Timestamp"
	case Latest:
		return "Latest"
	default:
		return "Unknown"
	}
}

// Reason records why Retransmit did or did not emit a message, for an
// optional caller-supplied counting sink.
type Reason int

const (
	// ReasonNone is the zero value; never reported to a sink.
	ReasonNone Reason = iota
	// ReasonGracePeriod is the first-ever retransmit tick, held back to
	// give a remote update time to arrive.
	ReasonGracePeriod
	// ReasonReceiveOnly is reported on every tick of a ReceiveOnly
	// transceiver, which never retransmits.
	ReasonReceiveOnly
	// ReasonSendOnlyEmit is reported when a SendOnly transceiver emits
	// its last local value.
	ReasonSendOnlyEmit
	// ReasonSendOnlyNoLocal is reported when a SendOnly transceiver has
	// no local value to emit yet.
	ReasonSendOnlyNoLocal
	// ReasonEmpty: neither a local nor a remote value has ever been set;
	// there is nothing to own or emit.
	ReasonEmpty
	// ReasonNoLocal: a remote value exists but no local value has ever
	// been set, so there is nothing local to assert.
	ReasonNoLocal
	// ReasonNoRemote: a local value exists and no remote has ever
	// arrived, so the local owner must keep asserting it.
	ReasonNoRemote
	// ReasonNewerLocal: local is strictly newer than remote, so it is
	// re-emitted to keep other peers in sync.
	ReasonNewerLocal
	// ReasonRecentRemote: remote is at least as new as local, so no
	// retransmit is needed; the remote owner is still live.
	ReasonRecentRemote
	// ReasonExpiredRemote: the remote owner has gone silent past expiry
	// and local takes over, promoting the last remote value to local.
	ReasonExpiredRemote
)

func (r Reason) String() string {
	switch r {
	case ReasonGracePeriod:
		return "GracePeriod"
	case ReasonReceiveOnly:
		return "ReceiveOnly"
	case ReasonSendOnlyEmit:
		return "SendOnlyEmit"
	case ReasonSendOnlyNoLocal:
		return "SendOnlyNoLocal"
	case ReasonEmpty:
		return "Empty"
	case ReasonNoLocal:
		return "NoLocal"
	case ReasonNoRemote:
		return "NoRemote"
	case ReasonNewerLocal:
		return "NewerLocal"
	case ReasonRecentRemote:
		return "RecentRemote"
	case ReasonExpiredRemote:
		return "ExpiredRemote"
	default:
		return "None"
	}
}
