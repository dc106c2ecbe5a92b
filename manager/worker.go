package manager

import log "github.com/sirupsen/logrus"

// sendJob is one outbound frame queued for a sendWorker.
type sendJob struct {
	msg EncodedMessage
}

// sendWorker drains its own queue of outbound frames onto the shared
// transport. Every transceiver is pinned to exactly one worker
// (workerIndexForID), so frames from the same transceiver are always
// sent in the order they were enqueued even though workers run
// concurrently with each other.
type sendWorker struct {
	id        int
	queue     chan sendJob
	transport Transport
	onError   func(error)
}

func (w *sendWorker) run() {
	for job := range w.queue {
		if err := w.transport.Send(job.msg); err != nil {
			log.WithError(err).WithField("worker", w.id).Warn("manager: transport send failed")
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}
