package gsstats

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func TestCounters_IncrementAndSnapshot(t *testing.T) {
	s := New()
	s.IncFramesEncoded()
	s.IncFramesEncoded()
	s.IncFramesDecoded()
	s.IncDecodeErrors()
	s.IncUnregisteredUpdate()
	s.IncRetransmit("expired_remote")
	s.IncRetransmit("expired_remote")
	s.IncRender("local")

	snap := s.Snapshot()
	assert.Equal(t, int64(2), snap.FramesEncoded)
	assert.Equal(t, int64(1), snap.FramesDecoded)
	assert.Equal(t, int64(1), snap.DecodeErrors)
	assert.Equal(t, int64(1), snap.UnregisteredUpdates)
	assert.Equal(t, int64(2), snap.Retransmits["expired_remote"])
	assert.Equal(t, int64(0), snap.Retransmits["no_remote"])
	assert.Equal(t, int64(1), snap.Renders["local"])
}

func TestCounters_UnknownLabelIsNoop(t *testing.T) {
	s := New()
	s.IncRetransmit("not_a_real_reason")
	s.IncRender("not_a_real_outcome")

	snap := s.Snapshot()
	for _, v := range snap.Retransmits {
		assert.Equal(t, int64(0), v)
	}
	for _, v := range snap.Renders {
		assert.Equal(t, int64(0), v)
	}
}

func TestCounters_Reset(t *testing.T) {
	s := New()
	s.IncFramesEncoded()
	s.IncRetransmit("no_remote")
	s.Reset()

	snap := s.Snapshot()
	assert.Equal(t, int64(0), snap.FramesEncoded)
	assert.Equal(t, int64(0), snap.Retransmits["no_remote"])
}

func TestPrometheusExporter_RefreshMatchesSnapshot(t *testing.T) {
	s := New()
	s.IncFramesEncoded()
	s.IncRetransmit("newer_local")

	e := NewPrometheusExporter(s)
	e.refresh()

	metric := &dto.Metric{}
	assert.NoError(t, e.framesEncoded.Write(metric))
	assert.Equal(t, 1.0, metric.GetGauge().GetValue())
}
