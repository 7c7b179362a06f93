package scale

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSource struct {
	weight     float64
	ok         bool
	connectErr error

	connects    int
	disconnects int
}

func (s *stubSource) Connect() error {
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connects++
	return nil
}

func (s *stubSource) Disconnect() error {
	s.disconnects++
	return nil
}

func (s *stubSource) ReadWeight() (float64, bool) {
	return s.weight, s.ok
}

func TestMonitorPollWhileDisconnected(t *testing.T) {
	src := &stubSource{weight: 1234.5, ok: true}
	m := NewMonitor(src, nil, time.Second)

	reading := m.Poll()
	require.False(t, reading.OK)
	require.False(t, m.Connected())
}

func TestMonitorPollAfterConnect(t *testing.T) {
	src := &stubSource{weight: 1234.5, ok: true}
	m := NewMonitor(src, nil, time.Second)

	require.NoError(t, m.Connect())
	require.True(t, m.Connected())

	reading := m.Poll()
	require.True(t, reading.OK)
	require.InDelta(t, 1234.5, reading.Weight, 0.001)
	require.False(t, reading.At.IsZero())

	current := m.Current()
	require.Equal(t, reading, current)
}

func TestMonitorConnectIdempotent(t *testing.T) {
	src := &stubSource{}
	m := NewMonitor(src, nil, time.Second)

	require.NoError(t, m.Connect())
	require.NoError(t, m.Connect())
	require.Equal(t, 1, src.connects)
}

func TestMonitorConnectError(t *testing.T) {
	src := &stubSource{connectErr: errors.New("port busy")}
	m := NewMonitor(src, nil, time.Second)

	require.Error(t, m.Connect())
	require.False(t, m.Connected())
}

func TestMonitorDisconnectClearsReading(t *testing.T) {
	src := &stubSource{weight: 800, ok: true}
	m := NewMonitor(src, nil, time.Second)

	require.NoError(t, m.Connect())
	m.Poll()
	require.True(t, m.Current().OK)

	require.NoError(t, m.Disconnect())
	require.False(t, m.Connected())
	require.False(t, m.Current().OK)
	require.Equal(t, 1, src.disconnects)

	// Polls while disconnected never touch the source.
	reading := m.Poll()
	require.False(t, reading.OK)
}

func TestMonitorReportsParserFailures(t *testing.T) {
	src := &stubSource{weight: 0, ok: false}
	m := NewMonitor(src, nil, time.Second)

	require.NoError(t, m.Connect())
	reading := m.Poll()
	require.False(t, reading.OK)
}
