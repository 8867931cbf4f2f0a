package monitor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/tempalert/pkg/monitor"
)

type point struct {
	v  float64
	at time.Duration
}

func logOf(t0 time.Time, points ...point) *monitor.ReadingLog {
	var l monitor.ReadingLog
	for _, p := range points {
		l.Append(monitor.Reading{Value: p.v, At: t0.Add(p.at)})
	}
	return &l
}

func TestDetect(t *testing.T) {
	window := 15 * time.Second

	tests := []struct {
		name   string
		points []point
		delta  float64
		fires  bool
		from   float64
	}{
		{name: "empty", delta: 5},
		{name: "single reading", points: []point{{100, 0}}, delta: 0},
		{name: "rise inside window", points: []point{{10, 0}, {16, 5 * time.Second}}, delta: 5, fires: true, from: 10},
		{name: "rise exactly delta", points: []point{{10, 0}, {15, 5 * time.Second}}, delta: 5, fires: true, from: 10},
		{name: "earlier reading outside window", points: []point{{10, 0}, {14, 20 * time.Second}}, delta: 5},
		{name: "window boundary is inclusive", points: []point{{10, 0}, {16, 15 * time.Second}}, delta: 5, fires: true, from: 10},
		{
			name:   "candidate is the oldest in window",
			points: []point{{0, 0}, {12, 10 * time.Second}, {14, 20 * time.Second}, {18, 24 * time.Second}},
			delta:  5,
			fires:  true,
			from:   12,
		},
		{
			name:   "oldest in window is not the minimum",
			points: []point{{20, 0}, {10, 5 * time.Second}, {22, 10 * time.Second}},
			delta:  5,
		},
		{name: "fall does not fire", points: []point{{20, 0}, {10, 5 * time.Second}}, delta: 5},
		{name: "repeated identical values", points: []point{{10, 0}, {10, time.Second}, {10, 2 * time.Second}}, delta: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := logOf(testEpoch, tt.points...)
			d, fired := l.Detect(tt.delta, window)
			require.Equal(t, tt.fires, fired)
			if tt.fires {
				require.Equal(t, tt.from, d.Candidate.Value)
				require.Equal(t, tt.points[len(tt.points)-1].v, d.Latest.Value)
			}
		})
	}
}

func TestReadingLog_SnapshotIsCopy(t *testing.T) {
	var l monitor.ReadingLog
	_, ok := l.Latest()
	require.False(t, ok)

	l.Append(monitor.Reading{Value: 1, At: testEpoch})
	snap := l.Snapshot()
	snap[0].Value = 99

	latest, ok := l.Latest()
	require.True(t, ok)
	require.Equal(t, 1.0, latest.Value)
	require.Equal(t, 1, l.Len())
}
