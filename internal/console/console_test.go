package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/tempalert/pkg/monitor"
)

func TestParseLightZone(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"light 120.5", Command{Signal: monitor.SignalLightReading, Payload: 120.5}},
		{"LIGHT 7", Command{Signal: monitor.SignalLightReading, Payload: 7.0}},
		{"safe false", Command{Signal: monitor.SignalSafeZoneStatus, Payload: false}},
		{"safe TRUE", Command{Signal: monitor.SignalSafeZoneStatus, Payload: true}},
		{"ack true", Command{Signal: monitor.SignalAcknowledge, Payload: true}},
		{"battery 15", Command{Target: TargetBatteryChild, Signal: monitor.SignalBatteryReading, Payload: 15.0}},
		{"Exit", Command{Exit: true}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLightZone(tt.line)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseLightZone_Malformed(t *testing.T) {
	for _, line := range []string{
		"light",
		"light bright",
		"light NaN",
		"safe yes",
		"safe 1",
		"ack",
		"ack maybe",
		"battery low",
		"dim 5",
		"light 1 2",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := ParseLightZone(line)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseTemperature(t *testing.T) {
	got, err := ParseTemperature("21.5")
	require.NoError(t, err)
	require.Equal(t, Command{Signal: monitor.SignalTemperatureReading, Payload: 21.5}, got)

	got, err = ParseTemperature("-3")
	require.NoError(t, err)
	require.Equal(t, -3.0, got.Payload)

	got, err = ParseTemperature("ACK")
	require.NoError(t, err)
	require.Equal(t, Command{Signal: monitor.SignalAcknowledge}, got)

	got, err = ParseTemperature("readings")
	require.NoError(t, err)
	require.Equal(t, monitor.QueryCurrentReadings, got.Query)

	got, err = ParseTemperature("exit")
	require.NoError(t, err)
	require.True(t, got.Exit)

	for _, line := range []string{"hot", "ack now", "1e999", "12 13"} {
		_, err := ParseTemperature(line)
		require.ErrorIs(t, err, ErrMalformed, line)
	}
}

type sent struct {
	id      string
	name    string
	payload any
}

type fakeEngine struct {
	mu       sync.Mutex
	sent     []sent
	fail     error
	readings []monitor.Reading
}

func (f *fakeEngine) Signal(ctx context.Context, id string, name string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sent{id: id, name: name, payload: payload})
	return nil
}

func (f *fakeEngine) Query(ctx context.Context, id string, name string) (any, error) {
	return f.readings, nil
}

func TestSession_LightZone(t *testing.T) {
	eng := &fakeEngine{}
	var out bytes.Buffer
	s := &Session{
		Parse:      ParseLightZone,
		InstanceID: "light-safezone-1",
		ChildID:    monitor.DefaultBatteryChildID,
		Sender:     eng,
		Out:        &out,
	}

	in := strings.NewReader("light 150\n\nsafe nope\nsafe false\nbattery 10\nack false\nexit\nlight 1\n")
	require.NoError(t, s.Run(context.Background(), in))

	require.Equal(t, []sent{
		{"light-safezone-1", monitor.SignalLightReading, 150.0},
		{"light-safezone-1", monitor.SignalSafeZoneStatus, false},
		{monitor.DefaultBatteryChildID, monitor.SignalBatteryReading, 10.0},
		{"light-safezone-1", monitor.SignalAcknowledge, false},
	}, eng.sent, "malformed lines are not sent and nothing after exit is read")

	text := out.String()
	require.Contains(t, text, "Sent light reading: 150")
	require.Contains(t, text, "invalid safe zone value")
	require.Contains(t, text, "Sent acknowledgement (seal broken = false).")
	require.Contains(t, text, "Exiting.")
}

func TestSession_SendFailureContinues(t *testing.T) {
	eng := &fakeEngine{fail: errors.New("instance closed")}
	var out bytes.Buffer
	s := &Session{Parse: ParseTemperature, InstanceID: "temp-alert-1", Sender: eng, Out: &out}

	require.NoError(t, s.Run(context.Background(), strings.NewReader("20\nack\n")))
	require.Equal(t, 2, strings.Count(out.String(), "Failed: instance closed"))
}

func TestSession_Readings(t *testing.T) {
	at := time.Date(2024, 7, 1, 12, 0, 5, 0, time.UTC)
	eng := &fakeEngine{readings: []monitor.Reading{{Value: 21.5, At: at}}}
	var out bytes.Buffer
	s := &Session{Parse: ParseTemperature, InstanceID: "temp-alert-1", Sender: eng, Querier: eng, Out: &out}

	require.NoError(t, s.Run(context.Background(), strings.NewReader("readings\n")))
	require.Contains(t, out.String(), "12:00:05.000  21.5")

	out.Reset()
	s.Querier = nil
	require.NoError(t, s.Run(context.Background(), strings.NewReader("readings\n")))
	require.Contains(t, out.String(), "queries are not available")
}

func TestSession_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &Session{Parse: ParseTemperature, InstanceID: "x", Sender: &fakeEngine{}, Out: &bytes.Buffer{}}
	require.ErrorIs(t, s.Run(ctx, strings.NewReader("1\n")), context.Canceled)
}
