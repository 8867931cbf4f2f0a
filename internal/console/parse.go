// Package console implements the interactive command surface that turns
// typed lines into workflow signals.
package console

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/petrijr/tempalert/pkg/monitor"
)

// ErrMalformed marks input rejected before anything is sent.
var ErrMalformed = errors.New("malformed input")

// Target selects which instance a command is sent to.
type Target int

const (
	TargetWorkflow Target = iota
	TargetBatteryChild
)

// Command is one parsed line.
type Command struct {
	Exit bool

	Target  Target
	Signal  string
	Payload any

	// Query, when set, is run instead of sending a signal.
	Query string
}

// Parser turns one trimmed, non-empty line into a Command.
type Parser func(line string) (Command, error)

// ParseLightZone understands light <n>, safe <bool>, ack <bool>,
// battery <n> and exit.
func ParseLightZone(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty command", ErrMalformed)
	}
	word := strings.ToLower(fields[0])
	if word == "exit" && len(fields) == 1 {
		return Command{Exit: true}, nil
	}
	if len(fields) != 2 {
		return Command{}, fmt.Errorf("%w: expected <command> <value>", ErrMalformed)
	}
	arg := fields[1]

	switch word {
	case "light":
		v, err := parseNumber(arg)
		if err != nil {
			return Command{}, fmt.Errorf("invalid light value: %w", err)
		}
		return Command{Signal: monitor.SignalLightReading, Payload: v}, nil
	case "battery":
		v, err := parseNumber(arg)
		if err != nil {
			return Command{}, fmt.Errorf("invalid battery value: %w", err)
		}
		return Command{Target: TargetBatteryChild, Signal: monitor.SignalBatteryReading, Payload: v}, nil
	case "safe":
		v, err := parseBool(arg)
		if err != nil {
			return Command{}, fmt.Errorf("invalid safe zone value: %w", err)
		}
		return Command{Signal: monitor.SignalSafeZoneStatus, Payload: v}, nil
	case "ack":
		v, err := parseBool(arg)
		if err != nil {
			return Command{}, fmt.Errorf("invalid ack value: %w", err)
		}
		return Command{Signal: monitor.SignalAcknowledge, Payload: v}, nil
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrMalformed, fields[0])
	}
}

// ParseTemperature understands a bare number, ack, readings and exit.
func ParseTemperature(line string) (Command, error) {
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "exit":
		return Command{Exit: true}, nil
	case "ack":
		return Command{Signal: monitor.SignalAcknowledge}, nil
	case "readings":
		return Command{Query: monitor.QueryCurrentReadings}, nil
	}
	v, err := parseNumber(line)
	if err != nil {
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrMalformed, line)
	}
	return Command{Signal: monitor.SignalTemperatureReading, Payload: v}, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformed, s)
	}
	return v, nil
}

// parseBool accepts only true or false, in any case.
func parseBool(s string) (bool, error) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, nil
	case strings.EqualFold(s, "false"):
		return false, nil
	default:
		return false, fmt.Errorf("%w: use true or false, got %q", ErrMalformed, s)
	}
}

// Help texts printed when a session starts.
const (
	LightZoneHelp = `Commands:
 - light <value>       submit a light reading
 - safe <true|false>   submit the safe zone status
 - ack <true|false>    acknowledge the response (seal broken)
 - battery <value>     submit a battery reading to the battery child
 - exit                quit`

	TemperatureHelp = `Commands:
 - <number>            submit a temperature reading
 - ack                 acknowledge the response
 - readings            show the recorded readings
 - exit                quit`
)
