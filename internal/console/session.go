package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/petrijr/tempalert/pkg/monitor"
)

// Sender delivers a signal to an instance.
type Sender interface {
	Signal(ctx context.Context, id string, name string, payload any) error
}

// Querier runs a read-only query against an instance.
type Querier interface {
	Query(ctx context.Context, id string, name string) (any, error)
}

// Session reads commands line by line and sends them as signals. Malformed
// lines and send failures are reported on Out and the session continues.
type Session struct {
	Parse Parser

	// InstanceID receives TargetWorkflow commands.
	InstanceID string
	// ChildID receives TargetBatteryChild commands.
	ChildID string

	Sender  Sender
	Querier Querier
	Out     io.Writer
}

// Run processes lines from in until exit, EOF or ctx is done.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, err := s.Parse(line)
		if err != nil {
			fmt.Fprintln(s.Out, err)
			continue
		}
		if cmd.Exit {
			fmt.Fprintln(s.Out, "Exiting.")
			return nil
		}
		if err := s.execute(ctx, cmd); err != nil {
			fmt.Fprintf(s.Out, "Failed: %v\n", err)
		}
	}
	return scanner.Err()
}

func (s *Session) execute(ctx context.Context, cmd Command) error {
	if cmd.Query != "" {
		return s.query(ctx, cmd.Query)
	}

	id := s.InstanceID
	if cmd.Target == TargetBatteryChild {
		id = s.ChildID
	}
	if id == "" {
		return errors.New("no instance to send to")
	}
	if err := s.Sender.Signal(ctx, id, cmd.Signal, cmd.Payload); err != nil {
		return err
	}
	fmt.Fprintln(s.Out, describe(cmd))
	return nil
}

func (s *Session) query(ctx context.Context, name string) error {
	if s.Querier == nil {
		return errors.New("queries are not available")
	}
	v, err := s.Querier.Query(ctx, s.InstanceID, name)
	if err != nil {
		return err
	}
	readings, ok := v.([]monitor.Reading)
	if !ok {
		fmt.Fprintf(s.Out, "%v\n", v)
		return nil
	}
	if len(readings) == 0 {
		fmt.Fprintln(s.Out, "No readings yet.")
	}
	for _, r := range readings {
		fmt.Fprintf(s.Out, "%s  %g\n", r.At.Format("15:04:05.000"), r.Value)
	}
	return nil
}

func describe(cmd Command) string {
	switch cmd.Signal {
	case monitor.SignalLightReading:
		return fmt.Sprintf("Sent light reading: %g", cmd.Payload)
	case monitor.SignalBatteryReading:
		return fmt.Sprintf("Sent battery reading: %g", cmd.Payload)
	case monitor.SignalSafeZoneStatus:
		return fmt.Sprintf("Sent safe zone status: %t", cmd.Payload)
	case monitor.SignalTemperatureReading:
		return fmt.Sprintf("Sent temperature reading: %g", cmd.Payload)
	case monitor.SignalAcknowledge:
		if sealBroken, ok := cmd.Payload.(bool); ok {
			return fmt.Sprintf("Sent acknowledgement (seal broken = %t).", sealBroken)
		}
		return "Acknowledgement sent."
	default:
		return "Sent " + cmd.Signal + "."
	}
}
