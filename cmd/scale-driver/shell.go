package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/arloliu/go-scale/correlator"
	"github.com/arloliu/go-scale/driver"
	"github.com/arloliu/go-scale/scale"
	"github.com/chzyer/readline"
)

// shell is the operator command loop of the driver.
type shell struct {
	rl        *readline.Instance
	closeOnce sync.Once
	driver    *driver.Driver
}

func newShell() (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "driver> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &shell{rl: rl}, nil
}

// Stdout returns a writer that coordinates with the prompt.
func (sh *shell) Stdout() io.Writer {
	return sh.rl.Stdout()
}

// Close releases the terminal and unblocks a pending Readline. It is safe to call
// more than once.
func (sh *shell) Close() error {
	var err error
	sh.closeOnce.Do(func() { err = sh.rl.Close() })

	return err
}

// Run reads operator commands until quit, EOF or ctx is done.
func (sh *shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer func() { _ = sh.Close() }()

	sh.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := sh.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			cancel()

			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(input, " ")
		switch strings.ToLower(cmd) {
		case "1", "tare":
			sh.broadcast(driver.OpTare, driver.TareOp)
		case "2", "stable":
			sh.broadcast(driver.OpReadStable, driver.ReadStableOp)
		case "3", "now":
			sh.broadcast(driver.OpReadNow, driver.ReadNowOp)
		case "4", "reset":
			sh.broadcast(driver.OpReset, driver.ResetOp)
		case "d", "display":
			sh.broadcast(driver.OpDisplay, driver.DisplayOp(strings.TrimSpace(arg)))
		case "ls", "devices":
			sh.printDevices()
		case "status":
			st := sh.driver.Status()
			fmt.Fprintf(sh.Stdout(), "Listening on %s, %d device(s) connected\n", st.Address, st.Devices)
		case "help", "?":
			sh.printHelp()
		case "q", "quit", "exit":
			fmt.Fprintln(sh.Stdout(), "Exiting...")
			cancel()

			return
		default:
			fmt.Fprintf(sh.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (sh *shell) broadcast(name string, op driver.Op) {
	results := sh.driver.Broadcast(name, op)
	if len(results) == 0 {
		fmt.Fprintln(sh.Stdout(), "No devices connected")
		return
	}

	for _, res := range results {
		if res.Err != nil {
			continue // printed by report
		}
		fmt.Fprintf(sh.Stdout(), "%-36s %s: %s\n", res.DeviceID, name, formatValue(res.Value))
	}
}

// report prints a failed device result.
func (sh *shell) report(op string, res driver.Result) {
	fmt.Fprintf(sh.Stdout(), "%-36s %s: %s (%v)\n", res.DeviceID, op, correlator.ErrorKind(res.Err), res.Err)
}

func (sh *shell) printDevices() {
	devices := sh.driver.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(sh.Stdout(), "No devices connected")
		return
	}

	for _, dev := range devices {
		fmt.Fprintf(sh.Stdout(), "%-36s %-21s commands=%d timeouts=%d\n",
			dev.ID, dev.RemoteAddress, dev.CommandCount, dev.TimeoutCount)
	}
}

func (sh *shell) printHelp() {
	fmt.Fprintln(sh.Stdout(), `
Scale Driver Commands:
  1, tare            - Tare every scale
  2, stable          - Get the stable weight of every scale
  3, now             - Get the current weight of every scale
  4, reset           - Reset every scale
  d <text>           - Show text on every scale display
  ls                 - List connected scales
  status             - Show listening address and device count
  help               - Show this help
  q                  - Quit`)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case *scale.Reading:
		if val == nil {
			return "no value"
		}
		state := "dynamic"
		if val.Stable {
			state = "stable"
		}

		return fmt.Sprintf("%g %s (%s)", val.Value, val.Unit, state)
	case bool:
		if val {
			return "ok"
		}

		return "rejected"
	default:
		return fmt.Sprint(v)
	}
}
