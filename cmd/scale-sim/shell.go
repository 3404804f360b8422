package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/arloliu/go-scale/simulator"
	"github.com/chzyer/readline"
)

// shell is the operator command loop of the simulated scale.
type shell struct {
	rl        *readline.Instance
	closeOnce sync.Once
	device    *simulator.Device
}

func newShell() (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "scale> ",
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

		s := sh.device.Scale()
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			continue
		case "x":
			sh.change("Randomizing", s.Randomize())
		case "a":
			sh.change("Adding +1 g", s.AddWeight(1))
		case "r":
			sh.change("Removing 1 g", s.RemoveWeight(1))
		case "s", "status":
			sh.printStatus()
		case "help", "?":
			sh.printHelp()
		case "q", "quit", "exit":
			fmt.Fprintln(sh.Stdout(), "Exiting...")
			cancel()

			return
		default:
			fmt.Fprintf(sh.Stdout(), "Unknown command: %s (type 'help' for commands)\n", line)
		}
	}
}

func (sh *shell) change(action string, err error) {
	if err != nil {
		fmt.Fprintln(sh.Stdout(), "Wait for scale to stabilize.")
		return
	}

	fmt.Fprintln(sh.Stdout(), action)
}

func (sh *shell) printStatus() {
	st := sh.device.Scale().State()

	stability := "unstable"
	if st.Stable {
		stability = "stable"
	}

	conn := "Not connected to driver"
	if sh.device.Connected() {
		conn = "Connected to driver, ID: " + sh.device.ID()
	}

	fmt.Fprintf(sh.Stdout(), "%s %s (%s)\tTare: %g\tDisplay: %q\t%s\n",
		st.Value, st.Unit, stability, st.Tare, st.Display, conn)
}

func (sh *shell) printHelp() {
	fmt.Fprintln(sh.Stdout(), `
Scale Simulator Commands:
  x       - Randomize the weight
  a       - Add 1 g
  r       - Remove 1 g
  s       - Show scale status
  help    - Show this help
  q       - Quit`)
}
