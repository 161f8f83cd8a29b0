package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"i2saudio/host/monitor"
	"i2saudio/host/playback"
	"i2saudio/host/serial"
	"i2saudio/host/ui"
)

var (
	device   = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud     = flag.Int("baud", 921600, "Baud rate (ignored for USB CDC)")
	interval = flag.Duration("interval", time.Second, "Level report interval")
	out      = flag.String("out", "", "Write decoded samples as raw float32 LE to this file")
	play     = flag.Bool("play", false, "Play the forwarded stream on the default audio device")
	rate     = flag.Int("rate", 48000, "Sample rate for -play (must match the firmware)")
	channels = flag.Int("channels", 2, "Channel count for -play (must match the firmware)")
	tui      = flag.Bool("tui", false, "Show a full-screen level meter instead of report lines")
	verbose  = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	if !*tui {
		fmt.Println("I2S Audio Monitor")
		fmt.Println("=================")
	}

	var sinks []io.Writer
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to create %s: %v\n", *out, err)
			os.Exit(1)
		}
		defer f.Close()
		sinks = append(sinks, f)
	}
	if *play {
		player, err := playback.Open(*rate, *channels)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to open audio output: %v\n", err)
			os.Exit(1)
		}
		defer player.Close()
		sinks = append(sinks, player)
	}

	var dump io.Writer
	switch len(sinks) {
	case 0:
	case 1:
		dump = sinks[0]
	default:
		dump = io.MultiWriter(sinks...)
	}

	if !*tui {
		fmt.Printf("Connecting to MCU on %s...\n", *device)
	}
	port, err := serial.Open(serial.DefaultConfigWithBaud(*device, *baud))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	if err := port.Flush(); err != nil && *verbose {
		fmt.Fprintf(os.Stderr, "Warning: flush failed: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := monitor.New(dump)
	if *tui {
		err = runTUI(ctx, stop, m, port)
	} else {
		fmt.Println("Connected, waiting for blocks (Ctrl-C to stop)")
		err = m.Run(ctx, port, *interval, func(r monitor.Report) {
			if r.Blocks == 0 && !*verbose {
				return
			}
			fmt.Println(r)
		})
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *out != "" {
		fmt.Printf("Samples written to %s\n", *out)
	}
}

// runTUI drives the monitor in the background and feeds reports to the meter.
// Quitting the TUI cancels the monitor.
func runTUI(ctx context.Context, stop context.CancelFunc, m *monitor.Monitor, port io.Reader) error {
	p := tea.NewProgram(ui.NewModel(*device), tea.WithAltScreen())

	done := make(chan error, 1)
	go func() {
		err := m.Run(ctx, port, *interval, func(r monitor.Report) {
			p.Send(ui.ReportMsg(r))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			p.Send(ui.ErrMsg{Err: err})
		}
		done <- err
	}()

	final, err := p.Run()
	stop()
	runErr := <-done

	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	if model, ok := final.(ui.Model); ok && model.Err() != nil {
		return model.Err()
	}
	return runErr
}
