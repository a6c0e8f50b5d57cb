// Package play implements the "play" subcommand: stream one audio file
// through the render graph until it finishes or the user interrupts.
package play

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundvault/soundvault-go/internal/conf"
	"github.com/soundvault/soundvault-go/internal/engine"
	"github.com/soundvault/soundvault-go/internal/events"
)

// Command creates the play command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		seekSeconds float64
		gain        float64
		presetName  string
	)

	cmd := &cobra.Command{
		Use:   "play [file]",
		Short: "Play an audio file",
		Long:  "Decode a WAV or FLAC file and play it through the default output device, opening a scoped access grant when the file lives in a bookmarked folder.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return run(settings, path, seekSeconds, gain, presetName)
		},
	}

	cmd.Flags().Float64Var(&seekSeconds, "seek", 0, "Start position in seconds")
	cmd.Flags().Float64Var(&gain, "gain", 1.0, "Output gain factor, 0.0 to 2.0")
	cmd.Flags().StringVar(&presetName, "preset", "", "EQ preset to apply before playback")

	return cmd
}

func run(settings *conf.Settings, path string, seekSeconds, gain float64, presetName string) error {
	eng, err := engine.New(settings)
	if err != nil {
		return err
	}
	defer eng.Close()

	eng.Controller.SetGain(gain)
	if presetName != "" {
		if err := eng.Presets.Apply(presetName, eng.Controller); err != nil {
			return err
		}
	}

	eventCh := eng.Bus.Subscribe()
	sessionID, err := eng.Controller.Play(path)
	if err != nil {
		return err
	}
	if seekSeconds > 0 {
		if err := eng.Controller.Seek(time.Duration(seekSeconds * float64(time.Second))); err != nil {
			return err
		}
	}

	fmt.Printf("Playing %s (%s)\n", path, eng.Controller.Duration().Round(time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			fmt.Println("\nInterrupted")
			return nil
		case ev, ok := <-eventCh:
			if !ok {
				return nil
			}
			if ev.SessionID != sessionID && ev.SessionID != "" {
				continue
			}
			switch ev.Kind {
			case events.KindFinished:
				fmt.Println("Finished")
				return nil
			case events.KindPlaybackFailed:
				if ev.Err != nil {
					return fmt.Errorf("playback failed: %w", ev.Err)
				}
				return fmt.Errorf("playback failed")
			case events.KindDeviceLost:
				fmt.Println("Output device lost, attempting recovery...")
			case events.KindDeviceRecovered:
				fmt.Println("Output device recovered")
			}
		}
	}
}
