// Package preset implements the "preset" subcommand group for named EQ
// gain presets.
package preset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soundvault/soundvault-go/internal/conf"
	"github.com/soundvault/soundvault-go/internal/engine"
)

// Command creates the preset command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage EQ presets",
		Long:  "Save, list, show and delete named equalizer gain presets.",
	}

	cmd.AddCommand(
		saveCommand(settings),
		listCommand(settings),
		showCommand(settings),
		deleteCommand(settings),
	)
	return cmd
}

// parseGains turns "3,-2,0,4,1" into a gain slice.
func parseGains(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	gains := make([]float64, 0, len(parts))
	for _, p := range parts {
		g, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid gain %q: %w", p, err)
		}
		gains = append(gains, g)
	}
	return gains, nil
}

func saveCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "save [name] [gains]",
		Short: "Save a preset, gains as comma-separated dB values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gains, err := parseGains(args[1])
			if err != nil {
				return err
			}

			eng, err := engine.New(settings)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Presets.Save(args[0], gains); err != nil {
				return err
			}
			fmt.Printf("Saved preset %q\n", args[0])
			return nil
		},
	}
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List preset names",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.New(settings)
			if err != nil {
				return err
			}
			defer eng.Close()

			names, err := eng.Presets.Names()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No presets")
				return nil
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show a preset's band gains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.New(settings)
			if err != nil {
				return err
			}
			defer eng.Close()

			gains, err := eng.Presets.Load(args[0])
			if err != nil {
				return err
			}
			for i, g := range gains {
				fmt.Printf("%7.0f Hz  %+.1f dB\n", settings.EQ.BandFrequencies[i], g)
			}
			return nil
		},
	}
}

func deleteCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.New(settings)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Presets.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted preset %q\n", args[0])
			return nil
		},
	}
}
