// Package cmd assembles the soundvault command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundvault/soundvault-go/cmd/bookmark"
	"github.com/soundvault/soundvault-go/cmd/play"
	"github.com/soundvault/soundvault-go/cmd/preset"
	"github.com/soundvault/soundvault-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "soundvault",
		Short: "Soundvault streaming audio player",
		Long:  "Decode audio files into a real-time render graph with EQ, managing sandboxed folder access grants along the way.",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(
		play.Command(settings),
		bookmark.Command(settings),
		preset.Command(settings),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().IntVar(&settings.Audio.SampleRate, "samplerate", viper.GetInt("audio.samplerate"), "Render graph sample rate in Hz")
	rootCmd.PersistentFlags().IntVar(&settings.Audio.Channels, "channels", viper.GetInt("audio.channels"), "Render graph channel count")
	rootCmd.PersistentFlags().StringVar(&settings.Scope.BookmarkDB, "db", viper.GetString("scope.bookmarkdb"), "Path to the bookmark and preset database")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
