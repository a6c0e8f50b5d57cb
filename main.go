package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/soundvault/soundvault-go/cmd"
	"github.com/soundvault/soundvault-go/internal/conf"
	"github.com/soundvault/soundvault-go/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	if settings.Main.Log.Enabled {
		closeLog, err := logging.InitFile(settings.Main.Log.Path, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer closeLog()
	} else if settings.Debug {
		logging.InitWithLevel(slog.LevelDebug, slog.LevelDebug)
	} else {
		logging.Init()
	}

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		os.Exit(1)
	}
}
