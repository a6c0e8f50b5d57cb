package conf

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets viper defaults for all configuration parameters.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "SoundVault")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "soundvault.log")

	// 2048 frames at 48 kHz is about 43 ms per chunk; 8 pending chunks
	// gives roughly 340 ms of decode look-ahead.
	viper.SetDefault("audio.samplerate", 48000)
	viper.SetDefault("audio.channels", 2)
	viper.SetDefault("audio.chunkframes", 2048)
	viper.SetDefault("audio.maxpendingchunks", 8)
	viper.SetDefault("audio.decodebackoff", 5*time.Millisecond)
	viper.SetDefault("audio.completionguard", 800*time.Millisecond)
	viper.SetDefault("audio.device", "")

	viper.SetDefault("eq.bandfrequencies", []float64{60, 230, 910, 3600, 14000})
	viper.SetDefault("eq.bandwidth", 1.0)
	viper.SetDefault("eq.mingaindb", -12.0)
	viper.SetDefault("eq.maxgaindb", 12.0)

	viper.SetDefault("scope.datadir", defaultDataDir())
	viper.SetDefault("scope.stripprefixes", []string{"/private"})
	viper.SetDefault("scope.bookmarkdb", filepath.Join(defaultDataDir(), "bookmarks.db"))
	viper.SetDefault("scope.normalizettlmin", 10)
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "soundvault")
}
