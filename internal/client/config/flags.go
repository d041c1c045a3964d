package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/flagx"
)

// parseFlags populates Config fields from the flags in args. Unknown flags
// are filtered out first with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-m", "-d", "-i", "-r", "-l"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.MirrorURL, "m", cfg.MirrorURL, "mirror server URL, http(s):// or grpc://host:port")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database path")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.IntVar(&cfg.MaxRetries, "r", cfg.MaxRetries, "max replay attempts per sync queue entry")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
		}
	})
	return nil
}
