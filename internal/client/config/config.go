package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/imaging"
	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// Config holds runtime settings for the gallery client.
type Config struct {
	// MirrorURL selects the mirror: http(s):// for the JSON API, grpc:// for
	// the gRPC service, empty for an in-process mirror.
	MirrorURL string
	DBPath    string

	OnlineCheckInterval time.Duration
	MaxRetries          int

	GenerationAttempts   int
	GenerationRetryDelay time.Duration

	Compression imaging.Options

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.MirrorURL = ""
	c.DBPath = "gophgallery.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.MaxRetries = common.DefaultMaxRetries
	c.GenerationAttempts = 3
	c.GenerationRetryDelay = 2 * time.Second
	c.Compression = imaging.DefaultOptions()
	c.LogLevel = "info"
}

// Load applies defaults, then the config file named in args (if any), then
// the flags in args. Later sources take precedence over earlier ones.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args. It panics on invalid input.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}
