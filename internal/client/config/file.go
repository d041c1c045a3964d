package config

import (
	"github.com/dmitrijs2005/gophgallery/internal/flagx"
	"github.com/dmitrijs2005/gophgallery/internal/timex"
)

// fileConfig is the on-disk shape. Zero values leave the current setting.
type fileConfig struct {
	MirrorURL            string         `json:"mirror_url" yaml:"mirror_url"`
	DBPath               string         `json:"db_path" yaml:"db_path"`
	OnlineCheckInterval  timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	MaxRetries           int            `json:"max_retries" yaml:"max_retries"`
	GenerationAttempts   int            `json:"generation_attempts" yaml:"generation_attempts"`
	GenerationRetryDelay timex.Duration `json:"generation_retry_delay" yaml:"generation_retry_delay"`
	Compression          struct {
		Threshold    int `json:"threshold" yaml:"threshold"`
		MaxDimension int `json:"max_dimension" yaml:"max_dimension"`
		Quality      int `json:"quality" yaml:"quality"`
	} `json:"compression" yaml:"compression"`
	LogLevel string `json:"log_level" yaml:"log_level"`
}

func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	var fc fileConfig
	if err := flagx.LoadFile(path, &fc); err != nil {
		return err
	}

	setString(&cfg.MirrorURL, fc.MirrorURL)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.GenerationRetryDelay.Duration > 0 {
		cfg.GenerationRetryDelay = fc.GenerationRetryDelay.Duration
	}
	setInt(&cfg.MaxRetries, fc.MaxRetries)
	setInt(&cfg.GenerationAttempts, fc.GenerationAttempts)
	setInt(&cfg.Compression.Threshold, fc.Compression.Threshold)
	setInt(&cfg.Compression.MaxDimension, fc.Compression.MaxDimension)
	setInt(&cfg.Compression.Quality, fc.Compression.Quality)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
