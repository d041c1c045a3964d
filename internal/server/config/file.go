package config

import (
	"github.com/dmitrijs2005/gophgallery/internal/flagx"
	"github.com/dmitrijs2005/gophgallery/internal/timex"
)

// fileConfig is the on-disk shape. Durations use timex.Duration so files can
// hold "15m" or integer nanoseconds. Zero values leave the current setting.
type fileConfig struct {
	HTTPAddr                     string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr                     string         `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	BlobBackend                  string         `json:"blob_backend" yaml:"blob_backend"`
	S3RootUser                   string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	PresignExpiry                timex.Duration `json:"presign_expiry" yaml:"presign_expiry"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
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

	for dst, v := range map[*string]string{
		&cfg.HTTPAddr:       fc.HTTPAddr,
		&cfg.GRPCAddr:       fc.GRPCAddr,
		&cfg.DatabaseDSN:    fc.DatabaseDSN,
		&cfg.SecretKey:      fc.SecretKey,
		&cfg.BlobBackend:    fc.BlobBackend,
		&cfg.S3RootUser:     fc.S3RootUser,
		&cfg.S3RootPassword: fc.S3RootPassword,
		&cfg.S3Bucket:       fc.S3Bucket,
		&cfg.S3Region:       fc.S3Region,
		&cfg.S3BaseEndpoint: fc.S3BaseEndpoint,
		&cfg.LogLevel:       fc.LogLevel,
	} {
		if v != "" {
			*dst = v
		}
	}
	if fc.AccessTokenValidityDuration.Duration > 0 {
		cfg.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.RefreshTokenValidityDuration.Duration > 0 {
		cfg.RefreshTokenValidityDuration = fc.RefreshTokenValidityDuration.Duration
	}
	if fc.PresignExpiry.Duration > 0 {
		cfg.PresignExpiry = fc.PresignExpiry.Duration
	}
	return nil
}
