package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-r string   gRPC bind address (e.g., ":9090"); empty disables gRPC
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-f int      refresh token validity, minutes
//	-k string   blob backend: s3 or minio
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-x int      presigned URL expiry, minutes
//	-l string   log level
//
// Duration flags are accepted as integers in minutes and only override the
// current value when given.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-r", "-d", "-s", "-t", "-f", "-k", "-u", "-p", "-b", "-g", "-e", "-x", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "address and port to run server")
	fs.StringVar(&cfg.GRPCAddr, "r", cfg.GRPCAddr, "address and port to run gRPC server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	tokenValidity := fs.Int("t", int(cfg.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshValidity := fs.Int("f", int(cfg.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	fs.StringVar(&cfg.BlobBackend, "k", cfg.BlobBackend, "blob backend (s3 or minio)")
	fs.StringVar(&cfg.S3RootUser, "u", cfg.S3RootUser, "S3 root user")
	fs.StringVar(&cfg.S3RootPassword, "p", cfg.S3RootPassword, "S3 root password")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	presign := fs.Int("x", int(cfg.PresignExpiry.Minutes()), "presigned URL expiry (in minutes)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.AccessTokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
		case "f":
			cfg.RefreshTokenValidityDuration = time.Duration(*refreshValidity) * time.Minute
		case "x":
			cfg.PresignExpiry = time.Duration(*presign) * time.Minute
		}
	})

	switch cfg.BlobBackend {
	case BlobS3, BlobMinio:
	default:
		return fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
	return nil
}
