// Command tokengen mints a bearer token for the mirror API. It reads the
// same configuration as the server, so the secret and validity match.
//
//	tokengen -o <owner-id> [-c config.yaml] [-s secret] [-t minutes]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/gophgallery/internal/flagx"
	"github.com/dmitrijs2005/gophgallery/internal/server/auth"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	var owner string
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&owner, "o", "", "owner id the token is issued to")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-o"})); err != nil {
		return err
	}
	if owner == "" {
		return errors.New("owner id is required (-o)")
	}

	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	tok, err := auth.GenerateToken(owner, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}
