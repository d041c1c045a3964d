package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/client/config"
	"github.com/dmitrijs2005/gophgallery/internal/client/localstore"
	"github.com/dmitrijs2005/gophgallery/internal/client/producer"
	"github.com/dmitrijs2005/gophgallery/internal/client/remote"
	"github.com/dmitrijs2005/gophgallery/internal/client/services"
	"github.com/dmitrijs2005/gophgallery/internal/client/session"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
)

// App is the interactive client.
type App struct {
	config   *config.Config
	store    *localstore.Store
	mirror   remote.Mirror
	storage  services.StorageService
	gen      services.GenerationService
	session  *session.Session
	accounts *session.Accounts
	tokens   *session.MirrorTokens
	auth     remote.Authenticator
	log      logging.Logger

	userName string
	reader   *bufio.Reader
	out      io.Writer

	unsubscribe func()
}

// Deps are the collaborators an App is built from.
type Deps struct {
	Config   *config.Config
	Store    *localstore.Store
	Mirror   remote.Mirror
	Producer producer.Producer

	// Auth manages mirror accounts; nil disables the cloud commands.
	Auth remote.Authenticator
	// Tokens defaults to a store over Store.Metadata using Auth.
	Tokens *session.MirrorTokens

	Logger   logging.Logger
	In       io.Reader
	Out      io.Writer
}

// NewApp wires services over deps. The session starts offline; the
// connectivity watcher or an explicit sync brings it online.
func NewApp(d Deps) *App {
	log := d.Logger
	if log == nil {
		log = logging.Nop()
	}
	in, out := d.In, d.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	storage := services.NewStorageService(d.Store, d.Mirror, services.StorageOptions{
		MaxRetries:  d.Config.MaxRetries,
		Compression: d.Config.Compression,
		Logger:      log,
	})
	gen := services.NewGenerationService(d.Producer, storage, services.GenerationOptions{
		MaxAttempts: d.Config.GenerationAttempts,
		RetryDelay:  d.Config.GenerationRetryDelay,
		Logger:      log,
	})
	sess := session.New(false)
	tokens := d.Tokens
	if tokens == nil {
		tokens = session.NewMirrorTokens(d.Store.Metadata, d.Auth)
	}

	a := &App{
		config:   d.Config,
		store:    d.Store,
		mirror:   d.Mirror,
		storage:  storage,
		gen:      gen,
		session:  sess,
		accounts: session.NewAccounts(d.Store.Users, d.Store.Metadata, sess),
		tokens:   tokens,
		auth:     d.Auth,
		log:      log.With("component", "cli"),
		reader:   bufio.NewReader(in),
		out:      out,
	}
	a.unsubscribe = sess.Subscribe(func(online bool) {
		if err := storage.SetOnline(context.Background(), online); err != nil {
			a.log.Warn(context.Background(), "drain after reconnect failed", "error", err)
		}
	})
	return a
}

// Bootstrap opens the local store, picks the mirror and returns a ready App
// together with a cleanup function.
func Bootstrap(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, func(), error) {
	store, err := localstore.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open local store: %w", err)
	}

	mirror, auth, tokens, closeMirror, err := newMirror(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if auth == nil {
		log.Info(ctx, "no mirror configured, using in-process mirror")
	}

	app := NewApp(Deps{
		Config:   cfg,
		Store:    store,
		Mirror:   mirror,
		Producer: producer.NewSimulated(),
		Logger:   log,
		Auth:     auth,
		Tokens:   tokens,
	})
	cleanup := func() {
		app.unsubscribe()
		if err := closeMirror(); err != nil {
			log.Error(context.Background(), "close mirror connection", "error", err)
		}
		if err := store.Close(); err != nil {
			log.Error(context.Background(), "close local store", "error", err)
		}
	}
	return app, cleanup, nil
}

// newMirror picks the transport from the URL scheme. Every transport serves
// requests with the signed-in account's own mirror tokens.
func newMirror(cfg *config.Config, store *localstore.Store) (remote.Mirror, remote.Authenticator, *session.MirrorTokens, func() error, error) {
	noop := func() error { return nil }

	switch {
	case cfg.MirrorURL == "":
		return remote.NewMemoryMirror(), nil, nil, noop, nil

	case strings.HasPrefix(cfg.MirrorURL, grpcScheme):
		target := strings.TrimPrefix(cfg.MirrorURL, grpcScheme)
		accounts, err := remote.NewGRPCMirror(target, nil, nil)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("dial mirror: %w", err)
		}
		tokens := session.NewMirrorTokens(store.Metadata, accounts)
		return accounts.WithTokens(tokens), accounts, tokens, accounts.Close, nil

	default:
		accounts := remote.NewHTTPMirror(cfg.MirrorURL, nil, nil)
		tokens := session.NewMirrorTokens(store.Metadata, accounts)
		return remote.NewHTTPMirror(cfg.MirrorURL, tokens, nil), accounts, tokens, noop, nil
	}
}

const grpcScheme = "grpc://"

func (a *App) isLoggedIn() bool {
	return a.session.CurrentUserID() != ""
}

func (a *App) getStatus() string {
	mode := "offline"
	if a.session.IsOnline() {
		mode = "online"
	}
	if a.userName != "" {
		return fmt.Sprintf("(%s %s)", a.userName, mode)
	}
	return fmt.Sprintf("(%s)", mode)
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

// Run restores the previous session, starts the connectivity watcher and
// blocks in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.printf("Welcome to the gallery CLI (type 'help' for commands)\n")

	if u, err := a.accounts.Restore(ctx); err != nil {
		a.log.Warn(ctx, "restore session", "error", err)
	} else if u != nil {
		a.userName = u.Username
		a.printf("Signed in as %s\n", u.Username)
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
