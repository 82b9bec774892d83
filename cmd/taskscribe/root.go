package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	"github.com/jaekwang-park/taskscribe/internal/client"
	"github.com/jaekwang-park/taskscribe/internal/storage/badgerdb"
)

// app holds the per-invocation client state shared by all commands.
type app struct {
	configPath string
	serverURL  string
	verbose    bool

	cfg   client.Config
	db    *badger.DB
	api   *client.APIClient
	store *client.Store
	auth  *client.Auth
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "taskscribe",
		Short:         "Manage your tasks from the command line",
		Long:          `taskscribe talks to a taskscribe server. Log in once and the session is kept until you log out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/taskscribe/config.toml)")
	root.PersistentFlags().StringVar(&a.serverURL, "server", "", "server URL, overrides server_url")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log storage diagnostics to stderr")

	root.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newUpdateCmd(a),
		newToggleCmd(a),
		newDeleteCmd(a),
		newStatsCmd(a),
	)
	return root
}

// execute runs the command tree and prints any error to stderr.
func execute(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	if err != nil {
		root.PrintErrln("error:", describe(err))
	}
	return err
}

// run wraps a command body with opening and closing the session store.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(); err != nil {
			return err
		}
		defer func() {
			if closeErr := a.close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) open() error {
	path := a.configPath
	if path == "" {
		var err error
		if path, err = client.DefaultConfigPath(); err != nil {
			return err
		}
	}
	cfg, err := client.LoadConfig(path)
	if err != nil {
		return err
	}
	if a.serverURL != "" {
		cfg.ServerURL = a.serverURL
	}
	a.cfg = cfg

	var logger *slog.Logger
	if a.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	db, err := badgerdb.Open(badgerdb.Config{Path: cfg.DataDir, SyncWrites: true, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	a.db = db

	a.api = client.NewAPIClient(cfg.ServerURL)
	a.store = client.NewStore(a.api)
	a.store.SetFilters(filtersPatch(cfg))
	a.auth = client.NewAuth(a.api, a.store, client.NewBadgerSessionStore(db))
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// describe turns client errors into messages for the terminal.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrNotAuthenticated):
		return "not logged in, run 'taskscribe login' first"
	case errors.Is(err, client.ErrUnauthorized):
		return "session rejected by the server, log in again"
	case errors.As(err, &apiErr) && len(apiErr.Fields) > 0:
		msg := apiErr.Message
		for _, f := range apiErr.Fields {
			msg += fmt.Sprintf("\n  %s: %s", f.Field, f.Message)
		}
		return msg
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return err.Error()
}
