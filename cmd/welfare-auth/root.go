package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/client"
	"github.com/goliatone/go-welfare-auth/config"
	"github.com/goliatone/go-welfare-auth/keychain"
	"github.com/goliatone/go-welfare-auth/session"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "welfare-auth",
		Short:         "Welfare gateway authentication and role routing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(
		newServeCmd(opts),
		newLoginCmd(opts),
		newWhoamiCmd(opts),
		newLogoutCmd(opts),
		newRouteCmd(opts),
		newCheckUsernameCmd(opts),
	)

	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

func (o *rootOptions) logger() auth.Logger {
	if !o.verbose {
		return stderrLogger{w: io.Discard}
	}
	return stderrLogger{w: os.Stderr}
}

// clientSession wires the API client, the keyring slot and the session manager
func (o *rootOptions) clientSession(cfg *config.Config) (*session.Manager, *client.Client, error) {
	store, err := keychain.Open(keychain.Config{
		ServiceName:  cfg.Keyring.Service,
		Backends:     cfg.Keyring.Backends,
		FileDir:      cfg.Keyring.FileDir,
		FilePassword: cfg.Keyring.FilePassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open keyring: %w", err)
	}

	api := client.New(cfg.Client.BaseURL)
	manager := session.NewManager(api,
		session.WithStore(store),
		session.WithFetchTimeout(cfg.Client.FetchTimeout),
		session.WithLogger(o.logger()),
	)

	return manager, api, nil
}

type stderrLogger struct {
	w io.Writer
}

func (l stderrLogger) Debug(format string, args ...any) { l.log("DBG", format, args...) }
func (l stderrLogger) Info(format string, args ...any)  { l.log("INF", format, args...) }
func (l stderrLogger) Warn(format string, args ...any)  { l.log("WRN", format, args...) }
func (l stderrLogger) Error(format string, args ...any) { l.log("ERR", format, args...) }

func (l stderrLogger) log(level, format string, args ...any) {
	fmt.Fprintf(l.w, "[%s] AUTH "+format+"\n", append([]any{level}, args...)...)
}
