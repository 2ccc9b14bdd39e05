package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/routing"
	"github.com/goliatone/go-welfare-auth/session"
)

func newLoginCmd(root *rootOptions) *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the access token in the keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			password, err := readPassword(cmd.InOrStdin(), passwordStdin)
			if err != nil {
				return err
			}

			manager, api, err := root.clientSession(cfg)
			if err != nil {
				return err
			}
			defer manager.Close()

			res, err := api.Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			snap, err := manager.SignIn(cmd.Context(), res.AccessToken, res.Identity)
			if err != nil {
				return err
			}

			destination, _ := routing.NewRouter().Destination(snap.Identity.Role)
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s), home %s\n",
				snap.Identity.Username, snap.Identity.Role, destination)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func newWhoamiCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			manager, _, err := root.clientSession(cfg)
			if err != nil {
				return err
			}
			defer manager.Close()

			snap, err := manager.Start(cmd.Context())
			if err != nil {
				root.logger().Info("session check failed: %v", err)
			}

			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func newLogoutCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			manager, _, err := root.clientSession(cfg)
			if err != nil {
				return err
			}
			defer manager.Close()

			if err := manager.Logout(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newRouteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "route <path>",
		Short: "Show what the current session gets for a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			table, err := routing.NewTable(routing.NewRouter(), routing.DefaultRoutes())
			if err != nil {
				return err
			}

			manager, _, err := root.clientSession(cfg)
			if err != nil {
				return err
			}
			defer manager.Close()

			snap, err := manager.Start(cmd.Context())
			if err != nil {
				root.logger().Info("session check failed: %v", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), table.Evaluate(snap, args[0]))
			return nil
		},
	}
}

func newCheckUsernameCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-username <username>",
		Short: "Ask the gateway whether a username is free",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.ValidateUsername(args[0]); err != nil {
				return formatFieldError(err)
			}

			cfg, err := root.load()
			if err != nil {
				return err
			}

			_, api, err := root.clientSession(cfg)
			if err != nil {
				return err
			}

			available, err := api.CheckUsername(cmd.Context(), args[0])
			if err != nil {
				return formatFieldError(err)
			}

			if available {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is available\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is taken\n", args[0])
			}
			return nil
		},
	}
}

func printSnapshot(w io.Writer, snap session.Snapshot) {
	if snap.Status != session.StatusAuthenticated || snap.Identity == nil {
		fmt.Fprintln(w, snap.Status)
		return
	}
	fmt.Fprintf(w, "%s: %s %s (%s, %s)\n", snap.Status,
		snap.Identity.FirstName, snap.Identity.LastName, snap.Identity.Username, snap.Identity.Role)
}

func readPassword(r io.Reader, fromStdin bool) (string, error) {
	if !fromStdin {
		return "", fmt.Errorf("password required: pass it with --password-stdin")
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func formatFieldError(err error) error {
	fields := auth.FieldErrors(err)
	if len(fields) == 0 {
		return err
	}
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, k+": "+v)
	}
	return fmt.Errorf("%s (%s)", err.Error(), strings.Join(parts, ", "))
}
