package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"association-admin-api/internal/client"
	"association-admin-api/internal/datefmt"
)

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "assoc", "session.json")
}

func newWatchCmd() *cobra.Command {
	var (
		server, email, sessionPath string
		poll                       time.Duration
		birthdays, expiries        bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sign in and follow the session from a terminal",
		Long: "Sign in to a running API, print the notifications enabled in the local session " +
			"and keep polling the current user until the session expires or the command is interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("ASSOC_PASSWORD")
			if password == "" {
				return errors.New("ASSOC_PASSWORD must be set")
			}

			sess, err := client.OpenSession(sessionPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("birthdays") || cmd.Flags().Changed("expiries") {
				if err := sess.SetNotifications(birthdays, expiries); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			c := client.New(server,
				client.WithSession(sess),
				client.WithPollInterval(poll),
				client.OnSessionExpired(func() { fmt.Fprintln(out, "session expired, sign in again") }),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			u, err := c.Login(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "signed in as %s <%s>\n", u.Name, u.Email)

			if err := printNotifications(cmd, c, sess, out); err != nil {
				return err
			}

			err = c.PollCurrentUser(ctx, func(err error) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			})
			if errors.Is(err, client.ErrSessionExpired) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&email, "email", "", "login email (password is read from ASSOC_PASSWORD)")
	cmd.Flags().StringVar(&sessionPath, "session", defaultSessionPath(), "session file")
	cmd.Flags().DurationVar(&poll, "poll", client.DefaultPollInterval, "current user polling interval")
	cmd.Flags().BoolVar(&birthdays, "birthdays", false, "enable birthday notifications")
	cmd.Flags().BoolVar(&expiries, "expiries", false, "enable membership expiry notifications")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func printNotifications(cmd *cobra.Command, c *client.Client, sess *client.Session, out io.Writer) error {
	birthdays, expiries := sess.Notifications()
	if birthdays {
		list, err := c.BirthdaysTomorrow(cmd.Context())
		if err != nil {
			return err
		}
		for _, a := range list {
			fmt.Fprintf(out, "birthday tomorrow: %s\n", a.Name)
		}
	}
	if expiries {
		list, err := c.ExpiringAssociates(cmd.Context(), 7, false)
		if err != nil {
			return err
		}
		for _, a := range list {
			fmt.Fprintf(out, "membership expiring: %s on %s\n", a.Name, a.ExpiryDate.Format(datefmt.Display))
		}
	}
	return nil
}
