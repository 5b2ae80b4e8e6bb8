package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/showroom/internal/cli"
	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/session"
)

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the analytics API",
		Long: `Sign in and keep the session token in the local database.

The password is prompted for without echo, or read from standard input
with --password-stdin for scripts.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().StringP("username", "u", "", "username (prompted when empty)")
	cmd.Flags().Bool("password-stdin", false, "read the password from standard input")

	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	username, _ := cmd.Flags().GetString("username")
	passwordStdin, _ := cmd.Flags().GetBool("password-stdin")

	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		reader := cli.NewNonBlockingReader(cmd.InOrStdin())

		var err error
		if username == "" {
			if passwordStdin {
				return common.NewUserError("--password-stdin needs --username", common.ErrMissingConfig)
			}
			if username, err = reader.Prompt(ctx, out, "Username"); err != nil {
				return err
			}
		}

		var password string
		if stdin, ok := cmd.InOrStdin().(*os.File); ok && !passwordStdin {
			password, err = reader.ReadSecret(ctx, stdin, out, "Password")
		} else {
			password, err = reader.ReadLine(ctx)
		}
		if err != nil {
			return err
		}

		sess, err := a.store.Login(ctx, a.client, username, password)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, cli.FormatSuccess("Signed in as "+sess.Username))
		if sess.ExpiresAt != nil {
			fmt.Fprintln(out, cli.SubtitleStyle.Render("Session expires "+sess.ExpiresAt.Local().Format(time.RFC1123)))
		}
		return nil
	})
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				if err := a.store.Logout(ctx, session.ReasonUser); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Signed out"))
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				sess, err := a.store.Current(ctx)
				if errors.Is(err, common.ErrNotAuthenticated) {
					fmt.Fprintln(out, cli.FormatInfo("Not signed in"))
					return nil
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "%s @ %s\n", cli.BoldStyle.Render(sess.Username), a.cfg.BaseURL)
				if sess.ExpiresAt != nil {
					fmt.Fprintf(out, "expires %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))
				}
				return nil
			})
		},
	}
}
