package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Exchanges email and password for a token. The password is read from
stdin when --password is not given.`,
		Args: cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if password == "" && email != "" {
				var err error
				if password, err = prompt(cmd, "Password: "); err != nil {
					return err
				}
			}
			if err := c.session.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", c.session.State().Email)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Admin email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if err := c.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in admin and theme",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			st := c.session.State()
			out := cmd.OutOrStdout()
			if st.LoggedIn() {
				fmt.Fprintf(out, "Logged in as %s\n", st.Email)
			} else {
				fmt.Fprintln(out, "Not logged in")
			}
			fmt.Fprintf(out, "Theme: %s\n", themeName(st.DarkMode))
			return nil
		}),
	}
}

func (c *cli) themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme",
		Short: "Toggle between light and dark mode",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			dark, err := c.session.ToggleDarkMode(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme: %s\n", themeName(dark))
			return nil
		}),
	}
}

func (c *cli) resetPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for the logged-in admin",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			if password == "" {
				var err error
				if password, err = prompt(cmd, "New password: "); err != nil {
					return err
				}
			}
			msg, err := c.session.ResetPassword(cmd.Context(), password)
			if err != nil {
				return err
			}
			if msg == "" {
				msg = "Password updated"
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password")
	return cmd
}

func themeName(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}

// prompt writes label and reads one line from the command's input.
func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
