package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/marcus/taskboard/internal/client"
	"github.com/marcus/taskboard/internal/clientconfig"
	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/output"
	"github.com/marcus/taskboard/internal/validate"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the server and log in",
	Long: `Create an account and store its token. Missing fields are prompted for
when running in a terminal.`,
	GroupID: "auth",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := cliLang()
		reg := registrationFromFlags(cmd)

		if interactive() {
			if err := promptRegistration(lang, &reg); err != nil {
				return err
			}
		}

		if errs := validate.Register(validate.Registration{
			Username:        reg.Username,
			Email:           reg.Email,
			Name:            reg.Name,
			Password:        reg.Password,
			ConfirmPassword: reg.ConfirmPassword,
		}); errs != nil {
			return errs
		}

		resp, err := anonClient().Register(reg)
		if err != nil {
			return err
		}
		if err := saveLogin(resp); err != nil {
			return err
		}
		output.Success("%s", i18n.T(lang, "toast.auth.registered", displayName(resp.User)))
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Log in and store the session token",
	GroupID: "auth",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := cliLang()
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		if interactive() {
			if err := promptLogin(lang, &username, &password); err != nil {
				return err
			}
		}
		if errs := validate.Login(username, password); errs != nil {
			return errs
		}

		resp, err := anonClient().Login(username, password)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return &localizedError{msg: i18n.T(lang, "toast.auth.loginError", apiErr.Message), err: err}
		}
		if err != nil {
			return err
		}
		if err := saveLogin(resp); err != nil {
			return err
		}
		output.Success("%s", i18n.T(lang, "toast.auth.loginSuccess", displayName(resp.User)))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Revoke the session token and forget it",
	GroupID: "auth",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := cliLang()
		if c, err := authedClient(); err == nil {
			// A token the server no longer knows is already logged out.
			if err := c.Logout(); err != nil && !errors.Is(err, client.ErrUnauthorized) {
				output.Warning("%s", describe(err))
			}
		}
		if err := clientconfig.ClearAuth(); err != nil {
			return fmt.Errorf("clear credentials: %w", err)
		}
		output.Success("%s", i18n.T(lang, "toast.auth.logoutSuccess"))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the logged in user",
	GroupID: "auth",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		user, err := c.Me()
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(user)
		}
		fmt.Printf("Username: %s\n", user.Username)
		fmt.Printf("Name:     %s\n", user.Name)
		fmt.Printf("Email:    %s\n", user.Email)
		fmt.Printf("Server:   %s\n", c.BaseURL)
		if creds, _ := clientconfig.LoadAuth(); creds != nil && creds.ExpiresAt != nil {
			fmt.Printf("Expires:  %s\n", creds.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

// saveLogin stores the token from a register or login response.
func saveLogin(resp *client.AuthResponse) error {
	creds := &clientconfig.AuthCredentials{
		Token:     resp.Token,
		UserID:    resp.User.ID,
		Username:  resp.User.Username,
		ServerURL: serverURL(),
		ExpiresAt: resp.ExpiresAt,
	}
	if err := clientconfig.SaveAuth(creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func displayName(u client.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

func init() {
	registerCmd.Flags().StringP("username", "u", "", "username (3-20 letters, digits or _)")
	registerCmd.Flags().String("email", "", "email address")
	registerCmd.Flags().String("name", "", "full name")
	registerCmd.Flags().StringP("password", "p", "", "password (prompted when omitted)")

	loginCmd.Flags().StringP("username", "u", "", "username")
	loginCmd.Flags().StringP("password", "p", "", "password (prompted when omitted)")

	whoamiCmd.Flags().Bool("json", false, "JSON output")

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
}
