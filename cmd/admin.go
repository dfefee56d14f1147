package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/marcus/taskboard/internal/api"
	"github.com/marcus/taskboard/internal/client"
	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/output"
	"github.com/marcus/taskboard/internal/store"
	"github.com/marcus/taskboard/internal/validate"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administer the server database directly",
	Long: `Administer users and sessions by opening the server database directly.
The database is located through the same config as 'serve'; --db overrides it.`,
	GroupID: "server",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List registered users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openAdminStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		users, err := st.ListUsers()
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(users)
		}
		if len(users) == 0 {
			output.Info("No users.")
			return nil
		}
		for _, u := range users {
			total, completed, err := st.CountTodos(u.ID)
			if err != nil {
				return err
			}
			fmt.Printf("%-20s %-30s %-24s %3d todos (%d done)  joined %s\n",
				u.Username, u.Email, u.Name, total, completed, humanize.Time(u.CreatedAt))
		}
		return nil
	},
}

var adminCreateUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user without going through sign-up",
	Long: `Create a user directly in the database. This works even when sign-up is
disabled. Missing fields are prompted for when running in a terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registrationFromFlags(cmd)
		if interactive() {
			if err := promptRegistration(i18n.Default, &reg); err != nil {
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

		st, err := openAdminStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		user, err := st.CreateUser(store.NewUser{
			Username: reg.Username,
			Email:    reg.Email,
			Name:     reg.Name,
			Password: reg.Password,
		})
		if errors.Is(err, store.ErrUsernameTaken) {
			return fmt.Errorf("username %q is already taken", reg.Username)
		}
		if err != nil {
			return err
		}
		if err := st.InsertAuthEvent(user.ID, user.Username, store.AuthEventRegistered, `{"via":"admin"}`); err != nil {
			output.Warning("record auth event: %v", err)
		}
		output.Success("created user %s (%s)", user.Username, user.ID)
		return nil
	},
}

var adminSetPasswordCmd = &cobra.Command{
	Use:   "set-password <username>",
	Short: "Reset a user's password and revoke their sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		if password == "" && interactive() {
			username := args[0]
			if err := promptLogin(i18n.Default, &username, &password); err != nil {
				return err
			}
		}
		if errs := validate.Login(args[0], password); errs != nil {
			return errs
		}

		st, err := openAdminStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		user, err := lookupUser(st, args[0])
		if err != nil {
			return err
		}
		if err := st.SetPassword(user.ID, password); err != nil {
			return err
		}
		n, err := st.RevokeUserSessions(user.ID)
		if err != nil {
			return err
		}
		output.Success("password reset for %s, %d sessions revoked", user.Username, n)
		return nil
	},
}

var adminSessionsCmd = &cobra.Command{
	Use:   "sessions <username>",
	Short: "List a user's sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openAdminStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		user, err := lookupUser(st, args[0])
		if err != nil {
			return err
		}

		if revoke, _ := cmd.Flags().GetBool("revoke"); revoke {
			n, err := st.RevokeUserSessions(user.ID)
			if err != nil {
				return err
			}
			output.Success("revoked %d sessions for %s", n, user.Username)
			return nil
		}

		sessions, err := st.ListSessions(user.ID)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			output.Info("No sessions for %s.", user.Username)
			return nil
		}
		now := time.Now()
		for _, s := range sessions {
			fmt.Println(formatSession(s, now))
		}
		return nil
	},
}

var adminEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent auth events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openAdminStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		eventType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		events, err := st.ListAuthEvents(eventType, limit)
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(events)
		}
		for _, e := range events {
			fmt.Printf("%s  %-13s %-20s %s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.EventType, e.Username, e.Metadata)
		}
		return nil
	},
}

var adminCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired sessions and events past retention",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServerConfig(cmd)
		if err != nil {
			return err
		}
		applyDBFlag(cmd, &cfg.DBPath)

		st, err := store.OpenWithDriver(cfg.DBDriver, cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		srv, err := api.NewServer(cfg, st, api.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		if err != nil {
			return err
		}
		res := srv.Cleanup()
		output.Success("removed %d sessions, %d auth events, %d rate limit events",
			res.Sessions, res.AuthEvents, res.RateLimitEvents)
		return nil
	},
}

// openAdminStore opens the server database named by --config and --db.
func openAdminStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadServerConfig(cmd)
	if err != nil {
		return nil, err
	}
	applyDBFlag(cmd, &cfg.DBPath)
	st, err := store.OpenWithDriver(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

func applyDBFlag(cmd *cobra.Command, dbPath *string) {
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		*dbPath = v
	}
}

func lookupUser(st *store.Store, username string) (*store.User, error) {
	user, err := st.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", username)
	}
	return user, nil
}

// registrationFromFlags reads the sign-up fields shared by register and
// admin create-user. A password given as a flag needs no confirmation.
func registrationFromFlags(cmd *cobra.Command) client.Registration {
	var reg client.Registration
	reg.Username, _ = cmd.Flags().GetString("username")
	reg.Email, _ = cmd.Flags().GetString("email")
	reg.Name, _ = cmd.Flags().GetString("name")
	reg.Password, _ = cmd.Flags().GetString("password")
	reg.ConfirmPassword = reg.Password
	return reg
}

// formatSession renders one session row: name, token prefix, last use and
// expiry.
func formatSession(s *store.Session, now time.Time) string {
	lastUsed := "never used"
	if s.LastUsedAt != nil {
		lastUsed = "used " + humanize.Time(*s.LastUsedAt)
	}
	expires := "no expiry"
	if s.ExpiresAt != nil {
		if s.ExpiresAt.Before(now) {
			expires = "expired"
		} else {
			expires = "expires " + humanize.RelTime(*s.ExpiresAt, now, "ago", "from now")
		}
	}
	return strings.Join([]string{
		fmt.Sprintf("%-10s", s.Name),
		s.Prefix + "…",
		lastUsed,
		expires,
	}, "  ")
}

func init() {
	adminCmd.PersistentFlags().StringP("config", "c", "", "path to the server YAML config")
	adminCmd.PersistentFlags().String("db", "", "path to the database (overrides db_path)")

	adminUsersCmd.Flags().Bool("json", false, "JSON output")

	adminCreateUserCmd.Flags().StringP("username", "u", "", "username")
	adminCreateUserCmd.Flags().String("email", "", "email address")
	adminCreateUserCmd.Flags().String("name", "", "full name")
	adminCreateUserCmd.Flags().StringP("password", "p", "", "password (prompted when omitted)")

	adminSetPasswordCmd.Flags().StringP("password", "p", "", "new password (prompted when omitted)")

	adminSessionsCmd.Flags().Bool("revoke", false, "revoke all of the user's sessions")

	adminEventsCmd.Flags().String("type", "", "only events of this type (registered, login, login_failed, logout)")
	adminEventsCmd.Flags().IntP("limit", "n", 50, "maximum events to show")
	adminEventsCmd.Flags().Bool("json", false, "JSON output")

	adminCmd.AddCommand(adminUsersCmd, adminCreateUserCmd, adminSetPasswordCmd, adminSessionsCmd, adminEventsCmd, adminCleanupCmd)
	rootCmd.AddCommand(adminCmd)
}
