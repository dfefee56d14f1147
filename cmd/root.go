package cmd

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marcus/taskboard/internal/client"
	"github.com/marcus/taskboard/internal/clientconfig"
	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/output"
	"github.com/marcus/taskboard/internal/suggest"
	"github.com/marcus/taskboard/internal/validate"
)

var (
	// serverFlag and langFlag override the client config for one invocation.
	serverFlag string
	langFlag   string
)

// errNotLoggedIn is returned by commands that need a token when none is stored.
var errNotLoggedIn = errors.New("not logged in: run 'taskboard login' first")

// SetVersion sets the version string
func SetVersion(v string) {
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Multi-user todo board: server, browser UI and terminal client",
	Long: `taskboard - A small multi-user todo board.

Run 'taskboard serve' to start the JSON API and the browser UI, then manage
your todos from the browser, the 'todo' commands or the 'browse' TUI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		output.JSONError(errorCode(err), describe(err))
	} else {
		output.Error("%s", describe(err))
	}
	os.Exit(1)
}

// nameWithAliases returns "name, alias1, alias2" if aliases exist, else just "name"
func nameWithAliases(cmd *cobra.Command) string {
	if len(cmd.Aliases) > 0 {
		return cmd.Name() + ", " + strings.Join(cmd.Aliases, ", ")
	}
	return cmd.Name()
}

func init() {
	cobra.AddTemplateFunc("nameWithAliases", nameWithAliases)

	usageTemplate := `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`

	// Need to add the 'add' function for padding calculation
	cobra.AddTemplateFunc("add", func(a, b int) int { return a + b })

	rootCmd.SetUsageTemplate(usageTemplate)

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Todo Commands:"},
		&cobra.Group{ID: "auth", Title: "Account Commands:"},
		&cobra.Group{ID: "server", Title: "Server Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)

	rootCmd.SetFlagErrorFunc(flagError)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "server URL (default: TASKBOARD_URL or config.yaml)")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "message language: en or vi (default: TASKBOARD_LANG or config.yaml)")
}

// serverURL returns the API address for this invocation.
func serverURL() string {
	if serverFlag != "" {
		return serverFlag
	}
	return clientconfig.ServerURL()
}

// cliLang returns the language for messages in this invocation.
func cliLang() string {
	if i18n.Supported(langFlag) {
		return langFlag
	}
	return clientconfig.Lang()
}

// anonClient returns a client without a token, for register and login.
func anonClient() *client.Client {
	return client.New(serverURL(), "")
}

// authedClient returns a client carrying the stored token.
func authedClient() (*client.Client, error) {
	token := clientconfig.Token()
	if token == "" {
		return nil, errNotLoggedIn
	}
	return client.New(serverURL(), token), nil
}

// localizedError carries a translated message for the terminal while keeping
// the underlying error for errorCode.
type localizedError struct {
	msg string
	err error
}

func (e *localizedError) Error() string { return e.msg }
func (e *localizedError) Unwrap() error { return e.err }

// localize wraps err with the catalog message key, which takes the
// described cause as its argument.
func localize(lang, key string, err error) error {
	return &localizedError{msg: i18n.T(lang, key, describe(err)), err: err}
}

// describe renders an error for the terminal. API and network failures use
// the localized toast text.
func describe(err error) string {
	var le *localizedError
	if errors.As(err, &le) {
		return le.msg
	}
	var apiErr *client.APIError
	var netErr net.Error
	if errors.As(err, &apiErr) || errors.As(err, &netErr) {
		return client.Describe(err, cliLang())
	}
	return err.Error()
}

// errorCode classifies err for --json output.
func errorCode(err error) string {
	var netErr net.Error
	var fieldErrs validate.Errors
	switch {
	case errors.Is(err, errNotLoggedIn):
		return output.ErrCodeNotLoggedIn
	case errors.Is(err, client.ErrUnauthorized):
		return output.ErrCodeUnauthorized
	case errors.Is(err, client.ErrNotFound):
		return output.ErrCodeNotFound
	case errors.Is(err, client.ErrConflict):
		return output.ErrCodeConflict
	case errors.Is(err, client.ErrRateLimited):
		return output.ErrCodeRateLimited
	case errors.As(err, &fieldErrs):
		return output.ErrCodeInvalidInput
	case errors.As(err, &netErr):
		return output.ErrCodeNetwork
	}
	return output.ErrCodeFailed
}

// flagError adds a hint to unknown flag errors: the flag people usually mean,
// or the command's flags closest to the one typed.
func flagError(cmd *cobra.Command, err error) error {
	name, ok := strings.CutPrefix(err.Error(), "unknown flag: ")
	if !ok {
		return err
	}
	if hint := suggest.FlagHint(name); hint != "" {
		return fmt.Errorf("%w (use %s)", err, hint)
	}
	var names []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		names = append(names, "--"+f.Name)
	})
	if s := suggest.Closest(name, names); len(s) > 0 {
		return fmt.Errorf("%w (did you mean %s?)", err, strings.Join(s, ", "))
	}
	return err
}
