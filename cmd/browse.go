package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/marcus/taskboard/internal/todolist"
	"github.com/marcus/taskboard/internal/tui/board"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse your todos in an interactive terminal board",
	Long: `Open the todo board in the terminal. It shows the same views, search and
paging as the browser UI.

Key bindings:
  Tab/Shift+Tab  Switch view
  1/2/3          All / Pending / Completed
  ↑/↓, j/k       Move selection
  ←/→, h/l       Previous / next page
  /              Search (Enter applies, Esc clears)
  Space          Toggle completed
  d              Delete (y confirms)
  r              Refresh
  ?              Toggle help
  q              Quit`,
	GroupID: "core",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}

		model := board.NewModel(c, cliLang())
		if view, _ := cmd.Flags().GetString("view"); view != "" {
			if err := checkView(view); err != nil {
				return err
			}
			model.Tab, _ = todolist.ParseView(view)
		}

		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running board: %w", err)
		}
		return nil
	},
}

func init() {
	browseCmd.Flags().String("view", "", "initial view: all, pending or completed")
	rootCmd.AddCommand(browseCmd)
}
