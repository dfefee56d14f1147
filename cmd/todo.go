package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/marcus/taskboard/internal/client"
	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/input"
	"github.com/marcus/taskboard/internal/output"
	"github.com/marcus/taskboard/internal/route"
	"github.com/marcus/taskboard/internal/suggest"
	"github.com/marcus/taskboard/internal/todolist"
	"github.com/marcus/taskboard/internal/validate"
)

var todoCmd = &cobra.Command{
	Use:     "todo",
	Aliases: []string{"t"},
	Short:   "List and change your todos",
	GroupID: "core",
}

var todoListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List one page of todos",
	Example: `  taskboard todo list
  taskboard todo list --view pending --search milk
  taskboard todo ls -p 2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := cliLang()
		c, err := authedClient()
		if err != nil {
			return err
		}

		view, _ := cmd.Flags().GetString("view")
		if err := checkView(view); err != nil {
			return err
		}
		q := client.Query{View: view}
		q.Search, _ = cmd.Flags().GetString("search")
		q.Page, _ = cmd.Flags().GetInt("page")
		q.PerPage, _ = cmd.Flags().GetInt("limit")

		page, err := c.ListTodos(q)
		if err != nil {
			return localize(lang, "toast.todo.loadError", err)
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(page)
		}

		titleWidth := output.TerminalWidth(80) - 40
		if titleWidth < 10 {
			titleWidth = 10
		}
		for i := range page.Data {
			fmt.Println(output.FormatTodoShort(&page.Data[i], lang, titleWidth))
		}
		fmt.Println(output.FormatPageFooter(page, lang))
		return nil
	},
}

var todoAddCmd = &cobra.Command{
	Use:     "add [title]",
	Aliases: []string{"create", "new"},
	Short:   "Create a todo",
	Example: `  taskboard todo add "Buy milk" -d "Two litres, semi-skimmed"
  taskboard todo add`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := cliLang()
		c, err := authedClient()
		if err != nil {
			return err
		}

		var title string
		if len(args) > 0 {
			title = args[0]
		}
		description, err := descriptionFlag(cmd)
		if err != nil {
			return err
		}

		if interactive() && (title == "" || description == "") {
			if err := promptTodo(lang, i18n.T(lang, "todos.createTodo"), &title, &description); err != nil {
				return err
			}
		}
		if errs := validate.Todo(title, description); errs != nil {
			return errs
		}

		todo, err := c.CreateTodo(strings.TrimSpace(title), strings.TrimSpace(description))
		if err != nil {
			return localize(lang, "toast.todo.createError", err)
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(todo)
		}
		output.Success("%s", i18n.T(lang, "toast.todo.created"))
		fmt.Println(output.FormatTodoShort(todo, lang, 0))
		return nil
	},
}

var todoShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a todo with its rendered description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := cliLang()
		c, err := authedClient()
		if err != nil {
			return err
		}
		todo, err := c.GetTodo(args[0])
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(todo)
		}
		link := route.TodoLink(c.BaseURL, todo.ID)
		fmt.Print(output.FormatTodoLong(todo, lang, output.RenderMarkdown(todo.Description), link))
		return nil
	},
}

var todoEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a todo's title or description",
	Long: `Change a todo's title or description. Without --title or --description
the edit dialog opens in a terminal, prefilled with the current values.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := cliLang()
		c, err := authedClient()
		if err != nil {
			return err
		}

		var patch client.TodoPatch
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			patch.Title = &v
		}
		if cmd.Flags().Changed("description") {
			v, err := descriptionFlag(cmd)
			if err != nil {
				return err
			}
			patch.Description = &v
		}

		if patch.Title == nil && patch.Description == nil {
			if !interactive() {
				return errors.New("nothing to change: pass --title or --description")
			}
			current, err := c.GetTodo(args[0])
			if err != nil {
				return err
			}
			title, description := current.Title, current.Description
			if err := promptTodo(lang, i18n.T(lang, "todos.editTodo"), &title, &description); err != nil {
				return err
			}
			patch.Title, patch.Description = &title, &description
		}
		if errs := validate.TodoPatch(patch.Title, patch.Description); errs != nil {
			return errs
		}
		trimPatch(&patch)

		todo, err := c.UpdateTodo(args[0], patch)
		if err != nil {
			return localize(lang, "toast.todo.updateError", err)
		}
		output.Success("%s", i18n.T(lang, "toast.todo.updated"))
		fmt.Println(output.FormatTodoShort(todo, lang, 0))
		return nil
	},
}

var todoToggleCmd = &cobra.Command{
	Use:     "toggle <id>...",
	Aliases: []string{"done"},
	Short:   "Flip todos between pending and completed",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := cliLang()
		c, err := authedClient()
		if err != nil {
			return err
		}

		failed := 0
		var lastErr error
		for _, id := range args {
			todo, err := c.ToggleTodo(id)
			if err != nil {
				output.Error("%s: %s", id, i18n.T(lang, "toast.todo.toggleError", describe(err)))
				failed++
				lastErr = err
				continue
			}
			if todo.Completed {
				output.Success("%s %s", todo.ID, i18n.T(lang, "toast.todo.completed"))
			} else {
				output.Success("%s %s", todo.ID, i18n.T(lang, "toast.todo.pending"))
			}
		}
		if failed > 0 {
			return &localizedError{msg: fmt.Sprintf("%d of %d todos not toggled", failed, len(args)), err: lastErr}
		}
		return nil
	},
}

var todoRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete", "del"},
	Short:   "Delete a todo",
	Long: `Delete a todo. In a terminal the deletion is confirmed first; pass --yes
to skip the question. Without a terminal --yes is required.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := cliLang()
		c, err := authedClient()
		if err != nil {
			return err
		}

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			todo, err := c.GetTodo(args[0])
			if err != nil {
				return err
			}
			ok, err := confirm(lang, fmt.Sprintf("%s\n%q", i18n.T(lang, "todos.confirmDelete"), todo.Title))
			if err != nil {
				return err
			}
			if !ok {
				if !interactive() {
					return errors.New("refusing to delete without confirmation: pass --yes")
				}
				return nil
			}
		}

		if err := c.DeleteTodo(args[0]); err != nil {
			return localize(lang, "toast.todo.deleteError", err)
		}
		output.Success("%s", i18n.T(lang, "toast.todo.deleted"))
		return nil
	},
}

var todoLinkCmd = &cobra.Command{
	Use:   "link <id>",
	Short: "Print the share link that opens a todo in the browser",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		// Resolve first so a link is only printed for a todo that exists.
		todo, err := c.GetTodo(args[0])
		if err != nil {
			return err
		}
		link := route.TodoLink(c.BaseURL, todo.ID)
		fmt.Println(link)

		if copyLink, _ := cmd.Flags().GetBool("copy"); copyLink {
			if err := clipboard.WriteAll(link); err != nil {
				output.Warning("copy to clipboard: %v", err)
				return nil
			}
			output.Info("Copied to clipboard")
		}
		return nil
	},
}

// descriptionFlag reads --description, expanding "-" (stdin) and "@file".
func descriptionFlag(cmd *cobra.Command) (string, error) {
	v, _ := cmd.Flags().GetString("description")
	return input.Text(v, os.Stdin)
}

// checkView rejects unknown view names, suggesting the closest one.
func checkView(view string) error {
	if _, err := todolist.ParseView(view); err != nil {
		names := make([]string, len(todolist.Views))
		for i, v := range todolist.Views {
			names[i] = string(v)
		}
		if s := suggest.Closest(view, names); len(s) > 0 {
			return fmt.Errorf("%w (did you mean %q?)", err, s[0])
		}
		return err
	}
	return nil
}

// trimPatch trims whitespace from the fields being changed.
func trimPatch(p *client.TodoPatch) {
	if p.Title != nil {
		v := strings.TrimSpace(*p.Title)
		p.Title = &v
	}
	if p.Description != nil {
		v := strings.TrimSpace(*p.Description)
		p.Description = &v
	}
}

func init() {
	todoListCmd.Flags().String("view", "all", "which todos: all, pending or completed")
	todoListCmd.Flags().StringP("search", "s", "", "case-insensitive search on title and description")
	todoListCmd.Flags().IntP("page", "p", 1, "page number")
	todoListCmd.Flags().IntP("limit", "n", todolist.DefaultPerPage, "todos per page")
	todoListCmd.Flags().Bool("json", false, "JSON output")

	todoAddCmd.Flags().StringP("description", "d", "", "description (markdown; - reads stdin, @file reads a file)")
	todoAddCmd.Flags().Bool("json", false, "JSON output")

	todoShowCmd.Flags().Bool("json", false, "JSON output")

	todoEditCmd.Flags().StringP("title", "t", "", "new title")
	todoEditCmd.Flags().StringP("description", "d", "", "new description (markdown; - reads stdin, @file reads a file)")

	todoRmCmd.Flags().BoolP("yes", "y", false, "delete without asking")

	todoLinkCmd.Flags().BoolP("copy", "c", false, "also copy the link to the clipboard")

	todoCmd.AddCommand(todoListCmd, todoAddCmd, todoShowCmd, todoEditCmd, todoToggleCmd, todoRmCmd, todoLinkCmd)
	rootCmd.AddCommand(todoCmd)
}
