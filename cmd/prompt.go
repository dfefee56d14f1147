package cmd

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/marcus/taskboard/internal/client"
	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/output"
	"github.com/marcus/taskboard/internal/validate"
)

// interactive reports whether prompts can be shown.
func interactive() bool {
	return output.IsTerminal(os.Stdin) && output.IsTerminal(os.Stdout)
}

// fieldCheck adapts a form validator to a huh input validator for one field.
func fieldCheck(field string, check func(string) validate.Errors) func(string) error {
	return func(s string) error {
		if msg := check(s).Get(field); msg != "" {
			return errors.New(msg)
		}
		return nil
	}
}

func requireField(msg string) func(string) error {
	return func(s string) error {
		if s == "" {
			return errors.New(msg)
		}
		return nil
	}
}

// promptLogin asks for whichever credentials were not given as flags.
func promptLogin(lang string, username, password *string) error {
	var fields []huh.Field
	if *username == "" {
		fields = append(fields, huh.NewInput().
			Title(i18n.T(lang, "auth.username")).
			Value(username).
			Validate(requireField("Username is required")))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().
			Title(i18n.T(lang, "auth.password")).
			EchoMode(huh.EchoModePassword).
			Value(password).
			Validate(requireField("Password is required")))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeDracula()).Run()
}

// promptRegistration fills the sign-up form, skipping fields given as flags.
func promptRegistration(lang string, reg *client.Registration) error {
	check := func(mod func(r *validate.Registration, s string)) func(string) validate.Errors {
		return func(s string) validate.Errors {
			r := validate.Registration{
				Username:        reg.Username,
				Email:           reg.Email,
				Name:            reg.Name,
				Password:        reg.Password,
				ConfirmPassword: reg.ConfirmPassword,
			}
			mod(&r, s)
			return validate.Register(r)
		}
	}

	var fields []huh.Field
	if reg.Username == "" {
		fields = append(fields, huh.NewInput().
			Title(i18n.T(lang, "auth.username")).
			Value(&reg.Username).
			Validate(fieldCheck(validate.FieldUsername, check(func(r *validate.Registration, s string) { r.Username = s }))))
	}
	if reg.Email == "" {
		fields = append(fields, huh.NewInput().
			Title(i18n.T(lang, "auth.email")).
			Value(&reg.Email).
			Validate(fieldCheck(validate.FieldEmail, check(func(r *validate.Registration, s string) { r.Email = s }))))
	}
	if reg.Name == "" {
		fields = append(fields, huh.NewInput().
			Title(i18n.T(lang, "auth.name")).
			Value(&reg.Name).
			Validate(fieldCheck(validate.FieldName, check(func(r *validate.Registration, s string) { r.Name = s }))))
	}
	if reg.Password == "" {
		fields = append(fields,
			huh.NewInput().
				Title(i18n.T(lang, "auth.password")).
				EchoMode(huh.EchoModePassword).
				Value(&reg.Password).
				Validate(fieldCheck(validate.FieldPassword, check(func(r *validate.Registration, s string) { r.Password = s }))),
			huh.NewInput().
				Title(i18n.T(lang, "auth.confirmPassword")).
				EchoMode(huh.EchoModePassword).
				Value(&reg.ConfirmPassword).
				Validate(fieldCheck(validate.FieldConfirmPassword, check(func(r *validate.Registration, s string) { r.ConfirmPassword = s }))),
		)
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeDracula()).Run()
}

// promptTodo edits a title and description in place. The form title is the
// dialog heading, e.g. "Create Todo".
func promptTodo(lang, heading string, title, description *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(i18n.T(lang, "todos.todoTitle")).
				Value(title).
				Validate(fieldCheck(validate.FieldTitle, func(s string) validate.Errors {
					return validate.Todo(s, *description)
				})),
			huh.NewText().
				Title(i18n.T(lang, "todos.todoDescription")).
				Description("Markdown supported").
				Value(description).
				Lines(6).
				Validate(fieldCheck(validate.FieldDescription, func(s string) validate.Errors {
					return validate.Todo(*title, s)
				})),
		).Title(heading),
	).WithTheme(huh.ThemeDracula())
	return form.Run()
}

// confirm asks a yes/no question. Non-interactive sessions get false.
func confirm(lang, question string) (bool, error) {
	if !interactive() {
		return false, nil
	}
	ok := false
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative(i18n.T(lang, "todos.delete")).
			Negative(i18n.T(lang, "todos.cancel")).
			Value(&ok),
	)).WithTheme(huh.ThemeDracula()).Run()
	return ok, err
}
