package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marcus/taskboard/internal/client"
	"github.com/marcus/taskboard/internal/clientconfig"
	"github.com/marcus/taskboard/internal/config"
	"github.com/marcus/taskboard/internal/store"
	"github.com/marcus/taskboard/internal/validate"
)

// startTestServer runs the API against a temp database and points the
// client config at it. HOME is redirected so credentials land in a temp dir.
func startTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "taskboard.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.RateLimitAuth = 100000
	cfg.RateLimitRead = 100000
	cfg.RateLimitWrite = 100000
	srv, err := newServer(cfg, st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("TASKBOARD_URL", ts.URL)
	t.Setenv("TASKBOARD_TOKEN", "")
	t.Setenv("TASKBOARD_LANG", "")
	t.Setenv("TASKBOARD_CONFIG", "")
	return ts, dbPath
}

// resetFlags restores every flag in the tree to its default so commands
// run in one process do not leak state into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI with args and returns what it printed to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		done <- buf.String()
	}()

	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	return <-done, runErr
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("taskboard %s: %v\noutput: %s", strings.Join(args, " "), err, out)
	}
	return out
}

func registerAlice(t *testing.T) {
	t.Helper()
	mustRun(t, "register", "--username", "alice", "--email", "alice@example.com",
		"--name", "Alice Smith", "--password", "secret123")
}

func addTodo(t *testing.T, title, description string) client.Todo {
	t.Helper()
	out := mustRun(t, "todo", "add", title, "-d", description, "--json")
	var todo client.Todo
	if err := json.Unmarshal([]byte(out), &todo); err != nil {
		t.Fatalf("decode todo: %v\noutput: %s", err, out)
	}
	return todo
}

func TestCommandsHaveKnownGroups(t *testing.T) {
	groups := map[string]bool{}
	for _, g := range rootCmd.Groups() {
		groups[g.ID] = true
	}
	for _, c := range rootCmd.Commands() {
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		if !groups[c.GroupID] {
			t.Errorf("command %q has unknown group %q", c.Name(), c.GroupID)
		}
	}
}

func TestNameWithAliases(t *testing.T) {
	if got := nameWithAliases(todoListCmd); got != "list, ls" {
		t.Errorf("nameWithAliases(list) = %q", got)
	}
	if got := nameWithAliases(browseCmd); got != "browse" {
		t.Errorf("nameWithAliases(browse) = %q", got)
	}
}

func TestRegisterWhoamiLogout(t *testing.T) {
	startTestServer(t)

	out, err := run(t, "register", "--username", "alice", "--email", "alice@example.com",
		"--name", "Alice Smith", "--password", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(out, "Account created. Welcome, Alice Smith!") {
		t.Fatalf("unexpected register output %q", out)
	}
	creds, err := clientconfig.LoadAuth()
	if err != nil || creds == nil || creds.Token == "" {
		t.Fatalf("expected saved credentials, got %+v (%v)", creds, err)
	}
	if creds.Username != "alice" {
		t.Fatalf("saved username = %q", creds.Username)
	}

	out = mustRun(t, "whoami")
	if !strings.Contains(out, "alice") || !strings.Contains(out, "alice@example.com") {
		t.Fatalf("unexpected whoami output %q", out)
	}

	out = mustRun(t, "logout")
	if !strings.Contains(out, "Logged out successfully") {
		t.Fatalf("unexpected logout output %q", out)
	}
	if creds, _ := clientconfig.LoadAuth(); creds != nil {
		t.Fatalf("credentials should be cleared, got %+v", creds)
	}

	if _, err := run(t, "whoami"); err != errNotLoggedIn {
		t.Fatalf("whoami after logout: got %v, want errNotLoggedIn", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	startTestServer(t)

	_, err := run(t, "register", "--username", "a!", "--email", "nope",
		"--name", "A", "--password", "123")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"Username", "Invalid email address", "Password"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	startTestServer(t)
	registerAlice(t)

	_, err := run(t, "register", "--username", "alice", "--email", "other@example.com",
		"--name", "Other Alice", "--password", "secret123")
	if err == nil || !strings.Contains(describe(err), "Username is already taken") {
		t.Fatalf("expected taken error, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	startTestServer(t)
	registerAlice(t)
	mustRun(t, "logout")

	_, err := run(t, "login", "-u", "alice", "-p", "wrong-password")
	if err == nil || !strings.Contains(err.Error(), "Invalid credentials") {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	out := mustRun(t, "login", "-u", "ALICE", "-p", "secret123")
	if !strings.Contains(out, "Welcome back, Alice Smith!") {
		t.Fatalf("unexpected login output %q", out)
	}
	if !clientconfig.IsAuthenticated() {
		t.Fatal("expected token after login")
	}
}

func TestTodoCommandsRequireLogin(t *testing.T) {
	startTestServer(t)
	for _, args := range [][]string{
		{"todo", "list"},
		{"todo", "add", "Buy milk", "-d", "Two litres of milk"},
		{"todo", "toggle", "abc"},
		{"browse"},
	} {
		if _, err := run(t, args...); err != errNotLoggedIn {
			t.Errorf("%v: got %v, want errNotLoggedIn", args, err)
		}
	}
}

func TestTodoLifecycle(t *testing.T) {
	ts, _ := startTestServer(t)
	registerAlice(t)

	milk := addTodo(t, "Buy milk", "Two litres, **semi-skimmed**")
	addTodo(t, "Walk the dog", "Around the park twice")
	if milk.ID == "" || milk.Completed {
		t.Fatalf("unexpected created todo %+v", milk)
	}

	out := mustRun(t, "todo", "list")
	if !strings.Contains(out, "Buy milk") || !strings.Contains(out, "Walk the dog") {
		t.Fatalf("list missing todos: %q", out)
	}
	if !strings.Contains(out, "2 of 2 todos") {
		t.Fatalf("list footer missing: %q", out)
	}

	out = mustRun(t, "todo", "list", "--search", "MILK", "--json")
	var page client.TodoPage
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 1 || page.Data[0].ID != milk.ID {
		t.Fatalf("search returned %+v", page)
	}

	out = mustRun(t, "todo", "show", milk.ID)
	if !strings.Contains(out, ts.URL+"/task/"+milk.ID+"/edit") {
		t.Fatalf("show missing share link: %q", out)
	}
	if !strings.Contains(out, "semi-skimmed") {
		t.Fatalf("show missing description: %q", out)
	}

	out = mustRun(t, "todo", "toggle", milk.ID)
	if !strings.Contains(out, "Task marked as completed!") {
		t.Fatalf("unexpected toggle output %q", out)
	}
	out = mustRun(t, "todo", "list", "--view", "completed")
	if !strings.Contains(out, "Buy milk") || strings.Contains(out, "Walk the dog") {
		t.Fatalf("completed view wrong: %q", out)
	}
	out = mustRun(t, "todo", "list", "--view", "pending")
	if strings.Contains(out, "Buy milk") || !strings.Contains(out, "Walk the dog") {
		t.Fatalf("pending view wrong: %q", out)
	}

	out = mustRun(t, "todo", "edit", milk.ID, "--title", "Buy oat milk")
	if !strings.Contains(out, "Task updated successfully!") || !strings.Contains(out, "Buy oat milk") {
		t.Fatalf("unexpected edit output %q", out)
	}

	if _, err := run(t, "todo", "rm", milk.ID); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("rm without confirmation should refuse, got %v", err)
	}
	out = mustRun(t, "todo", "rm", milk.ID, "--yes")
	if !strings.Contains(out, "Task deleted successfully!") {
		t.Fatalf("unexpected rm output %q", out)
	}
	if _, err := run(t, "todo", "show", milk.ID); err == nil || !strings.Contains(describe(err), "Resource not found") {
		t.Fatalf("show after delete: got %v", err)
	}
}

func TestTodoAddValidation(t *testing.T) {
	startTestServer(t)
	registerAlice(t)

	_, err := run(t, "todo", "add", "ab", "-d", "short")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "Title must be at least 3 characters") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTodoEditNeedsChanges(t *testing.T) {
	startTestServer(t)
	registerAlice(t)
	todo := addTodo(t, "Buy milk", "Two litres of milk")

	if _, err := run(t, "todo", "edit", todo.ID); err == nil {
		t.Fatal("edit without flags outside a terminal should fail")
	}
}

func TestTodoToggleReportsFailures(t *testing.T) {
	startTestServer(t)
	registerAlice(t)
	todo := addTodo(t, "Buy milk", "Two litres of milk")

	out, err := run(t, "todo", "toggle", todo.ID, "missing-id")
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if !strings.Contains(out, "Failed to toggle task") {
		t.Fatalf("missing failure line: %q", out)
	}
}

func TestTodoErrorsKeepCause(t *testing.T) {
	startTestServer(t)
	t.Setenv("TASKBOARD_TOKEN", "tb_bogus")

	tests := []struct {
		args []string
		want string
		msg  string
	}{
		{[]string{"todo", "list", "--json"}, "unauthorized", "Failed to load tasks"},
		{[]string{"todo", "add", "Buy milk", "-d", "Two litres of milk", "--json"}, "unauthorized", "Failed to create task"},
		{[]string{"todo", "toggle", "abc"}, "unauthorized", "1 of 1 todos not toggled"},
		{[]string{"todo", "show", "abc", "--json"}, "unauthorized", ""},
	}
	for _, tt := range tests {
		_, err := run(t, tt.args...)
		if err == nil {
			t.Fatalf("%v: expected error", tt.args)
		}
		if got := errorCode(err); got != tt.want {
			t.Errorf("%v: errorCode = %q, want %q", tt.args, got, tt.want)
		}
		if !strings.Contains(describe(err), tt.msg) {
			t.Errorf("%v: describe = %q, want it to contain %q", tt.args, describe(err), tt.msg)
		}
	}
}

func TestTodoNotFoundCode(t *testing.T) {
	startTestServer(t)
	registerAlice(t)

	_, err := run(t, "todo", "rm", "missing-id", "--yes")
	if got := errorCode(err); got != "not_found" {
		t.Fatalf("errorCode = %q, want not_found (err %v)", got, err)
	}
	if !strings.Contains(describe(err), "Failed to delete task") {
		t.Fatalf("describe = %q", describe(err))
	}
}

func TestTodoListRejectsUnknownView(t *testing.T) {
	startTestServer(t)
	registerAlice(t)
	if _, err := run(t, "todo", "list", "--view", "archived"); err == nil {
		t.Fatal("expected error for unknown view")
	}
}

func TestTodoLink(t *testing.T) {
	ts, _ := startTestServer(t)
	registerAlice(t)
	todo := addTodo(t, "Buy milk", "Two litres of milk")

	out := mustRun(t, "todo", "link", todo.ID)
	if strings.TrimSpace(out) != ts.URL+"/task/"+todo.ID+"/edit" {
		t.Fatalf("link = %q", out)
	}
}

func TestLangFlag(t *testing.T) {
	startTestServer(t)
	registerAlice(t)

	out := mustRun(t, "--lang", "vi", "todo", "add", "Mua sữa", "-d", "Hai lít sữa tươi")
	if !strings.Contains(out, "Đã tạo công việc!") {
		t.Fatalf("expected Vietnamese toast, got %q", out)
	}

	langFlag = ""
	t.Setenv("TASKBOARD_LANG", "vi")
	if got := cliLang(); got != "vi" {
		t.Fatalf("cliLang with env = %q", got)
	}
	langFlag = "xx"
	defer func() { langFlag = "" }()
	if got := cliLang(); got != "vi" {
		t.Fatalf("unsupported --lang should fall back, got %q", got)
	}
}

func TestServerFlagOverridesConfig(t *testing.T) {
	t.Setenv("TASKBOARD_URL", "http://from-env:3000")
	serverFlag = "http://from-flag:3000"
	defer func() { serverFlag = "" }()
	if got := serverURL(); got != "http://from-flag:3000" {
		t.Fatalf("serverURL = %q", got)
	}
}

func TestDescribe(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TASKBOARD_LANG", "")
	apiErr := &client.APIError{Status: 404, Code: "not_found", Message: "todo not found"}
	if got := describe(apiErr); !strings.Contains(got, "Resource not found") {
		t.Errorf("describe(404) = %q", got)
	}
	if got := describe(errNotLoggedIn); got != errNotLoggedIn.Error() {
		t.Errorf("describe(plain) = %q", got)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errNotLoggedIn, "not_logged_in"},
		{&client.APIError{Status: 404, Code: "not_found"}, "not_found"},
		{&client.APIError{Status: 409, Code: "conflict"}, "conflict"},
		{&client.APIError{Status: 401, Code: "unauthorized"}, "unauthorized"},
		{validate.Todo("", ""), "invalid_input"},
		{errors.New("boom"), "failed"},
	}
	for _, tt := range tests {
		if got := errorCode(tt.err); got != tt.want {
			t.Errorf("errorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestAdminCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "admin.db")
	t.Setenv("TASKBOARD_CONFIG", "")
	t.Setenv("TASKBOARD_DB_PATH", "")

	out := mustRun(t, "admin", "create-user", "--db", dbPath,
		"-u", "bob", "--email", "bob@example.com", "--name", "Bob Jones", "-p", "hunter22")
	if !strings.Contains(out, "created user bob") {
		t.Fatalf("unexpected create-user output %q", out)
	}

	if _, err := run(t, "admin", "create-user", "--db", dbPath,
		"-u", "BOB", "--email", "b2@example.com", "--name", "Bob Two", "-p", "hunter22"); err == nil {
		t.Fatal("expected duplicate username error")
	}

	out = mustRun(t, "admin", "users", "--db", dbPath)
	if !strings.Contains(out, "bob") || !strings.Contains(out, "0 todos") {
		t.Fatalf("unexpected users output %q", out)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	user, _ := st.GetUserByUsername("bob")
	if _, _, err := st.CreateSession(user.ID, "cli", 0); err != nil {
		t.Fatalf("create session: %v", err)
	}
	st.Close()

	out = mustRun(t, "admin", "sessions", "bob", "--db", dbPath)
	if !strings.Contains(out, "cli") || !strings.Contains(out, "no expiry") {
		t.Fatalf("unexpected sessions output %q", out)
	}

	out = mustRun(t, "admin", "set-password", "bob", "-p", "newpass99", "--db", dbPath)
	if !strings.Contains(out, "1 sessions revoked") {
		t.Fatalf("unexpected set-password output %q", out)
	}

	out = mustRun(t, "admin", "events", "--db", dbPath, "--type", "registered")
	if !strings.Contains(out, "bob") {
		t.Fatalf("unexpected events output %q", out)
	}

	if _, err := run(t, "admin", "sessions", "nobody", "--db", dbPath); err == nil {
		t.Fatal("expected error for unknown user")
	}

	mustRun(t, "admin", "cleanup", "--db", dbPath)
}

func TestUnknownFlagSuggestions(t *testing.T) {
	startTestServer(t)

	_, err := run(t, "todo", "add", "Buy milk", "--desc", "Two litres of milk")
	if err == nil || !strings.Contains(err.Error(), "--description, -d") {
		t.Fatalf("expected hint for --desc, got %v", err)
	}

	_, err = run(t, "todo", "list", "--serch", "milk")
	if err == nil || !strings.Contains(err.Error(), "did you mean --search") {
		t.Fatalf("expected suggestion for --serch, got %v", err)
	}
}

func TestCheckView(t *testing.T) {
	if err := checkView("pending"); err != nil {
		t.Fatalf("checkView(pending): %v", err)
	}
	if err := checkView(""); err != nil {
		t.Fatalf("checkView(\"\"): %v", err)
	}
	err := checkView("complted")
	if err == nil || !strings.Contains(err.Error(), `did you mean "completed"?`) {
		t.Fatalf("checkView(complted) = %v", err)
	}
}

func TestTodoAddDescriptionFromFile(t *testing.T) {
	startTestServer(t)
	registerAlice(t)

	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("Remember the **oat** milk\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	todo := addTodo(t, "Buy milk", "@"+path)
	if todo.Description != "Remember the **oat** milk" {
		t.Fatalf("description = %q", todo.Description)
	}
}
