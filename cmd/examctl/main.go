// Command examctl is a terminal client for the exam portal API. It keeps one
// signed-in session in a local file between invocations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"

	"github.com/spf13/pflag"

	"github.com/target/exam-portal/config"
	"github.com/target/exam-portal/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	usage       string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	Err    io.Writer

	// SessionFile and APIBaseURL override the environment when set by flags.
	SessionFile string
	APIBaseURL  string
	// HTTPClient replaces the default API transport.
	HTTPClient *http.Client
}

func main() {
	logger := newLogger(os.Stderr, false)

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	if cfg.IsDev {
		logger = newLogger(os.Stderr, true)
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
		Err:    os.Stderr,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		if errors.Is(runErr, pflag.ErrHelp) {
			return
		}
		if !errors.Is(runErr, errSessionExpired) {
			if werr := writef(os.Stderr, "examctl %s: %v\n", cmdName, runErr); werr != nil {
				logger.Error("print command error failed", "error", werr)
			}
		}
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

// newLogger keeps stdout for command output; only warnings reach stderr unless verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func commands() map[string]command {
	list := []command{
		{name: "login", usage: "--role ROLE --email EMAIL --password PASSWORD", description: "Sign in and store the session", run: runLogin},
		{name: "logout", description: "Sign out and remove the stored session", run: runLogout},
		{name: "whoami", description: "Show the signed-in user and role", run: runWhoami},
		{name: "refresh", description: "Exchange the stored token for a fresh one", run: runRefresh},
		{name: "open", usage: "PATH", description: "Show where the dashboard would send this session for PATH", run: runOpen},

		{name: "exams", description: "List exams for the signed-in student or teacher", run: runExams},
		{name: "exam", usage: "ID", description: "Show one exam (student)", run: runExam},
		{name: "results", description: "List graded results (student)", run: runResults},
		{name: "start", usage: "ID", description: "Start an exam attempt (student)", run: runStart},
		{name: "submit", usage: "ID [--answer Q=A ...]", description: "Submit an exam attempt (student)", run: runSubmit},

		{name: "create-exam", usage: "--title --subject --date --time --duration", description: "Create an exam (teacher)", run: runCreateExam},
		{name: "delete-exam", usage: "ID", description: "Delete an exam (teacher)", run: runDeleteExam},
		{name: "submissions", usage: "EXAM_ID", description: "List submissions for an exam (teacher)", run: runSubmissions},
		{name: "grade", usage: "SUBMISSION_ID GRADE --score N", description: "Grade a submission (teacher)", run: runGrade},

		{name: "users", usage: "[--search TEXT] [--role ROLE]", description: "List directory accounts (admin)", run: runUsers},
		{name: "stats", description: "Show system statistics (admin)", run: runStats},
		{name: "report", usage: "TYPE [--filter EXPR]", description: "Generate a report (admin)", run: runReport},

		{name: "active-exams", description: "List exams in progress (proctor)", run: runActiveExams},
		{name: "students", usage: "EXAM_ID", description: "List students sitting an exam (proctor)", run: runStudents},
		{name: "logs", usage: "EXAM_ID", description: "Show activity logs for an exam (proctor)", run: runLogs},
		{name: "flag", usage: "EXAM_ID STUDENT_ID TYPE DESCRIPTION", description: "Flag suspicious activity (proctor)", run: runFlag},
		{name: "end", usage: "EXAM_ID", description: "End monitoring of an exam (proctor)", run: runEnd},

		{name: "migrate", usage: "[--timeout DURATION]", description: "Run database migrations for the postgres storage backend", run: runMigrations},
	}
	out := make(map[string]command, len(list))
	for _, c := range list {
		out[c.name] = c
	}
	return out
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: examctl <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-14s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return writef(w, "\nEvery command accepts --session-file and --api-url.\n")
}

// newFlagSet registers the flags shared by every command.
func newFlagSet(cmdCtx *commandContext, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(cmdCtx.Err)
	fs.StringVar(&cmdCtx.SessionFile, "session-file", cmdCtx.SessionFile, "Session file (default $XDG_CONFIG_HOME/examportal/session.json)")
	fs.StringVar(&cmdCtx.APIBaseURL, "api-url", cmdCtx.APIBaseURL, "API base URL (default $API_BASE_URL)")
	return fs
}

// parseArgs parses args and checks the positional count.
func parseArgs(fs *pflag.FlagSet, args []string, want int, usage string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) != want {
		return nil, fmt.Errorf("usage: examctl %s %s", fs.Name(), usage)
	}
	return rest, nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
