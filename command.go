package tap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Command holds the metadata for running an external executable.
type Command struct {
	Executable string
	Arguments  []string

	cmd      *exec.Cmd
	log      io.Writer
	okmsg    string
	errmsg   string
	quiet    bool
	allowerr bool
}

// Cmd builds a command for a specific executable.
// Relative executable paths are resolved against the current directory before any
// [WithDir] option changes the working directory of the command.
func Cmd(ctx context.Context, executable string, opts ...CommandOpt) (*Command, error) {
	resolved, err := resolveExecutable(executable)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, resolved)

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	c := Command{
		Executable: resolved,
		cmd:        cmd,
		log:        color.Output,
	}

	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return nil, err
		}
	}

	cmd.Args = append([]string{resolved}, c.Arguments...)

	return &c, nil
}

// Exec the command returning its error and pretty printing the ok and error messages.
func (c *Command) Exec() error {
	var err error

	start := time.Now()
	defer func() {
		if c.quiet {
			return
		}
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.New(color.FgRed).Fprintf(c.log, " ✘ %s\n\n", elapsed)
			return
		}
		color.New(color.FgGreen).Fprintf(c.log, " ✔ %s\n\n", elapsed)
	}()

	if !c.quiet {
		LogStep(c.log, fmt.Sprint(c.Executable, " ", strings.Join(c.Arguments, " ")))
	}

	err = c.cmd.Run()

	if !c.allowerr && err != nil {
		if !c.quiet && c.errmsg != "" {
			color.New(color.FgRed).Fprintln(c.log, c.errmsg)
		}
		err = fmt.Errorf("%s: %w", c.Executable, err)
		return err
	}
	err = nil

	if !c.quiet && c.okmsg != "" {
		color.New(color.FgGreen).Fprintln(c.log, c.okmsg)
	}

	return nil
}

// Run is a helper function to avoid repetition while gracefully handling errors.
func Run(ctx context.Context, program string, opts ...CommandOpt) error {
	c, err := Cmd(ctx, program, opts...)
	if err != nil {
		return err
	}

	return c.Exec()
}

func resolveExecutable(executable string) (string, error) {
	if filepath.IsAbs(executable) {
		return executable, nil
	}

	// bare names are looked up in PATH, anything with a separator is relative to the cwd
	if !strings.ContainsRune(executable, filepath.Separator) && !strings.ContainsRune(executable, '/') {
		found, err := exec.LookPath(executable)
		if err != nil {
			return "", fmt.Errorf("executable %s not found: %w", executable, err)
		}
		executable = found
	}

	abs, err := filepath.Abs(executable)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", executable, err)
	}

	return abs, nil
}

// CommandOpt allows customizing the behavior of the command.
type CommandOpt func(c *Command) error

// WithEnv sets up environment variables for the command.
func WithEnv(vars ...string) CommandOpt {
	return func(c *Command) error {
		c.cmd.Env = os.Environ()
		for _, vrb := range vars {
			items := strings.SplitN(vrb, "=", 2)
			if len(items) != 2 || items[0] == "" {
				return fmt.Errorf("invalid env format; %s doesn't match NAME=value expectation", vrb)
			}
			c.cmd.Env = append(c.cmd.Env, vrb)
		}
		return nil
	}
}

// WithArgs command arguments.
func WithArgs(args ...string) CommandOpt {
	return func(c *Command) error {
		c.Arguments = args
		return nil
	}
}

// WithOKMsg sets a message to be printed when the command finishes successfully.
func WithOKMsg(msg string) CommandOpt {
	return func(c *Command) error {
		c.okmsg = msg
		return nil
	}
}

// WithErrMsg sets a message to be printed when the command fails.
func WithErrMsg(msg string) CommandOpt {
	return func(c *Command) error {
		c.errmsg = msg
		return nil
	}
}

// WithDir sets the directory where the command should be run inside.
func WithDir(dir string) CommandOpt {
	return func(c *Command) error {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve dir %s: %w", dir, err)
		}
		c.cmd.Dir = abs
		return nil
	}
}

// WithoutNoise silences all output for the command; useful when handling that on the caller side.
func WithoutNoise() CommandOpt {
	return func(c *Command) error {
		c.quiet = true
		c.cmd.Stdout = nil
		c.cmd.Stderr = nil

		return nil
	}
}

// WithStdOut set up stdout writer.
func WithStdOut(w io.Writer) CommandOpt {
	return func(c *Command) error {
		c.cmd.Stdout = w
		return nil
	}
}

// WithStdErr set up stderr writer.
func WithStdErr(w io.Writer) CommandOpt {
	return func(c *Command) error {
		c.cmd.Stderr = w
		return nil
	}
}

// WithStdIn set up stdin reader.
func WithStdIn(read io.Reader) CommandOpt {
	return func(c *Command) error {
		c.cmd.Stdin = read
		return nil
	}
}

// WithLog redirects the status lines printed around the command.
func WithLog(w io.Writer) CommandOpt {
	return func(c *Command) error {
		c.log = w
		return nil
	}
}

// WithAllowErrors allow errors in the command.
func WithAllowErrors() CommandOpt {
	return func(c *Command) error {
		c.allowerr = true
		return nil
	}
}
