package vbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrToolNotFound    = errors.Base("VBoxManage not found")
	ErrMachineNotFound = errors.Base("machine is not registered")
	reMachineNotFound  = regexp.MustCompile(`Could not find a registered machine named '(.+)'`)
	reObjectNotFound   = regexp.MustCompile(`VBOX_E_OBJECT_NOT_FOUND`)
	reMachineLookup    = regexp.MustCompile(`(?i)registered machine|findMachine`)
)

// Runner runs one VBoxManage invocation and returns its standard output
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExternalToolError is returned when VBoxManage cannot be started or exits non-zero.
// Reason, when set, is ErrToolNotFound or ErrMachineNotFound.
type ExternalToolError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Reason   error
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("VBoxManage %s: exit code %d", strings.Join(e.Args, " "), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	if e.Reason != nil {
		msg += ": " + e.Reason.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExternalToolError) Unwrap() []error {
	var errs []error
	for _, err := range []error{e.Reason, e.Err} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ExecRunner runs VBoxManage as a subprocess. Command holds the program and any
// leading arguments, e.g. ["sudo", "-u", "vbox", "VBoxManage"].
type ExecRunner struct {
	Command []string
}

// NewExecRunner builds a runner from a command line. An empty command line falls back
// to the VBOXMANAGE environment variable and then to the default install location.
func NewExecRunner(commandLine string) (*ExecRunner, error) {
	if commandLine == "" {
		commandLine = os.Getenv("VBOXMANAGE")
	}
	if commandLine == "" {
		return &ExecRunner{Command: []string{DefaultToolPath()}}, nil
	}

	parser := shellwords.NewParser()
	parser.ParseEnv = true
	words, err := parser.Parse(commandLine)
	if err != nil {
		return nil, errors.Errorf("parsing VBoxManage command line %q: %w", commandLine, err)
	}
	if len(words) == 0 {
		return nil, errors.Errorf("empty VBoxManage command line %q", commandLine)
	}

	return &ExecRunner{Command: words}, nil
}

// DefaultToolPath returns the VBoxManage executable for this platform
func DefaultToolPath() string {
	if runtime.GOOS == "windows" {
		for _, env := range []string{"VBOX_MSI_INSTALL_PATH", "VBOX_INSTALL_PATH"} {
			if p := os.Getenv(env); p != "" {
				return filepath.Join(p, "VBoxManage.exe")
			}
		}
		return "VBoxManage.exe"
	}
	return "VBoxManage"
}

func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	logger := zerolog.Ctx(ctx)

	argv := append(append([]string{}, r.Command[1:]...), args...)
	cmd := exec.CommandContext(ctx, r.Command[0], argv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug().Str("tool", r.Command[0]).Strs("args", argv).Msg("Running VBoxManage")

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	toolErr := &ExternalToolError{
		Args:     args,
		ExitCode: -1,
		Stderr:   stderr.String(),
		Err:      err,
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		toolErr.Reason = ErrToolNotFound
	case errors.As(err, &exitErr):
		toolErr.ExitCode = exitErr.ExitCode()
		if machineMissing(toolErr.Stderr) {
			toolErr.Reason = ErrMachineNotFound
		}
	}

	logger.Debug().Err(err).Int("exit_code", toolErr.ExitCode).Str("stderr", toolErr.Stderr).Msg("VBoxManage failed")

	return stdout.String(), toolErr
}

// machineMissing reports whether stderr says the machine itself is unknown.
// VBOX_E_OBJECT_NOT_FOUND alone also covers missing media and host interfaces.
func machineMissing(stderr string) bool {
	if reMachineNotFound.MatchString(stderr) {
		return true
	}
	return reObjectNotFound.MatchString(stderr) && reMachineLookup.MatchString(stderr)
}
