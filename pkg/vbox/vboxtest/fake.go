// Package vboxtest provides a scripted VBoxManage runner for tests
package vboxtest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/walteh/vboxnet/pkg/vbox"
)

// Response is the canned result of one invocation
type Response struct {
	Stdout string
	Err    error
}

// Runner answers invocations from a table keyed by the space-joined arguments.
// Unknown invocations fail like VBoxManage does for an unregistered machine.
type Runner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     [][]string
}

var _ vbox.Runner = (*Runner)(nil)

func NewRunner() *Runner {
	return &Runner{responses: map[string]Response{}}
}

// On registers stdout for the given arguments
func (r *Runner) On(stdout string, args ...string) *Runner {
	r.responses[strings.Join(args, " ")] = Response{Stdout: stdout}
	return r
}

// OnFile registers the contents of a testdata file for the given arguments
func (r *Runner) OnFile(path string, args ...string) *Runner {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		panic(err)
	}
	return r.On(string(data), args...)
}

// Fail registers a non-zero exit for the given arguments
func (r *Runner) Fail(exitCode int, stderr string, args ...string) *Runner {
	r.responses[strings.Join(args, " ")] = Response{Err: &vbox.ExternalToolError{
		Args:     args,
		ExitCode: exitCode,
		Stderr:   stderr,
	}}
	return r
}

func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, args)

	resp, ok := r.responses[strings.Join(args, " ")]
	if !ok {
		return "", &vbox.ExternalToolError{
			Args:     args,
			ExitCode: 1,
			Stderr:   "VBoxManage: error: Could not find a registered machine named '" + strings.Join(args, " ") + "'",
			Reason:   vbox.ErrMachineNotFound,
		}
	}
	return resp.Stdout, resp.Err
}

// Calls returns the recorded invocations in order
func (r *Runner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}
