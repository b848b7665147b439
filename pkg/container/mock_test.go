package container

import (
	"context"
	"fmt"
	"io"

	"github.com/yuya-takeyama/strict-vault-sync/internal/execx"
)

type recordedCall struct {
	cmd   execx.Command
	stdin string
}

// mockRunner is a mock implementation of execx.Runner for testing
type mockRunner struct {
	err   error
	calls []recordedCall
}

func (m *mockRunner) Run(ctx context.Context, cmd execx.Command) (*execx.Result, error) {
	call := recordedCall{cmd: cmd}
	if cmd.Stdin != nil {
		b, err := io.ReadAll(cmd.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		call.stdin = string(b)
	}
	m.calls = append(m.calls, call)
	return &execx.Result{}, m.err
}
