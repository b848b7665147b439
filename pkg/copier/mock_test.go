package copier

import (
	"context"
	"fmt"

	"github.com/yuya-takeyama/strict-vault-sync/internal/execx"
)

// mockRunner is a mock implementation of execx.Runner for testing
type mockRunner struct {
	runFunc func(ctx context.Context, cmd execx.Command) (*execx.Result, error)
	calls   []execx.Command
}

func (m *mockRunner) Run(ctx context.Context, cmd execx.Command) (*execx.Result, error) {
	m.calls = append(m.calls, cmd)
	if m.runFunc != nil {
		return m.runFunc(ctx, cmd)
	}
	return nil, fmt.Errorf("Run not implemented")
}
