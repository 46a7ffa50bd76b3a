package contract

import (
	"context"

	"github.com/huangsam/autopush/schema"
	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock implementation of GitClient for testing.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Exec implements the GitClient interface.
func (m *MockGitClient) Exec(ctx context.Context, repoPath string, args ...string) (schema.StepResult, error) {
	callArgs := []any{ctx, repoPath}
	for _, arg := range args {
		callArgs = append(callArgs, arg)
	}
	ret := m.Called(callArgs...)
	return ret.Get(0).(schema.StepResult), ret.Error(1)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	return ret.String(0), ret.Error(1)
}

// AddAll implements the GitClient interface.
func (m *MockGitClient) AddAll(ctx context.Context, repoPath string) (schema.StepResult, error) {
	ret := m.Called(ctx, repoPath)
	return ret.Get(0).(schema.StepResult), ret.Error(1)
}

// Commit implements the GitClient interface.
func (m *MockGitClient) Commit(ctx context.Context, repoPath string, message string) (schema.StepResult, error) {
	ret := m.Called(ctx, repoPath, message)
	return ret.Get(0).(schema.StepResult), ret.Error(1)
}

// Push implements the GitClient interface.
func (m *MockGitClient) Push(ctx context.Context, repoPath string, remote string, branch string) (schema.StepResult, error) {
	ret := m.Called(ctx, repoPath, remote, branch)
	return ret.Get(0).(schema.StepResult), ret.Error(1)
}
