package contract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/huangsam/autopush/schema"
)

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct {
	// Binary is the git executable to run. Defaults to "git".
	Binary string
}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{Binary: "git"}
}

// Exec implements the GitClient interface.
func (c *LocalGitClient) Exec(ctx context.Context, repoPath string, args ...string) (schema.StepResult, error) {
	binary := c.Binary
	if binary == "" {
		binary = "git"
	}
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, binary, fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := schema.StepResult{
		Args:      args,
		StartTime: time.Now(),
	}
	err := cmd.Run()
	result.Duration = time.Since(result.StartTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	} else if err != nil {
		result.ExitCode = -1
		result.Err = fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
		return result, result.Err
	}
	return result, nil
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	result, err := c.Exec(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: %q: %s. Run 'git init' or pass a path inside a repository", schema.ErrRootNotRepo, contextPath, strings.TrimSpace(result.Stderr))
	}
	return strings.TrimSpace(result.Stdout), nil
}

// AddAll implements the GitClient interface.
func (c *LocalGitClient) AddAll(ctx context.Context, repoPath string) (schema.StepResult, error) {
	result, err := c.Exec(ctx, repoPath, "add", ".")
	result.Name = schema.AddStep
	return result, err
}

// Commit implements the GitClient interface.
func (c *LocalGitClient) Commit(ctx context.Context, repoPath string, message string) (schema.StepResult, error) {
	result, err := c.Exec(ctx, repoPath, "commit", "-m", message)
	result.Name = schema.CommitStep
	return result, err
}

// Push implements the GitClient interface.
// A branch is only passed along with a remote, matching git's own argument order.
func (c *LocalGitClient) Push(ctx context.Context, repoPath string, remote string, branch string) (schema.StepResult, error) {
	args := []string{"push"}
	if remote != "" {
		args = append(args, remote)
		if branch != "" {
			args = append(args, branch)
		}
	}
	result, err := c.Exec(ctx, repoPath, args...)
	result.Name = schema.PushStep
	return result, err
}
