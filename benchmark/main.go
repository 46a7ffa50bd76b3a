// Package main provides a latency benchmark for the autopush CLI.
// It creates a throwaway repository with a local bare remote, then measures
// 'autopush sync' end to end, once without history and once with SQLite
// history, treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - autopush binary installed and available in PATH
// - git available in PATH
//
// Usage: go run benchmark/main.go [runs]
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// BenchmarkResult holds the result of one benchmark phase.
type BenchmarkResult struct {
	Phase    string
	Backend  string
	ColdTime string
	WarmTime string
	Failures int
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Runs    int
	Timeout time.Duration
	WorkDir string
}

func main() {
	runs := 5
	if len(os.Args) == 2 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n < 2 {
			fmt.Printf("Usage: %s [runs >= 2]\n", os.Args[0])
			os.Exit(1)
		}
		runs = n
	}

	if err := checkPrerequisites(); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	workDir, err := os.MkdirTemp("", "autopush-bench-*")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	config := BenchmarkConfig{Runs: runs, Timeout: time.Minute, WorkDir: workDir}
	repo, err := setupRepository(workDir)
	if err != nil {
		fmt.Printf("Failed to set up repository: %v\n", err)
		os.Exit(1)
	}

	results := []BenchmarkResult{
		runPhase(config, repo, "sync", "none"),
		runPhase(config, repo, "sync", "sqlite"),
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}
	printSummary(results)
}

// checkPrerequisites verifies that the autopush and git binaries exist.
func checkPrerequisites() error {
	for _, bin := range []string{"autopush", "git"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s binary not found in PATH", bin)
		}
	}
	return nil
}

// setupRepository creates a work tree whose upstream is a local bare repository.
func setupRepository(workDir string) (string, error) {
	remote := filepath.Join(workDir, "remote.git")
	repo := filepath.Join(workDir, "repo")

	steps := [][]string{
		{"init", "--bare", remote},
		{"init", repo},
		{"-C", repo, "config", "user.email", "bench@example.com"},
		{"-C", repo, "config", "user.name", "bench"},
		{"-C", repo, "config", "commit.gpgsign", "false"},
		{"-C", repo, "remote", "add", "origin", remote},
		{"-C", repo, "commit", "--allow-empty", "-m", "init"},
		{"-C", repo, "push", "-u", "origin", "HEAD"},
	}
	for _, args := range steps {
		if output, err := exec.Command("git", args...).CombinedOutput(); err != nil {
			return "", fmt.Errorf("git %v: %w\n%s", args, err, output)
		}
	}
	return repo, nil
}

// runPhase modifies a file and runs one sync per run with the given history backend.
func runPhase(config BenchmarkConfig, repo, command, backend string) BenchmarkResult {
	fmt.Printf("Running %s with %s history (%d runs)\n", command, backend, config.Runs)

	result := BenchmarkResult{Phase: command, Backend: backend, ColdTime: "FAILED", WarmTime: "FAILED"}
	var warm []float64
	cold := -1.0

	for i := range config.Runs {
		change := filepath.Join(repo, fmt.Sprintf("bench-%s-%d.txt", backend, i))
		if err := os.WriteFile(change, []byte(time.Now().String()), 0o644); err != nil {
			result.Failures++
			continue
		}

		cmd := exec.Command("autopush", command, repo, "--history-backend", backend,
			"--history-db-connect", historyConn(config, backend), "--color", "no")
		start := time.Now()
		done := make(chan error, 1)
		if err := cmd.Start(); err != nil {
			result.Failures++
			continue
		}
		go func() { done <- cmd.Wait() }()

		select {
		case err := <-done:
			elapsed := time.Since(start).Seconds()
			if err != nil {
				result.Failures++
				fmt.Printf("  run %d failed: %v\n", i+1, err)
				continue
			}
			if cold < 0 {
				cold = elapsed
			} else {
				warm = append(warm, elapsed)
			}
			fmt.Printf("  run %d: %.3fs\n", i+1, elapsed)
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
			result.Failures++
			fmt.Printf("  run %d timed out\n", i+1)
		}
	}

	if cold >= 0 {
		result.ColdTime = fmt.Sprintf("%.3fs", cold)
	}
	if len(warm) > 0 {
		var sum float64
		for _, t := range warm {
			sum += t
		}
		result.WarmTime = fmt.Sprintf("%.3fs", sum/float64(len(warm)))
	}
	return result
}

// historyConn keeps the SQLite file inside the work dir.
func historyConn(config BenchmarkConfig, backend string) string {
	if backend == "sqlite" {
		return filepath.Join(config.WorkDir, "history.db")
	}
	return ""
}

// saveResults writes benchmark results to a CSV file.
func saveResults(results []BenchmarkResult) error {
	filename := fmt.Sprintf("benchmark_results_%s.csv", time.Now().Format("20060102_150405"))
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Phase", "History Backend", "Cold Time", "Warm Average", "Failures"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := writer.Write([]string{r.Phase, r.Backend, r.ColdTime, r.WarmTime, strconv.Itoa(r.Failures)}); err != nil {
			return err
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary prints a formatted summary of all benchmark results.
func printSummary(results []BenchmarkResult) {
	fmt.Println()
	fmt.Printf("%-8s %-8s %-10s %-12s %s\n", "Phase", "History", "Cold", "Warm avg", "Failures")
	for _, r := range results {
		fmt.Printf("%-8s %-8s %-10s %-12s %d\n", r.Phase, r.Backend, r.ColdTime, r.WarmTime, r.Failures)
	}
}
