package treepush

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// signTool is the external offline-signing binary. Overridable in tests.
var signTool = "garage-sign"

const signRepoDir = "./tuf/treepush"

// SignOffline registers a pushed commit with the offline-signing tool:
// init, pull targets, add the commit as a target, sign, push. Each step
// is a synchronous external process; the first failure aborts. The
// local tuf directory is removed first so stale state from a different
// set of credentials never leaks in.
func SignOffline(ctx context.Context, credsPath, name, commitHash, hardwareIDs string) error {
	if err := os.RemoveAll(signRepoDir); err != nil {
		return fmt.Errorf("treepush: clean sign repo: %w", err)
	}

	steps := [][]string{
		{"init", "--repo", "treepush", "--credentials", credsPath},
		{"targets", "pull", "--repo", "treepush"},
		{"targets", "add", "--repo", "treepush",
			"--format", "OSTREE", "--length", "0", "--url", "https://example.com/",
			"--name", name, "--version", commitHash, "--sha256", commitHash,
			"--hardwareids", hardwareIDs},
		{"targets", "sign", "--key-name", "targets", "--repo", "treepush"},
		{"targets", "push", "--repo", "treepush"},
	}

	for _, args := range steps {
		cmd := exec.CommandContext(ctx, signTool, args...)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("treepush: %s %s: %w", signTool, args[0], err)
		}
	}

	return os.RemoveAll(signRepoDir)
}
