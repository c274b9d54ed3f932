package treepush

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aweris/treepush/internal/push"
	"github.com/aweris/treepush/internal/repo"
	"github.com/aweris/treepush/internal/treehub"
)

// Result reports the outcome of a push session.
type Result struct {
	// Success is true iff the root commit is confirmed present.
	Success bool

	// RequestsMade counts real remote operations, existence checks and
	// uploads alike. Zero for a dry run.
	RequestsMade int

	// Cause is the first fatal condition on failure, nil on success.
	Cause error
}

// Push uploads the graph rooted at the given commit hash from the
// repository at repoPath to the remote store the credentials describe.
//
// Setup failures -- bad credentials, unreadable repository, root commit
// absent -- return an error before any scheduling begins. Once the
// session runs, its outcome is reported through Result: failures inside
// the session stop it and surface as Result.Cause.
func Push(ctx context.Context, repoPath, commitHash string, creds Credentials, opts ...Option) (*Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.Logger

	root, err := push.NewObjectID(commitHash, push.KindCommit)
	if err != nil {
		return nil, fmt.Errorf("treepush: commit id: %w", err)
	}

	server, err := treehub.Authenticate(creds, o.CACertBundle)
	if err != nil {
		return nil, err
	}

	source, err := repo.Open(repoPath)
	if err != nil {
		return nil, err
	}

	// The root must exist locally before any scheduling begins.
	if _, err := source.GetObject(ctx, root); err != nil {
		return nil, fmt.Errorf("treepush: commit %s not found in source repository: %w", commitHash, err)
	}

	driver := treehub.NewDriver(server, o.MaxRequests, o.Timeout)
	defer driver.Close()

	session := push.NewSession(source, driver, o.MaxRequests, o.RetryLimit, log)
	rootObj := session.Table().Get(root)
	session.AddQuery(rootObj)

	for !rootObj.Present() && !session.Stopped() {
		if err := ctx.Err(); err != nil {
			session.Stop(err)
			break
		}
		session.Step(ctx, o.DryRun)
	}

	result := &Result{
		Success:      rootObj.Present(),
		RequestsMade: session.Requests(),
		Cause:        session.Cause(),
	}

	switch {
	case result.Success && o.DryRun:
		log.Info("dry run, no objects uploaded")
	case result.Success:
		log.Info("upload complete",
			zap.Int("requests", result.RequestsMade),
			zap.Int("objects", session.Table().Len()))
	default:
		log.Error("one or more errors while pushing",
			zap.Int("requests", result.RequestsMade),
			zap.Error(result.Cause))
	}

	return result, nil
}

// PushRef points the remote's mutable root reference at a commit: a
// single fire-and-forget call outside the scheduler's concurrency
// model. Skipped entirely under WithDryRun.
func PushRef(ctx context.Context, creds Credentials, ref, commitHash string, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if _, err := push.NewObjectID(commitHash, push.KindCommit); err != nil {
		return fmt.Errorf("treepush: commit id: %w", err)
	}
	server, err := treehub.Authenticate(creds, o.CACertBundle)
	if err != nil {
		return err
	}
	if o.DryRun {
		return nil
	}
	if err := server.UpdateRef(ctx, ref, commitHash); err != nil {
		return fmt.Errorf("treepush: push ref %s: %w", ref, err)
	}
	return nil
}
