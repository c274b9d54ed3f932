// Package treepush uploads a content-addressed commit graph to a remote
// object store over HTTP, skipping objects the remote already holds.
//
// The engine discovers the graph lazily: a parent's children are only
// known once its payload has been fetched and parsed. Existence checks
// deduplicate already-present objects, uploads are ordered so a parent
// is never sent before all of its children are confirmed present, and
// an adaptive window bounds network concurrency without the operator
// guessing a worker count.
//
// Basic usage:
//
//	creds, _ := treepush.LoadCredentials("credentials.json")
//
//	result, err := treepush.Push(ctx, "/srv/repo", commitHash, creds,
//		treepush.WithMaxRequests(30),
//	)
//	if err != nil {
//		// setup failure: bad credentials, root not in repository
//	}
//	if result.Success {
//		fmt.Println("pushed after", result.RequestsMade, "requests")
//	}
//
// After a successful push the mutable root reference can be updated:
//
//	err = treepush.PushRef(ctx, creds, "main", commitHash)
//
// Any single object's unrecoverable failure stops the whole push: a
// content-addressed graph with a missing link is not a usable partial
// result, so the engine reports the first fatal cause instead.
package treepush
