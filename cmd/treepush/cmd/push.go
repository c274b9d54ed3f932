package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/treepush"
)

var pushCmd = &cobra.Command{
	Use:   "push <commit>",
	Short: "Push a commit graph to the remote store",
	Long: "Push the object graph rooted at <commit> (hex hash) from the source repository " +
		"to the remote store, skipping objects already present. Optionally update the " +
		"remote ref afterwards with --ref.",
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().String("repo", ".", "source repository path")
	pushCmd.Flags().String("ref", "", "remote ref to update on success")
	pushCmd.Flags().Int("jobs", treepush.DefaultMaxRequests, "maximum concurrent remote requests")

	viper.BindPFlag("repo", pushCmd.Flags().Lookup("repo"))
	viper.BindPFlag("jobs", pushCmd.Flags().Lookup("jobs"))
}

func runPush(cmd *cobra.Command, args []string) error {
	commit := args[0]

	jobs := viper.GetInt("jobs")
	if jobs < 1 {
		return fmt.Errorf("--jobs must be a positive integer, got %d", jobs)
	}
	credsPath := viper.GetString("credentials")
	if credsPath == "" {
		return errors.New("--credentials is required")
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	creds, err := treepush.LoadCredentials(credsPath)
	if err != nil {
		return err
	}

	opts := []treepush.Option{
		treepush.WithMaxRequests(jobs),
		treepush.WithCACertBundle(viper.GetString("cacert")),
		treepush.WithLogger(log),
	}
	dryRun := viper.GetBool("dry_run")
	if dryRun {
		opts = append(opts, treepush.WithDryRun())
	}

	result, err := treepush.Push(context.Background(), viper.GetString("repo"), commit, creds, opts...)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("push failed after %d requests: %w", result.RequestsMade, result.Cause)
	}

	if ref, _ := cmd.Flags().GetString("ref"); ref != "" {
		if err := treepush.PushRef(context.Background(), creds, ref, commit, opts...); err != nil {
			return err
		}
	}
	return nil
}
