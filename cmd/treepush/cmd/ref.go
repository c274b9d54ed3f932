package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/treepush"
)

var refCmd = &cobra.Command{
	Use:   "ref <name> <commit>",
	Short: "Point a remote ref at a commit",
	Long:  "Update the remote's mutable root reference without pushing any objects.",
	Args:  cobra.ExactArgs(2),
	RunE:  runRef,
}

func init() {
	rootCmd.AddCommand(refCmd)
}

func runRef(cmd *cobra.Command, args []string) error {
	credsPath := viper.GetString("credentials")
	if credsPath == "" {
		return errors.New("--credentials is required")
	}
	creds, err := treepush.LoadCredentials(credsPath)
	if err != nil {
		return err
	}

	opts := []treepush.Option{
		treepush.WithCACertBundle(viper.GetString("cacert")),
	}
	if viper.GetBool("dry_run") {
		opts = append(opts, treepush.WithDryRun())
	}

	return treepush.PushRef(context.Background(), creds, args[0], args[1], opts...)
}
