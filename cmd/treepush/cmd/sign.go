package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/treepush"
)

var signCmd = &cobra.Command{
	Use:   "sign <name> <commit>",
	Short: "Register a pushed commit with the offline-signing tool",
	Long:  "Run the external signing tool to add, sign and publish <commit> as target <name>.",
	Args:  cobra.ExactArgs(2),
	RunE:  runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().String("hardwareids", "", "comma-separated hardware ids for the target (required)")
	signCmd.MarkFlagRequired("hardwareids")
}

func runSign(cmd *cobra.Command, args []string) error {
	credsPath := viper.GetString("credentials")
	if credsPath == "" {
		return errors.New("--credentials is required")
	}
	hardwareIDs, _ := cmd.Flags().GetString("hardwareids")

	return treepush.SignOffline(context.Background(), credsPath, args[0], args[1], hardwareIDs)
}
