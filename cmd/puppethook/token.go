package main

import (
	"context"
	"errors"
	"fmt"

	"puppethook/internal/security"
	"puppethook/internal/store"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored access token",
	Long: `Manage the access token checked against the Access-Token header.

The stored token is only used when access_token is not set in the
configuration file.`,
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and store a new access token",
	Long:  `Generate a random access token, replacing any stored token, and print it.`,
	RunE:  runTokenGenerate,
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored access token",
	RunE:  runTokenShow,
}

func init() {
	tokenCmd.AddCommand(tokenGenerateCmd)
	tokenCmd.AddCommand(tokenShowCmd)
}

func runTokenGenerate(cmd *cobra.Command, args []string) error {
	db, err := openTokenStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	token, err := security.GenerateToken()
	if err != nil {
		return err
	}
	if err := db.ReplaceToken(context.Background(), token); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runTokenShow(cmd *cobra.Command, args []string) error {
	db, err := openTokenStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	token, err := db.Token(context.Background())
	if errors.Is(err, store.ErrNoToken) {
		return fmt.Errorf("no token stored, run 'puppethook token generate' first")
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func openTokenStore(cmd *cobra.Command) (*store.Store, error) {
	v, err := settings(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(v.GetString("db"))
}
