package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
)

var hashKeyArgon2id bool

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [api-key]",
	Short: "Generate a hash for an API key",
	Long: `Generate a hash of an API key for use in config or state.json.

The default output format is "sha256:<hex>", which can be used directly in
the auth.api_keys.key_hash field. With --argon2id the output is an Argon2id
PHC string instead; such keys are verified by scanning, so prefer them for a
small number of high-value keys.

Example:
  volviewd hash-key "my-secret-api-key"
  # Output: sha256:7d5e8c...

Security note: The key will appear in shell history.
Consider clearing history after use or using environment variable:
  volviewd hash-key "$MY_API_KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := hashAPIKey(args[0], hashKeyArgon2id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	hashKeyCmd.Flags().BoolVar(&hashKeyArgon2id, "argon2id", false, "emit an Argon2id PHC hash instead of sha256")
	rootCmd.AddCommand(hashKeyCmd)
}

func hashAPIKey(rawKey string, argon bool) (string, error) {
	if argon {
		h, err := auth.HashKeyArgon2id(rawKey)
		if err != nil {
			return "", fmt.Errorf("hash key: %w", err)
		}
		return h, nil
	}
	return "sha256:" + auth.HashKey(rawKey), nil
}
