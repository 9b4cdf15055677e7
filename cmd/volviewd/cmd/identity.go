package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/volview-xnat/volviewd/internal/adapter/outbound/state"
	"github.com/volview-xnat/volviewd/internal/service"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage identities in state.json",
	Long: `Add, list and remove the identities stored in state.json.

A running server with state.watch enabled picks the changes up without a
restart.

Examples:
  volviewd identity add alice --project P1 --project P2
  volviewd identity add ops --role admin
  volviewd identity list
  volviewd identity remove 3f0c...`,
}

var (
	identityAddID       string
	identityAddRoles    []string
	identityAddProjects []string
	identityProjects    []string
)

var identityAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newAdminServices()
		if err != nil {
			return err
		}
		entry, err := svc.CreateIdentity(cmd.Context(), service.CreateIdentityInput{
			ID:       identityAddID,
			Name:     args[0],
			Roles:    identityAddRoles,
			Projects: identityAddProjects,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), entry.ID)
		return nil
	},
}

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List identities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newAdminServices()
		if err != nil {
			return err
		}
		entries, err := svc.ListIdentities(cmd.Context())
		if err != nil {
			return err
		}
		printIdentities(cmd.OutOrStdout(), entries)
		return nil
	},
}

var identityRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an identity and its API keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newAdminServices()
		if err != nil {
			return err
		}
		removed, err := svc.DeleteIdentity(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed identity %s and %d key(s)\n", args[0], removed)
		return nil
	},
}

var identityProjectsCmd = &cobra.Command{
	Use:   "set-projects <id>",
	Short: "Replace the project memberships of an identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newAdminServices()
		if err != nil {
			return err
		}
		entry, err := svc.SetProjects(cmd.Context(), args[0], identityProjects)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", entry.ID, strings.Join(entry.Projects, ","))
		return nil
	},
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage API keys in state.json",
	Long: `Generate, list and revoke API keys stored in state.json.

The cleartext key is printed once by "key generate" and never stored.

Examples:
  volviewd key generate 3f0c... --name ci --ttl 720h
  volviewd key list
  volviewd key revoke 9a1b...`,
}

var (
	keyName     string
	keyTTL      time.Duration
	keyArgon2id bool
	keyListFor  string
)

var keyGenerateCmd = &cobra.Command{
	Use:   "generate <identity-id>",
	Short: "Generate an API key for an identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newAdminServices()
		if err != nil {
			return err
		}
		result, err := svc.GenerateKey(cmd.Context(), service.GenerateKeyInput{
			IdentityID: args[0],
			Name:       keyName,
			TTL:        keyTTL,
			Argon2id:   keyArgon2id,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "key id: %s\n", result.KeyEntry.ID)
		fmt.Fprintf(out, "api key: %s\n", result.CleartextKey)
		fmt.Fprintln(out, "Store the API key now; it cannot be shown again.")
		return nil
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newAdminServices()
		if err != nil {
			return err
		}
		keys, err := svc.ListKeys(cmd.Context(), keyListFor)
		if err != nil {
			return err
		}
		printKeys(cmd.OutOrStdout(), keys)
		return nil
	},
}

var keyRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newAdminServices()
		if err != nil {
			return err
		}
		if err := svc.RevokeKey(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revoked key %s\n", args[0])
		return nil
	},
}

func init() {
	identityAddCmd.Flags().StringVar(&identityAddID, "id", "", "identity ID (default: generated UUID)")
	identityAddCmd.Flags().StringSliceVar(&identityAddRoles, "role", nil, "role: admin or member (repeatable, default member)")
	identityAddCmd.Flags().StringSliceVar(&identityAddProjects, "project", nil, "project membership (repeatable)")
	identityProjectsCmd.Flags().StringSliceVar(&identityProjects, "project", nil, "project membership (repeatable)")
	identityCmd.AddCommand(identityAddCmd, identityListCmd, identityRemoveCmd, identityProjectsCmd)

	keyGenerateCmd.Flags().StringVar(&keyName, "name", "", "human-readable key label")
	keyGenerateCmd.Flags().DurationVar(&keyTTL, "ttl", 0, "key lifetime (default: never expires)")
	keyGenerateCmd.Flags().BoolVar(&keyArgon2id, "argon2id", false, "store an Argon2id hash instead of sha256")
	keyListCmd.Flags().StringVar(&keyListFor, "identity", "", "only list keys of this identity")
	keyCmd.AddCommand(keyGenerateCmd, keyListCmd, keyRevokeCmd)

	rootCmd.AddCommand(identityCmd, keyCmd)
}

// newAdminServices opens the state file the server would use.
func newAdminServices() (*service.IdentityService, *service.SessionRecordService, error) {
	cfg, err := loadServeConfig(false)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store := state.NewFileStateStore(resolveStatePath(cfg), logger)
	return service.NewIdentityService(store, logger), service.NewSessionRecordService(store, logger), nil
}

func printIdentities(w io.Writer, entries []state.IdentityEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no identities")
		return
	}
	fmt.Fprintf(w, "%-36s  %-20s  %-12s  %s\n", "ID", "NAME", "ROLES", "PROJECTS")
	for _, e := range entries {
		fmt.Fprintf(w, "%-36s  %-20s  %-12s  %s\n", e.ID, e.Name, strings.Join(e.Roles, ","), strings.Join(e.Projects, ","))
	}
}

func printKeys(w io.Writer, keys []state.APIKeyEntry) {
	if len(keys) == 0 {
		fmt.Fprintln(w, "no api keys")
		return
	}
	fmt.Fprintf(w, "%-36s  %-36s  %-12s  %-20s  %s\n", "ID", "IDENTITY", "NAME", "EXPIRES", "STATUS")
	for _, k := range keys {
		expires := "never"
		if k.ExpiresAt != nil {
			expires = k.ExpiresAt.Format(time.RFC3339)
		}
		status := "active"
		switch {
		case k.Revoked:
			status = "revoked"
		case k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt):
			status = "expired"
		}
		id := k.ID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "%-36s  %-36s  %-12s  %-20s  %s\n", id, k.IdentityID, k.Name, expires, status)
	}
}
