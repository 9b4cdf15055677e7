package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/volview-xnat/volviewd/internal/adapter/outbound/memory"
	"github.com/volview-xnat/volviewd/internal/adapter/outbound/state"
	"github.com/volview-xnat/volviewd/internal/config"
	"github.com/volview-xnat/volviewd/internal/domain/auth"
	"github.com/volview-xnat/volviewd/internal/domain/imaging"
)

// seedAuth replaces the content of the auth store with the identities and
// keys of the config file and state.json. State entries win on ID clashes,
// revoked state keys are skipped.
func seedAuth(cfg *config.AppConfig, appState *state.AppState, authStore *memory.AuthStore, logger *slog.Logger) {
	byID := make(map[string]*auth.Identity)
	var order []string
	add := func(id *auth.Identity) {
		if _, ok := byID[id.ID]; !ok {
			order = append(order, id.ID)
		}
		byID[id.ID] = id
	}

	for _, identityCfg := range cfg.Auth.Identities {
		add(&auth.Identity{
			ID:       identityCfg.ID,
			Name:     identityCfg.Name,
			Roles:    toRoles(identityCfg.Roles),
			Projects: identityCfg.Projects,
		})
	}
	for _, entry := range appState.Identities {
		add(&auth.Identity{
			ID:       entry.ID,
			Name:     entry.Name,
			Roles:    toRoles(entry.Roles),
			Projects: entry.Projects,
		})
	}

	identities := make([]*auth.Identity, 0, len(order))
	for _, id := range order {
		identities = append(identities, byID[id])
	}

	keys := make([]*auth.APIKey, 0, len(cfg.Auth.APIKeys)+len(appState.APIKeys))
	for _, keyCfg := range cfg.Auth.APIKeys {
		keys = append(keys, &auth.APIKey{
			Key:        keyCfg.KeyHash,
			IdentityID: keyCfg.IdentityID,
		})
	}
	for _, entry := range appState.APIKeys {
		if entry.Revoked {
			continue
		}
		keys = append(keys, &auth.APIKey{
			Key:        entry.KeyHash,
			IdentityID: entry.IdentityID,
			Name:       entry.Name,
			ExpiresAt:  entry.ExpiresAt,
		})
	}

	authStore.Replace(identities, keys)
	logger.Debug("seeded auth store",
		"identities", len(identities),
		"api_keys", len(keys),
	)
}

func toRoles(names []string) []auth.Role {
	roles := make([]auth.Role, 0, len(names))
	for _, name := range names {
		role := auth.Role(name)
		if role.IsValid() {
			roles = append(roles, role)
		}
	}
	return roles
}

// seedSessions writes the imaging sessions of state.json into the session
// store. With prune set, stored sessions missing from state.json are
// removed, which makes state.json the source of truth for the in-memory
// backend.
func seedSessions(ctx context.Context, appState *state.AppState, store imaging.SessionWriter, prune bool, logger *slog.Logger) error {
	wanted := make(map[string]bool, len(appState.ImagingSessions))
	for _, entry := range appState.ImagingSessions {
		session := &imaging.Session{
			ID:               entry.ID,
			ProjectID:        entry.ProjectID,
			Label:            entry.Label,
			StudyInstanceUID: entry.StudyInstanceUID,
			SharedProjects:   entry.SharedProjects,
		}
		if err := store.Put(ctx, session); err != nil {
			return fmt.Errorf("seed session %q: %w", entry.ID, err)
		}
		wanted[entry.ID] = true
	}

	removed := 0
	if prune {
		existing, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		for _, s := range existing {
			if wanted[s.ID] {
				continue
			}
			if err := store.Delete(ctx, s.ID); err != nil {
				return fmt.Errorf("remove session %q: %w", s.ID, err)
			}
			removed++
		}
	}

	logger.Debug("seeded imaging sessions", "sessions", len(wanted), "removed", removed)
	return nil
}
