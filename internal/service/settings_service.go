package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/volview-xnat/volviewd/internal/adapter/outbound/state"
	"github.com/volview-xnat/volviewd/internal/domain/viewer"
)

// ErrUnknownSetting is returned when an update names a key that is not one
// of the VolView settings.
var ErrUnknownSetting = errors.New("unknown setting")

// SettingView is one setting as shown to administrators.
type SettingView struct {
	Key        string `json:"key"`
	Value      string `json:"value"`
	Overridden bool   `json:"overridden"`
}

// SettingsService owns the current viewer.Settings snapshot. Readers get
// the snapshot without locking; Reload and Update build a new one from
// state.json and swap it in.
type SettingsService struct {
	defaults   viewer.Defaults
	stateStore *state.FileStateStore
	logger     *slog.Logger
	current    atomic.Pointer[viewer.Settings]

	// mu orders load-then-swap in Reload against write-then-swap in Update,
	// so an older read never replaces a newer snapshot.
	mu sync.Mutex
}

// NewSettingsService creates a SettingsService. Until Reload is called the
// snapshot holds only the deployment defaults.
func NewSettingsService(defaults viewer.Defaults, stateStore *state.FileStateStore, logger *slog.Logger) *SettingsService {
	s := &SettingsService{
		defaults:   defaults,
		stateStore: stateStore,
		logger:     logger,
	}
	initial := viewer.NewSettings(defaults, nil)
	s.current.Store(&initial)
	return s
}

// Settings implements SettingsProvider.
func (s *SettingsService) Settings() viewer.Settings {
	return *s.current.Load()
}

// Reload rebuilds the snapshot from state.json. On error the previous
// snapshot stays in place.
func (s *SettingsService) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appState, err := s.stateStore.Load()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	s.apply(appState)
	s.logger.Info("volview settings loaded", "overrides", len(nonBlank(appState.SitePreferences)))
	return nil
}

// List returns every setting with its effective value.
func (s *SettingsService) List(_ context.Context) []SettingView {
	current := s.Settings()
	out := make([]SettingView, 0, len(viewer.Keys))
	for _, key := range viewer.Keys {
		v, _ := current.Value(key)
		out = append(out, SettingView{Key: key, Value: v, Overridden: current.Overridden(key)})
	}
	return out
}

// Update stores overrides in state.json and swaps the snapshot. A blank
// value removes the override for that key. Unknown keys reject the whole
// update.
func (s *SettingsService) Update(_ context.Context, overrides map[string]string) ([]SettingView, error) {
	for key := range overrides {
		if !viewer.IsKey(key) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSetting, key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var saved *state.AppState
	err := s.stateStore.Update(func(appState *state.AppState) error {
		for key, value := range overrides {
			if v := strings.TrimSpace(value); v != "" {
				appState.SitePreferences[key] = v
			} else {
				delete(appState.SitePreferences, key)
			}
		}
		saved = appState
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	s.apply(saved)
	s.logger.Info("volview settings updated", "keys", len(overrides))
	return s.List(context.Background()), nil
}

func (s *SettingsService) apply(appState *state.AppState) {
	next := viewer.NewSettings(s.defaults, appState)
	s.current.Store(&next)
}

func nonBlank(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}
