package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/volview-xnat/volviewd/internal/adapter/outbound/state"
	"github.com/volview-xnat/volviewd/internal/domain/imaging"
)

// SessionRecordService manages the imaging session records kept in
// state.json. The server seeds its session store from them.
type SessionRecordService struct {
	stateStore *state.FileStateStore
	logger     *slog.Logger
}

// NewSessionRecordService creates a new SessionRecordService.
func NewSessionRecordService(stateStore *state.FileStateStore, logger *slog.Logger) *SessionRecordService {
	return &SessionRecordService{stateStore: stateStore, logger: logger}
}

// Put inserts or replaces the record with the session's ID.
func (s *SessionRecordService) Put(_ context.Context, session *imaging.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("put session %q: %w", session.ID, err)
	}
	entry := state.ImagingSessionEntry{
		ID:               strings.TrimSpace(session.ID),
		ProjectID:        strings.TrimSpace(session.ProjectID),
		Label:            session.Label,
		StudyInstanceUID: strings.TrimSpace(session.StudyInstanceUID),
		SharedProjects:   normalizeProjects(session.SharedProjects),
	}

	replaced := false
	err := s.stateStore.Update(func(appState *state.AppState) error {
		for i := range appState.ImagingSessions {
			if appState.ImagingSessions[i].ID == entry.ID {
				appState.ImagingSessions[i] = entry
				replaced = true
				return nil
			}
		}
		appState.ImagingSessions = append(appState.ImagingSessions, entry)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("imaging session stored", "id", entry.ID, "project", entry.ProjectID, "replaced", replaced)
	return nil
}

// Delete removes the record with the given ID.
func (s *SessionRecordService) Delete(_ context.Context, sessionID string) error {
	err := s.stateStore.Update(func(appState *state.AppState) error {
		for i := range appState.ImagingSessions {
			if appState.ImagingSessions[i].ID == sessionID {
				appState.ImagingSessions = append(appState.ImagingSessions[:i], appState.ImagingSessions[i+1:]...)
				return nil
			}
		}
		return imaging.ErrSessionNotFound
	})
	if err != nil {
		return err
	}
	s.logger.Info("imaging session removed", "id", sessionID)
	return nil
}

// List returns all records ordered by ID.
func (s *SessionRecordService) List(_ context.Context) ([]state.ImagingSessionEntry, error) {
	appState, err := s.stateStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	out := make([]state.ImagingSessionEntry, len(appState.ImagingSessions))
	copy(out, appState.ImagingSessions)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
