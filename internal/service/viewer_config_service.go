package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
	"github.com/volview-xnat/volviewd/internal/domain/imaging"
	"github.com/volview-xnat/volviewd/internal/domain/origin"
	"github.com/volview-xnat/volviewd/internal/domain/urlpath"
	"github.com/volview-xnat/volviewd/internal/domain/viewer"
)

// ViewerConfigService errors. A missing session is reported with
// imaging.ErrSessionNotFound.
var (
	ErrUnauthenticated = errors.New("no authenticated user")
	ErrForbidden       = errors.New("session does not belong to project")
)

// launchQuery is appended to the viewer entry point; %s receives the encoded
// DICOMweb root.
const launchQuery = "?dicomweb=%s"

// DicomwebConfig groups the DICOMweb resource URLs of one project.
type DicomwebConfig struct {
	Root      string `json:"root"`
	Studies   string `json:"studies"`
	Series    string `json:"series"`
	Instances string `json:"instances"`
}

// ViewerLaunchConfig groups the URLs the browser needs to start the viewer.
type ViewerLaunchConfig struct {
	ShellURL          string `json:"shellUrl"`
	EntryPoint        string `json:"entryPoint"`
	LaunchURLTemplate string `json:"launchUrlTemplate"`
}

// ProjectConfig is the project-scoped viewer configuration.
type ProjectConfig struct {
	ProjectID  string             `json:"projectId"`
	ServerName string             `json:"serverName"`
	Dicomweb   DicomwebConfig     `json:"dicomweb"`
	Viewer     ViewerLaunchConfig `json:"viewer"`
}

// SessionConfig is the session-scoped viewer configuration. StudyInstanceUID
// and DicomwebStudyURL are nil when the session has no study UID.
type SessionConfig struct {
	ProjectID        string  `json:"projectId"`
	SessionID        string  `json:"sessionId"`
	Label            string  `json:"label"`
	StudyInstanceUID *string `json:"studyInstanceUID"`
	DicomwebStudyURL *string `json:"dicomwebStudyUrl"`
	ViewerEntryPoint string  `json:"viewerEntryPoint"`
}

// SettingsProvider supplies the current settings snapshot.
type SettingsProvider interface {
	Settings() viewer.Settings
}

// ViewerConfigService builds viewer configuration payloads from a resolved
// origin and the current settings.
type ViewerConfigService struct {
	settings SettingsProvider
	sessions imaging.SessionStore
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewViewerConfigService creates a new ViewerConfigService.
func NewViewerConfigService(settings SettingsProvider, sessions imaging.SessionStore, logger *slog.Logger) *ViewerConfigService {
	return &ViewerConfigService{
		settings: settings,
		sessions: sessions,
		logger:   logger,
		tracer:   otel.Tracer("github.com/volview-xnat/volviewd/internal/service"),
	}
}

// ProjectConfig builds the project configuration. It never fails.
func (s *ViewerConfigService) ProjectConfig(o origin.Origin, projectID string) ProjectConfig {
	settings := s.settings.Settings()
	baseURL := o.BaseURL()
	root := projectRoot(baseURL, settings, projectID)
	entryPoint := viewer.ResolveURL(settings.ViewerEntryPoint(), baseURL)

	cfg := ProjectConfig{
		ProjectID:  projectID,
		ServerName: settings.ServerName(),
		Dicomweb: DicomwebConfig{
			Root:      root,
			Studies:   urlpath.Join(root, "studies"),
			Series:    urlpath.JoinAll(root, "studies", "{studyInstanceUID}", "series"),
			Instances: urlpath.JoinAll(root, "studies", "{studyInstanceUID}", "series", "{seriesInstanceUID}", "instances"),
		},
		Viewer: ViewerLaunchConfig{
			ShellURL:          viewer.ResolveURL(settings.ShellPath(), baseURL),
			EntryPoint:        entryPoint,
			LaunchURLTemplate: entryPoint + launchQuery,
		},
	}

	s.logger.Debug("computed project config",
		"project_id", projectID,
		"base_url", baseURL,
		"dicomweb_root", cfg.Dicomweb.Root,
		"entry_point", cfg.Viewer.EntryPoint,
		"shell_url", cfg.Viewer.ShellURL,
	)
	return cfg
}

// SessionConfig builds the configuration for one imaging session after
// checking that user may open it under projectID.
func (s *ViewerConfigService) SessionConfig(ctx context.Context, user *auth.Identity, o origin.Origin, projectID, sessionID string) (*SessionConfig, error) {
	ctx, span := s.tracer.Start(ctx, "ViewerConfigService.SessionConfig",
		trace.WithAttributes(
			attribute.String("volview.project_id", projectID),
			attribute.String("volview.session_id", sessionID),
		))
	defer span.End()

	cfg, err := s.sessionConfig(ctx, user, o, projectID, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return cfg, nil
}

func (s *ViewerConfigService) sessionConfig(ctx context.Context, user *auth.Identity, o origin.Origin, projectID, sessionID string) (*SessionConfig, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	session, err := s.sessions.FindSession(ctx, sessionID, user)
	if err != nil {
		if errors.Is(err, imaging.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find session %q: %w", sessionID, err)
	}

	if !belongsTo(session, projectID) {
		return nil, fmt.Errorf("%w: session %s is in project %s", ErrForbidden, sessionID, session.ProjectID)
	}

	settings := s.settings.Settings()
	baseURL := o.BaseURL()
	root := projectRoot(baseURL, settings, projectID)

	cfg := &SessionConfig{
		ProjectID:        projectID,
		SessionID:        sessionID,
		Label:            session.Label,
		ViewerEntryPoint: viewer.ResolveURL(settings.ViewerEntryPoint(), baseURL),
	}
	if uid, ok := session.StudyUID(); ok {
		studyURL := urlpath.JoinAll(root, "studies", uid)
		cfg.StudyInstanceUID = &uid
		cfg.DicomwebStudyURL = &studyURL
	}

	s.logger.Debug("computed session config",
		"project_id", projectID,
		"session_id", sessionID,
		"study_uid", session.StudyInstanceUID,
		"entry_point", cfg.ViewerEntryPoint,
	)
	return cfg, nil
}

// belongsTo keeps the primary-project comparison and the share check as two
// independent conditions.
func belongsTo(session *imaging.Session, projectID string) bool {
	return strings.EqualFold(session.ProjectID, projectID) || session.HasProject(projectID)
}

func projectRoot(baseURL string, settings viewer.Settings, projectID string) string {
	return baseURL + settings.ProjectDicomwebPath(projectID)
}
