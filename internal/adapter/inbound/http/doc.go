// Package http provides the HTTP transport for volviewd.
//
// The transport serves the viewer configuration API, the per-project shell
// page and the site settings API under the configured context path, plus
// /health and /metrics at the root.
//
// # Usage
//
//	transport := http.NewHTTPTransport(configService, settingsService,
//	    http.WithAddr(":8080"),
//	    http.WithContextPath("/xnat"),
//	    http.WithAuthenticator(apiKeyService),
//	    http.WithResources(resources.FS()),
//	    http.WithLogger(logger),
//	)
//	err := transport.Start(ctx)
//
// # Endpoints
//
// Relative to the context path:
//
//	GET /xapi/volview/config/projects/{projectId}                       - project viewer config
//	GET /xapi/volview/config/projects/{projectId}/sessions/{sessionId}  - session viewer config
//	GET /xapi/volview/settings                                          - effective site settings
//	PUT /xapi/volview/settings                                          - store site overrides (admin)
//	GET /xapi/volview/audit                                             - recent access audit records (admin, when auditing)
//	GET /xapi/vol/test                                                  - connectivity test page
//	GET /xapi/volview/app/projects/{projectId}[/...]                    - shell page
//	GET /volview/app/projects/{projectId}[/...]                         - shell page
//	GET /app/volview/projects/{projectId}[/...]                         - shell page
//
// At the root:
//
//	GET /health   - component health as JSON
//	GET /metrics  - Prometheus metrics
//
// # Request Headers
//
//	Authorization: Bearer <api-key>   - resolves the current user
//	X-Request-ID: <id>                - echoed back, generated when absent
//	X-Forwarded-Proto/Host/Port/Prefix - external origin behind reverse proxies
//
// # Middleware Chain
//
// Requests pass through middleware in this order:
//
//  1. MetricsMiddleware - records duration and status
//  2. RequestIDMiddleware - extracts or generates the request ID and enriches the logger
//  3. TracingMiddleware - opens a server span (application routes only)
//  4. IdentityMiddleware - resolves the Bearer key to an identity (application routes only)
//  5. RateLimitMiddleware - per identity or client address, when configured (application routes only)
package http
