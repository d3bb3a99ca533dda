package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

type headerContextKey struct{}

// WithRequestHeaders stores the HTTP request headers in the tool-call
// context. Wired into the SSE and streamable-HTTP transports as their
// context function; the stdio transport never calls it, which is how the
// middleware knows it is on a headerless channel.
func WithRequestHeaders(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, headerContextKey{}, r.Header.Clone())
}

func requestHeaders(ctx context.Context) (http.Header, bool) {
	headers, ok := ctx.Value(headerContextKey{}).(http.Header)
	return headers, ok
}

// Authenticator checks tool calls against the configured API key before
// they reach a handler. All failures are returned as structured error
// results with code 401, never as protocol faults.
type Authenticator struct {
	apiKey     string
	trustLocal bool
	log        zerolog.Logger
}

// NewAuthenticator creates an authenticator for the given shared secret.
// trustLocal controls the headerless channel: when true, calls arriving
// without HTTP headers (stdio) skip the check entirely.
func NewAuthenticator(apiKey string, trustLocal bool, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		apiKey:     apiKey,
		trustLocal: trustLocal,
		log:        log.With().Str("component", "auth").Logger(),
	}
}

// Middleware wraps a tool handler with the authentication check.
func (a *Authenticator) Middleware(next mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		headers, ok := requestHeaders(ctx)
		if !ok {
			// Headerless channel. Passing here is an explicit configuration
			// decision, not a swallowed failure.
			if a.trustLocal {
				return next(ctx, req)
			}
			a.log.Warn().Str("tool", req.Params.Name).Msg("Rejected headerless call: local channel not trusted")
			return errorResult(http.StatusUnauthorized, "Missing authentication. Provide X-API-Key header."), nil
		}

		// X-API-Key wins when both headers are present
		if apiKey := headers.Get("X-API-Key"); apiKey != "" {
			if apiKey != a.apiKey {
				a.log.Warn().Str("tool", req.Params.Name).Msg("Rejected call: invalid API key")
				return errorResult(http.StatusUnauthorized, "Invalid API Key"), nil
			}
			return next(ctx, req)
		}

		if auth := headers.Get("Authorization"); auth != "" {
			token, isBearer := strings.CutPrefix(auth, "Bearer ")
			if !isBearer {
				a.log.Warn().Str("tool", req.Params.Name).Msg("Rejected call: malformed Authorization header")
				return errorResult(http.StatusUnauthorized, "Invalid Authorization format"), nil
			}
			if token != a.apiKey {
				a.log.Warn().Str("tool", req.Params.Name).Msg("Rejected call: invalid bearer token")
				return errorResult(http.StatusUnauthorized, "Invalid Bearer Token"), nil
			}
			return next(ctx, req)
		}

		a.log.Warn().Str("tool", req.Params.Name).Msg("Rejected call: no credentials supplied")
		return errorResult(http.StatusUnauthorized, "Missing authentication. Provide X-API-Key header."), nil
	}
}
