package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/graphkit/graph-cli/internal/config"
	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/resolve"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder

	var (
		respErr     *graph.ResponseError
		authErr     *graph.AuthError
		cfgErr      *graph.ConfigurationError
		shapeErr    *graph.ShapeError
		batchErr    *graph.BatchSizeError
		notFoundErr *resolve.NotFoundError
	)

	switch {
	case errors.Is(err, config.ErrNotConfigured):
		fmt.Fprintf(&msg, "Error: %s\n\n", err.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: graph profile save --app-id ID --app-secret SECRET\n")
		msg.WriteString("  - Or export GRAPH_APP_ID and GRAPH_APP_SECRET\n")

	case errors.As(err, &respErr):
		fmt.Fprintf(&msg, "Graph error (HTTP %d, code %d", respErr.HTTPStatus, respErr.Code)
		if respErr.SubCode != -1 {
			fmt.Fprintf(&msg, ", subcode %d", respErr.SubCode)
		}
		fmt.Fprintf(&msg, "): %s\n\n", respErr.Message)
		msg.WriteString(suggestionsForKind(respErr.Kind))

	case errors.As(err, &authErr):
		fmt.Fprintf(&msg, "Authentication failed: %s\n\n", authErr.Message)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Start over with: graph login url --redirect URL\n")
		msg.WriteString("  - Use a state store shared by both steps (--state-store)\n")

	case errors.As(err, &cfgErr):
		fmt.Fprintf(&msg, "Configuration error: %s\n\n", cfgErr.Message)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check --access-token, --api-version and the active profile\n")
		msg.WriteString("  - Run: graph profile show\n")

	case errors.As(err, &shapeErr):
		fmt.Fprintf(&msg, "Unexpected response shape: %s\n\n", shapeErr.Message)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Use --edge for list responses\n")
		msg.WriteString("  - Use --output json to inspect the raw body\n")

	case errors.As(err, &batchErr):
		fmt.Fprintf(&msg, "Error: %s\n\n", batchErr.Error())
		msg.WriteString("Suggestions:\n")
		fmt.Fprintf(&msg, "  - Split the manifest into batches of at most %d requests\n", graph.MaxBatchSize)

	case errors.As(err, &notFoundErr):
		fmt.Fprintf(&msg, "Error: %s\n", notFoundErr.Error())

	case strings.Contains(err.Error(), "connection refused"):
		msg.WriteString("Connection refused.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check GRAPH_BASE_URL if you set it\n")
		msg.WriteString("  - Check your network connection\n")

	case strings.Contains(err.Error(), "no such host"):
		msg.WriteString("DNS resolution failed.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Verify your DNS settings\n")
		msg.WriteString("  - Check your network connection\n")

	case strings.Contains(err.Error(), "certificate"):
		msg.WriteString("TLS certificate error.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the system certificate store\n")
		msg.WriteString("  - Check for an intercepting proxy\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForKind(kind graph.ErrorKind) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	switch kind {
	case graph.KindAuthentication:
		suggestions.WriteString("  - The access token may be invalid or expired\n")
		suggestions.WriteString("  - Run: graph token inspect <token>\n")

	case graph.KindAuthorization:
		suggestions.WriteString("  - The token lacks a permission for this call\n")
		suggestions.WriteString("  - Run: graph login url --rerequest --scope <permission>\n")

	case graph.KindThrottle:
		suggestions.WriteString("  - Too many calls for this app or user\n")
		suggestions.WriteString("  - Wait and retry, or combine calls with graph batch\n")

	case graph.KindServer:
		suggestions.WriteString("  - Graph reported a temporary failure\n")
		suggestions.WriteString("  - Wait and retry\n")

	case graph.KindResumableUpload:
		suggestions.WriteString("  - A chunk was rejected; retry with more --attempts\n")

	case graph.KindClient:
		suggestions.WriteString("  - Check the request parameters\n")
		suggestions.WriteString("  - Use --dry-run to see the request\n")

	default:
		suggestions.WriteString("  - Use --debug for more details\n")
		suggestions.WriteString("  - Use --dry-run to see the request\n")
	}

	return suggestions.String()
}
