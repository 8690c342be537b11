// Package dryrun lets commands show the Graph request they would send
// instead of sending it.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"sort"
)

type contextKey struct{}

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, contextKey{}, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(contextKey{}).(bool); ok {
		return v
	}
	return false
}

// Preview describes a request that was prepared but not sent.
type Preview struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	// Body is the encoded request body; multipart bodies are summarized.
	Body     string   `json:"body,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Write outputs the preview to the writer
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\n[DRY-RUN] Would send %s %s\n", p.Method, p.URL)
	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")

	if len(p.Headers) > 0 {
		names := make([]string, 0, len(p.Headers))
		for name := range p.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", name, p.Headers[name])
		}
		_, _ = fmt.Fprintln(w)
	}

	if p.Body != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", p.Body)
	}

	if len(p.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "Warnings:")
		for _, warning := range p.Warnings {
			_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")
	_, _ = fmt.Fprintln(w, "Nothing sent (dry-run mode)")
}
