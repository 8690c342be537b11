package outfmt

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

// Formatter handles output formatting for commands.
type Formatter struct {
	ctx       context.Context
	out       io.Writer
	errOut    io.Writer
	tabWriter *tabwriter.Writer
}

// NewFormatter creates a new Formatter
func NewFormatter(ctx context.Context, out, errOut io.Writer) *Formatter {
	return &Formatter{
		ctx:       ctx,
		out:       out,
		errOut:    errOut,
		tabWriter: tabwriter.NewWriter(out, 0, 4, 2, ' ', 0),
	}
}

// Output writes data as JSON when the context asks for it, honoring the
// query and template. It is a no-op in text mode.
func (f *Formatter) Output(data any) error {
	if !IsJSON(f.ctx) {
		return nil
	}
	query := GetQuery(f.ctx)
	if tmpl := GetTemplate(f.ctx); tmpl != "" {
		filtered, err := ApplyQuery(data, query)
		if err != nil {
			return err
		}
		return WriteTemplate(f.out, filtered, tmpl)
	}
	return WriteJSONFiltered(f.out, data, query, IsCompact(f.ctx))
}

// StartTable writes table headers. Returns true if in text mode.
func (f *Formatter) StartTable(headers ...string) bool {
	if IsJSON(f.ctx) {
		return false
	}
	f.Row(headers...)
	return true
}

// Row writes a single row to the table.
func (f *Formatter) Row(columns ...string) {
	for i, col := range columns {
		if i > 0 {
			_, _ = fmt.Fprint(f.tabWriter, "\t")
		}
		_, _ = fmt.Fprint(f.tabWriter, col)
	}
	_, _ = fmt.Fprintln(f.tabWriter)
}

// EndTable flushes the table output.
func (f *Formatter) EndTable() error {
	return f.tabWriter.Flush()
}

// Empty writes a message to stderr indicating no results.
func (f *Formatter) Empty(message string) {
	_, _ = fmt.Fprintln(f.errOut, message)
}
