package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/propfolio/ownergraph/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.PortfolioReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)

	if report.Result != nil {
		w.writeProperties(&sb, report.Result)
		w.writeOwners(&sb, "PEOPLE", report.Result.People)
		w.writeOwners(&sb, "ENTITIES", report.Result.Entities)
		w.writeAddresses(&sb, report.Result)
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with build information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.PortfolioReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      OWNERSHIP PORTFOLIO\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Seed Parcel:    %s\n", report.Seed))
	sb.WriteString(fmt.Sprintf("Build Date:     %s\n", report.DateBuilt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Crawl Depth:    %d\n", report.MaxDepth))

	if report.Result != nil {
		sb.WriteString(fmt.Sprintf("Graph:          %d nodes, %d edges, %d rounds\n",
			report.Result.Graph.NodeCount,
			report.Result.Graph.EdgeCount,
			report.Result.Graph.RoundsRun,
		))
	}

	switch {
	case report.TimedOut:
		sb.WriteString("Status:         TIMED OUT (partial results)\n")
	case report.ErrorMessage != "":
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n", report.ErrorMessage))
	default:
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeProperties writes the ranked property section.
func (w *SimpleWriter) writeProperties(sb *strings.Builder, result *model.PortfolioResult) {
	if len(result.Properties) == 0 && !w.showEmpty {
		return
	}

	w.writeSectionHeader(sb, fmt.Sprintf("PROPERTIES (%d)", len(result.Properties)))

	if len(result.Properties) == 0 {
		sb.WriteString("  No connected properties found\n\n")
		return
	}

	for _, p := range result.Properties {
		sb.WriteString(fmt.Sprintf("  * %s  %s\n", p.BBL, p.Borough))
		if p.Address != "" {
			sb.WriteString(fmt.Sprintf("    Address: %s", p.Address))
			if p.Zip != "" {
				sb.WriteString(" " + p.Zip)
			}
			sb.WriteString("\n")
		}
		if p.OwnerName != "" {
			sb.WriteString(fmt.Sprintf("    Owner of Record: %s\n", p.OwnerName))
		}
		if p.AssessedValue > 0 {
			sb.WriteString(fmt.Sprintf("    Assessed Value: $%.0f\n", p.AssessedValue))
		}
		if w.verbose {
			if p.Units > 0 {
				sb.WriteString(fmt.Sprintf("    Units: %d", p.Units))
				if p.YearBuilt > 0 {
					sb.WriteString(fmt.Sprintf("  Built: %d", p.YearBuilt))
				}
				sb.WriteString("\n")
			}
			if len(p.ConnectedVia) > 0 {
				sb.WriteString(fmt.Sprintf("    Connected Via: %s\n", strings.Join(p.ConnectedVia, ", ")))
			}
		}
	}
	sb.WriteString("\n")
}

// writeOwners writes a ranked owner section.
func (w *SimpleWriter) writeOwners(sb *strings.Builder, title string, owners []model.OwnerSummary) {
	if len(owners) == 0 && !w.showEmpty {
		return
	}

	w.writeSectionHeader(sb, fmt.Sprintf("%s (%d)", title, len(owners)))

	if len(owners) == 0 {
		sb.WriteString("  None found\n\n")
		return
	}

	for _, o := range owners {
		sb.WriteString(fmt.Sprintf("  * %s (%d properties)\n", o.Name, o.PropertyCount))
		if len(o.Roles) > 0 {
			sb.WriteString(fmt.Sprintf("    Roles: %s\n", strings.Join(o.Roles, ", ")))
		}
		if w.verbose && len(o.Addresses) > 0 {
			sb.WriteString(fmt.Sprintf("    Addresses: %s\n", strings.Join(o.Addresses, "; ")))
		}
	}
	sb.WriteString("\n")
}

// writeAddresses writes the shared-address section.
func (w *SimpleWriter) writeAddresses(sb *strings.Builder, result *model.PortfolioResult) {
	if len(result.CommonAddresses) == 0 && !w.showEmpty {
		return
	}

	w.writeSectionHeader(sb, "COMMON ADDRESSES")

	if len(result.CommonAddresses) == 0 {
		sb.WriteString("  No shared addresses found\n\n")
		return
	}

	for _, a := range result.CommonAddresses {
		sb.WriteString(fmt.Sprintf("  * %s (%d links)\n", a.Address, a.LinkCount))
	}
	sb.WriteString("\n")
}

// writeSectionHeader writes a dashed section header.
func (w *SimpleWriter) writeSectionHeader(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by ownergraph\n")
	sb.WriteString("https://github.com/propfolio/ownergraph\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
