package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/propfolio/ownergraph/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.PortfolioReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)

	if report.Result != nil {
		w.writeProperties(md, report.Result)
		w.writeOwners(md, "People", report.Result.People)
		w.writeOwners(md, "Entities", report.Result.Entities)
		w.writeAddresses(md, report.Result)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with build information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.PortfolioReport) {
	md.H1("Ownership Portfolio")
	md.PlainText("")

	rows := [][]string{
		{"Seed Parcel", "`" + report.Seed + "`"},
		{"Build Date", report.DateBuilt.Format("2006-01-02 15:04:05 MST")},
		{"Crawl Depth", strconv.Itoa(report.MaxDepth)},
		{"Status", w.getStatusText(report)},
	}
	if report.Result != nil {
		rows = append(rows, []string{
			"Graph",
			fmt.Sprintf("%d nodes / %d edges / %d rounds",
				report.Result.Graph.NodeCount,
				report.Result.Graph.EdgeCount,
				report.Result.Graph.RoundsRun,
			),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.Result != nil {
		w.writeAlert(md, report.Result)
	}
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.PortfolioReport) string {
	if report.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeAlert writes an alert summarizing how connected the seed is.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.PortfolioResult) {
	switch {
	case len(result.Properties) > 10:
		md.Importantf(
			"Large portfolio: the seed parcel is connected to %d properties through %d owners.",
			len(result.Properties),
			len(result.People)+len(result.Entities),
		)
	case len(result.CommonAddresses) > 0:
		md.Notef(
			"%d shared business address(es) link the owners in this portfolio.",
			len(result.CommonAddresses),
		)
	case len(result.Properties) <= 1:
		md.Tip("No connected properties found beyond the seed parcel.")
	}
	md.PlainText("")
}

// writeProperties writes the ranked property section.
func (w *MarkdownWriter) writeProperties(md *markdown.Markdown, result *model.PortfolioResult) {
	md.H2("Properties")
	md.PlainText("")

	if len(result.Properties) == 0 {
		md.PlainText("No connected properties found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Properties))
	for i, p := range result.Properties {
		address := p.Address
		if address == "" {
			address = "-"
		}
		value := "-"
		if p.AssessedValue > 0 {
			value = fmt.Sprintf("$%.0f", p.AssessedValue)
		}
		units := "-"
		if p.Units > 0 {
			units = strconv.Itoa(p.Units)
		}
		via := "-"
		if len(p.ConnectedVia) > 0 {
			via = truncateString(strings.Join(p.ConnectedVia, ", "), 60)
		}

		rows[i] = []string{
			"`" + p.BBL + "`",
			p.Borough,
			truncateString(address, 40),
			units,
			value,
			via,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"BBL", "Borough", "Address", "Units", "Assessed Value", "Connected Via"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeBoroughChart(md, result)
}

// writeBoroughChart writes a mermaid pie chart of properties per borough.
func (w *MarkdownWriter) writeBoroughChart(md *markdown.Markdown, result *model.PortfolioResult) {
	counts := make(map[string]int)
	order := make([]string, 0, 5)
	for _, p := range result.Properties {
		if p.Borough == "" {
			continue
		}
		if counts[p.Borough] == 0 {
			order = append(order, p.Borough)
		}
		counts[p.Borough]++
	}
	if len(order) < 2 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Properties by Borough"),
		piechart.WithShowData(true),
	)
	for _, borough := range order {
		chart.LabelAndIntValue(borough, uint64(counts[borough]))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeOwners writes a ranked owner section.
func (w *MarkdownWriter) writeOwners(md *markdown.Markdown, title string, owners []model.OwnerSummary) {
	md.H2(title)
	md.PlainText("")

	if len(owners) == 0 {
		md.PlainText("None found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(owners))
	for i, o := range owners {
		roles := "-"
		if len(o.Roles) > 0 {
			roles = strings.Join(o.Roles, ", ")
		}
		addresses := "-"
		if len(o.Addresses) > 0 {
			addresses = truncateString(strings.Join(o.Addresses, "; "), 60)
		}
		rows[i] = []string{
			o.Name,
			strconv.Itoa(o.PropertyCount),
			roles,
			addresses,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Name", "Properties", "Roles", "Addresses"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAddresses writes the shared-address section.
func (w *MarkdownWriter) writeAddresses(md *markdown.Markdown, result *model.PortfolioResult) {
	md.H2("Common Addresses")
	md.PlainText("")

	if len(result.CommonAddresses) == 0 {
		md.PlainText("No shared business addresses found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.CommonAddresses))
	for i, a := range result.CommonAddresses {
		rows[i] = []string{a.Address, strconv.Itoa(a.LinkCount)}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Address", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [ownergraph](https://github.com/propfolio/ownergraph)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
