package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/wordscan/internal/database"
	"github.com/nao1215/wordscan/internal/model"
)

// maxWordWidth bounds the width of a word cell in markdown tables.
const maxWordWidth = 40

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, which gives us GitHub tables, alerts and mermaid charts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeAlert(md, report)
	w.writeWords(md, report)
	w.writeParameters(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteRuns outputs a table of stored crawl runs, newest first.
func (w *MarkdownWriter) WriteRuns(runs []database.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("wordscan History")
	md.PlainText("")

	if len(runs) == 0 {
		md.Note("No crawl runs stored yet.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		top := "-"
		if run.TopWord != "" {
			top = truncateString(run.TopWord, maxWordWidth) + " (" + strconv.Itoa(run.TopFrequency) + ")"
		}
		rows = append(rows, []string{
			"`" + run.ID + "`",
			run.StartedAt.Format("2006-01-02 15:04:05 MST"),
			run.Seed,
			strconv.Itoa(run.PagesCrawled),
			top,
			run.Status,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Seed", "Pages", "Top Word", "Status"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("wordscan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + report.Seed + "`"},
			{"Crawl Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(durationRounding).String()},
			{"Pages Crawled", strconv.Itoa(report.PagesCrawled)},
			{"Pages Skipped", strconv.Itoa(report.PagesSkipped)},
			{"URLs Visited", strconv.Itoa(report.URLsVisited)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.CrawlReport) string {
	if report.Failed() {
		return "❌ Error - " + report.Error
	}
	return "✅ Complete"
}

// writeAlert writes an alert for failed runs and runs without words.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case report.Failed():
		md.Cautionf("The crawl stopped early after %d page(s): %s", report.PagesCrawled, report.Error)
	case len(report.TopWords) == 0:
		md.Warningf("No words of at least %d characters were found.", report.MinWordLength)
	case report.PagesCrawled < report.Limit:
		md.Note("The site ran out of links before the page limit was reached.")
	default:
		return
	}
	md.PlainText("")
}

// writeWords writes the ranked word table and its pie chart.
func (w *MarkdownWriter) writeWords(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Top Words")
	md.PlainText("")

	if len(report.TopWords) == 0 {
		md.PlainText("No words found.")
		md.PlainText("")
		return
	}

	total := report.TotalOccurrences()
	rows := make([][]string, 0, len(report.TopWords))
	for i, word := range report.TopWords {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			truncateString(word.Word, maxWordWidth),
			strconv.Itoa(word.Frequency),
			strconv.FormatFloat(share(word.Frequency, total), 'f', 1, 64) + "%",
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Word", "Frequency", "Share"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, report)
}

// writePieChart writes a mermaid pie chart of the top words.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Top Word Distribution"),
		piechart.WithShowData(true),
	)
	for _, word := range report.TopWords {
		chart.LabelAndIntValue(word.Word, uint64(word.Frequency)) //nolint:gosec // frequencies are positive
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeParameters writes the crawl parameters in a collapsible section.
func (w *MarkdownWriter) writeParameters(md *markdown.Markdown, report *model.CrawlReport) {
	md.Details("Crawl parameters", markdown.NewMarkdown(io.Discard).
		BulletList(
			"Run ID: `"+report.ID+"`",
			"Page limit: "+strconv.Itoa(report.Limit),
			"Top words: "+strconv.Itoa(report.TopN),
			"Minimum word length: "+strconv.Itoa(report.MinWordLength),
		).String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [wordscan](https://github.com/nao1215/wordscan)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
