package report

import (
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/wordscan/internal/model"
)

// barWidth is the width of the longest bar in the word chart.
const barWidth = 30

// durationRounding is the precision of durations shown in reports.
const durationRounding = time.Millisecond

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// printer formats numbers with the digit grouping of lang.
	printer *message.Printer

	// verbose adds the run ID and the skipped page count.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithLanguage sets the language used for number formatting.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeWords(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the crawl information block.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         WORDSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(w.printer.Sprintf("Seed:           %s\n", report.Seed))
	if w.verbose {
		sb.WriteString(w.printer.Sprintf("Run ID:         %s\n", report.ID))
	}
	sb.WriteString(w.printer.Sprintf("Crawl Date:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(w.printer.Sprintf("Duration:       %s\n", report.Duration().Round(durationRounding)))
	sb.WriteString(w.printer.Sprintf("Pages Crawled:  %d of %d allowed\n", report.PagesCrawled, report.Limit))
	if w.verbose {
		sb.WriteString(w.printer.Sprintf("Pages Skipped:  %d (not HTML)\n", report.PagesSkipped))
	}
	sb.WriteString(w.printer.Sprintf("URLs Visited:   %d\n", report.URLsVisited))

	if report.Failed() {
		sb.WriteString(w.printer.Sprintf("Status:         ERROR - %s\n", report.Error))
	} else {
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")
}

// writeWords writes the ranked words with a proportional bar.
func (w *SimpleWriter) writeWords(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(w.printer.Sprintf("TOP %d WORDS (min length %d)\n", report.TopN, report.MinWordLength))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.TopWords) == 0 {
		sb.WriteString("  No words found\n\n")
		return
	}

	longest := 0
	for _, word := range report.TopWords {
		longest = max(longest, len([]rune(word.Word)))
	}
	highest := report.TopWords[0].Frequency

	for i, word := range report.TopWords {
		bar := 0
		if highest > 0 {
			bar = max(1, word.Frequency*barWidth/highest)
		}
		padding := strings.Repeat(" ", longest-len([]rune(word.Word)))
		sb.WriteString(w.printer.Sprintf("  %2d. %s%s  %s %d\n",
			i+1, word.Word, padding, strings.Repeat("#", bar), word.Frequency))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by wordscan\n")
	sb.WriteString("https://github.com/nao1215/wordscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
