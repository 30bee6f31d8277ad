package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/wordscan/internal/config"
	"github.com/nao1215/wordscan/internal/database"
	"github.com/nao1215/wordscan/internal/model"
	"github.com/nao1215/wordscan/internal/report"
)

// NewHistoryCmd creates the history command.
// It reads the crawl runs that scan stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show stored crawl results",
		Long: `History lists the crawl runs stored by 'wordscan scan'.

Without arguments every run is listed, newest first. With a seed URL only
the runs of that seed are listed.

Examples:
  # List all runs
  wordscan history

  # List the runs of one seed
  wordscan history https://example.com

  # List all crawled seeds
  wordscan history --seeds

  # Print a stored report
  wordscan history --id 0b6c2c0e-5a8e-4a57-9d4b-8d0f6f1f2e3a

  # Follow the rank of a word across runs
  wordscan history --word gopher https://example.com

  # Compare the top words of the latest two runs
  wordscan history --compare https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("seeds", "S", false,
		"List all crawled seeds")
	cmd.Flags().StringP("id", "i", "",
		"Print the stored report of a run")
	cmd.Flags().StringP("word", "w", "",
		"Show the rank of a word in each run of the seed")
	cmd.Flags().Bool("compare", false,
		"Compare the top words of the latest two completed runs of the seed")

	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	seed     string
	seeds    bool
	id       string
	word     string
	compare  bool
	json     bool
	markdown bool
	dbDir    string
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryOptions(cmd, args)
	if err != nil {
		return err
	}

	// Validate before opening the database so a bad invocation leaves no file.
	if err := opts.validate(); err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, opts, cmd.OutOrStdout())
}

func parseHistoryOptions(cmd *cobra.Command, args []string) (*historyOptions, error) {
	opts := &historyOptions{}
	if len(args) == 1 {
		opts.seed = args[0]
	}

	var err error
	if opts.seeds, err = cmd.Flags().GetBool("seeds"); err != nil {
		return nil, err
	}
	if opts.id, err = cmd.Flags().GetString("id"); err != nil {
		return nil, err
	}
	if opts.word, err = cmd.Flags().GetString("word"); err != nil {
		return nil, err
	}
	if opts.compare, err = cmd.Flags().GetBool("compare"); err != nil {
		return nil, err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *historyOptions) validate() error {
	if o.json && o.markdown {
		return config.ErrConflictingReportFormats
	}
	if (o.word != "" || o.compare) && o.seed == "" {
		return errors.New("a seed URL is required with --word and --compare")
	}

	modes := 0
	for _, set := range []bool{o.seeds, o.id != "", o.word != "", o.compare} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return errors.New("--seeds, --id, --word and --compare cannot be combined")
	}
	return nil
}

// runHistory prints the part of the history selected by opts to w.
func runHistory(ctx context.Context, db *database.CrawlDB, opts *historyOptions, w io.Writer) error {
	switch {
	case opts.seeds:
		return listSeeds(ctx, db, opts, w)
	case opts.id != "":
		return showRun(ctx, db, opts, w)
	case opts.word != "":
		return showWordHistory(ctx, db, opts, w)
	case opts.compare:
		return compareLatestRuns(ctx, db, opts, w)
	default:
		return listRuns(ctx, db, opts, w)
	}
}

// listSeeds prints every seed with stored runs.
func listSeeds(ctx context.Context, db *database.CrawlDB, opts *historyOptions, w io.Writer) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list seeds: %w", err)
	}

	if opts.json {
		return writeJSON(w, seeds)
	}

	if len(seeds) == 0 {
		fmt.Fprintln(w, "No crawled seeds found in the database.")
		fmt.Fprintln(w, "\nUse 'wordscan scan <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(w, "Crawled seeds (%d):\n\n", len(seeds))
	for _, seed := range seeds {
		fmt.Fprintf(w, "  • %s\n", seed)
	}
	fmt.Fprintln(w, "\nUse 'wordscan history <url>' to see the runs of a seed.")
	return nil
}

// listRuns prints the stored runs, optionally of one seed.
func listRuns(ctx context.Context, db *database.CrawlDB, opts *historyOptions, w io.Writer) error {
	runs, err := db.ListRuns(ctx, opts.seed)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	switch {
	case opts.json:
		if runs == nil {
			runs = []database.RunSummary{}
		}
		return writeJSON(w, runs)
	case opts.markdown:
		_, err := report.NewMarkdownWriter(w).WriteRuns(runs)
		return err
	}

	if len(runs) == 0 {
		if opts.seed != "" {
			fmt.Fprintf(w, "No runs found for %s\n", opts.seed)
		} else {
			fmt.Fprintln(w, "No runs found in the database.")
		}
		fmt.Fprintln(w, "\nUse 'wordscan scan <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(w, "Crawl history (%d runs):\n\n", len(runs))
	fmt.Fprintf(w, "  %-36s  %-19s  %-5s  %-20s  %s\n", "ID", "Date", "Pages", "Top Word", "Seed")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 100))

	for _, run := range runs {
		fmt.Fprintf(w, "  %-36s  %-19s  %5d  %-20s  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.PagesCrawled,
			formatTopWord(run),
			run.Seed,
		)
	}

	fmt.Fprintln(w, "\nUse 'wordscan history --id <id>' to print a stored report.")
	return nil
}

// formatTopWord formats the rank 1 word of a run for the history table.
func formatTopWord(run database.RunSummary) string {
	if run.Status == model.StatusFailed {
		return "(failed)"
	}
	if run.TopWord == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%d)", run.TopWord, run.TopFrequency)
}

// showRun prints one stored report.
func showRun(ctx context.Context, db *database.CrawlDB, opts *historyOptions, w io.Writer) error {
	stored, err := db.GetReport(ctx, opts.id)
	if err != nil {
		return fmt.Errorf("failed to get run %s: %w", opts.id, err)
	}
	if stored == nil {
		return fmt.Errorf("run %s not found", opts.id)
	}

	var writer report.Writer
	switch {
	case opts.json:
		writer = report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case opts.markdown:
		writer = report.NewMarkdownWriter(w)
	default:
		writer = report.NewSimpleWriter(w, report.WithVerbose(true))
	}
	_, err = writer.Write(stored)
	return err
}

// showWordHistory prints the rank of a word in each run of a seed.
func showWordHistory(ctx context.Context, db *database.CrawlDB, opts *historyOptions, w io.Writer) error {
	points, err := db.WordHistory(ctx, opts.seed, opts.word)
	if err != nil {
		return fmt.Errorf("failed to get word history: %w", err)
	}

	if opts.json {
		if points == nil {
			points = []database.WordPoint{}
		}
		return writeJSON(w, points)
	}

	if len(points) == 0 {
		fmt.Fprintf(w, "%q was not among the top words of any run of %s\n", opts.word, opts.seed)
		return nil
	}

	fmt.Fprintf(w, "Rank of %q for %s (%d runs):\n\n", opts.word, opts.seed, len(points))
	fmt.Fprintf(w, "  %-19s  %-4s  %s\n", "Date", "Rank", "Frequency")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 40))
	for _, p := range points {
		fmt.Fprintf(w, "  %-19s  %4d  %d\n",
			p.StartedAt.Local().Format("2006-01-02 15:04:05"), p.Rank, p.Frequency)
	}
	return nil
}

// RunRef identifies a run in a comparison.
type RunRef struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// WordChange is a word that ranked in both runs.
type WordChange struct {
	Word              string `json:"word"`
	PreviousRank      int    `json:"previous_rank"`
	CurrentRank       int    `json:"current_rank"`
	PreviousFrequency int    `json:"previous_frequency"`
	CurrentFrequency  int    `json:"current_frequency"`
}

// ComparisonResult holds the differences between the top words of two runs.
type ComparisonResult struct {
	Seed     string `json:"seed"`
	Previous RunRef `json:"previous"`
	Current  RunRef `json:"current"`

	// NewWords ranked in the current run only.
	NewWords []model.WordFrequency `json:"new_words"`

	// DroppedWords ranked in the previous run only.
	DroppedWords []model.WordFrequency `json:"dropped_words"`

	// Changed holds the words of both runs, in current rank order.
	Changed []WordChange `json:"changed"`
}

// compareLatestRuns compares the latest two completed runs of a seed.
func compareLatestRuns(ctx context.Context, db *database.CrawlDB, opts *historyOptions, w io.Writer) error {
	runs, err := db.ListRuns(ctx, opts.seed)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	var completed []*model.CrawlReport
	for _, run := range runs {
		if run.Status != model.StatusCompleted {
			continue
		}
		stored, err := db.GetReport(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to get run %s: %w", run.ID, err)
		}
		if stored != nil {
			completed = append(completed, stored)
		}
		if len(completed) == 2 {
			break
		}
	}

	if len(completed) < 2 {
		return fmt.Errorf("at least 2 completed runs are required for comparison (found %d)", len(completed))
	}

	result := compareTopWords(completed[1], completed[0])
	if opts.json {
		return writeJSON(w, result)
	}
	writeComparisonText(w, result)
	return nil
}

// compareTopWords compares the top words of two runs of the same seed.
func compareTopWords(previous, current *model.CrawlReport) *ComparisonResult {
	result := &ComparisonResult{
		Seed:         current.Seed,
		Previous:     RunRef{ID: previous.ID, StartedAt: previous.StartedAt},
		Current:      RunRef{ID: current.ID, StartedAt: current.StartedAt},
		NewWords:     []model.WordFrequency{},
		DroppedWords: []model.WordFrequency{},
		Changed:      []WordChange{},
	}

	previousRank := make(map[string]int, len(previous.TopWords))
	for i, wf := range previous.TopWords {
		previousRank[wf.Word] = i + 1
	}
	currentWords := make(map[string]bool, len(current.TopWords))

	for i, wf := range current.TopWords {
		currentWords[wf.Word] = true
		rank, ok := previousRank[wf.Word]
		if !ok {
			result.NewWords = append(result.NewWords, wf)
			continue
		}
		result.Changed = append(result.Changed, WordChange{
			Word:              wf.Word,
			PreviousRank:      rank,
			CurrentRank:       i + 1,
			PreviousFrequency: previous.TopWords[rank-1].Frequency,
			CurrentFrequency:  wf.Frequency,
		})
	}

	for _, wf := range previous.TopWords {
		if !currentWords[wf.Word] {
			result.DroppedWords = append(result.DroppedWords, wf)
		}
	}
	return result
}

// writeComparisonText prints a comparison for the terminal.
func writeComparisonText(w io.Writer, result *ComparisonResult) {
	fmt.Fprintf(w, "Top words of %s\n", result.Seed)
	fmt.Fprintf(w, "  previous: %s  (%s)\n", result.Previous.StartedAt.Local().Format("2006-01-02 15:04:05"), result.Previous.ID)
	fmt.Fprintf(w, "  current:  %s  (%s)\n\n", result.Current.StartedAt.Local().Format("2006-01-02 15:04:05"), result.Current.ID)

	if len(result.NewWords) == 0 && len(result.DroppedWords) == 0 && !rankChanged(result.Changed) {
		fmt.Fprintln(w, "No change in the top words.")
	}

	for _, wf := range result.NewWords {
		fmt.Fprintf(w, "  + %-20s %d\n", wf.Word, wf.Frequency)
	}
	for _, wf := range result.DroppedWords {
		fmt.Fprintf(w, "  - %-20s %d\n", wf.Word, wf.Frequency)
	}
	for _, c := range result.Changed {
		marker := "="
		switch {
		case c.CurrentRank < c.PreviousRank:
			marker = "↑"
		case c.CurrentRank > c.PreviousRank:
			marker = "↓"
		}
		fmt.Fprintf(w, "  %s %-20s #%d → #%d  (%d → %d)\n",
			marker, c.Word, c.PreviousRank, c.CurrentRank, c.PreviousFrequency, c.CurrentFrequency)
	}
}

func rankChanged(changes []WordChange) bool {
	for _, c := range changes {
		if c.PreviousRank != c.CurrentRank {
			return true
		}
	}
	return false
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
