// Package ui renders search results, settings and batch summaries for the
// terminal.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/letmevibethatforyou/kwsearch"
	"github.com/letmevibethatforyou/kwsearch/google"
	"github.com/letmevibethatforyou/kwsearch/internal/config"
	"github.com/letmevibethatforyou/kwsearch/internal/worker"
)

// snippetWidth is the rune budget for snippets in result listings.
const snippetWidth = 120

// RenderResults lists the records of one keyword.
func RenderResults(keyword string, results []kwsearch.Result) string {
	var b strings.Builder
	b.WriteString(KeywordStyle.Render(keyword))
	b.WriteString(DimStyle.Render(fmt.Sprintf(" (%d)", len(results))))
	b.WriteString("\n")

	if len(results) == 0 {
		b.WriteString(ArrowStyle.String() + DimStyle.Render("no results") + "\n")
		return b.String()
	}
	for _, r := range results {
		b.WriteString(ArrowStyle.String())
		b.WriteString(RankStyle.Render(fmt.Sprintf("%2d.", r.Rank)))
		b.WriteString(" ")
		b.WriteString(TitleStyle.Render(r.Title))
		b.WriteString("\n")
		b.WriteString(ArrowStyle.String() + "    " + LinkStyle.Render(r.URL) + "\n")
		if s := r.ShortSnippet(snippetWidth); s != "" {
			b.WriteString(ArrowStyle.String() + "    " + DimStyle.Render(s) + "\n")
		}
	}
	return b.String()
}

// RenderSettings shows the effective configuration with secrets masked.
func RenderSettings(path string, cfg config.Config) string {
	rows := [][2]string{
		{"config file", path},
		{"search.num", fmt.Sprintf("%d", cfg.Search.Num)},
		{"search.provider", cfg.Search.Provider},
		{"search.delay", fmt.Sprintf("%.1fs", cfg.Search.Delay)},
		{"search.timeout", fmt.Sprintf("%ds", cfg.Search.Timeout)},
		{"search.retry_count", fmt.Sprintf("%d", cfg.Search.RetryCount)},
		{"search.retry_delay", fmt.Sprintf("%.1fs", cfg.Search.RetryDelay)},
		{"search.lr / gl / hl", strings.Join([]string{orDash(cfg.Search.LR), orDash(cfg.Search.GL), orDash(cfg.Search.HL)}, " / ")},
		{"search.safe", orDash(cfg.Search.Safe)},
		{"search.dateRestrict", orDash(cfg.Search.DateRestrict)},
		{"google_api.api_key", Mask(cfg.GoogleAPI.APIKey, google.PlaceholderAPIKey)},
		{"google_api.cx", Mask(cfg.GoogleAPI.CustomSearchEngineID, google.PlaceholderSearchEngineID)},
		{"google_api.secret_arn", orDash(cfg.GoogleAPI.SecretARN)},
		{"output.directory", cfg.Output.Directory},
		{"output.format", cfg.Output.Format},
		{"output.dynamodb_table", orDash(cfg.Output.DynamoDBTable)},
		{"output.algolia_index", orDash(cfg.Output.AlgoliaIndex)},
		{"logging.level", cfg.Logging.Level},
		{"logging.file_path", cfg.Logging.FilePath},
		{"metrics.pushgateway_url", orDash(cfg.Metrics.PushgatewayURL)},
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, LabelStyle.Render(row[0])+row[1])
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		HeaderStyle.Render("kwsearch settings"),
		BoxStyle.Render(strings.Join(lines, "\n")),
	)
}

// Mask hides all but the first four characters of a credential.
func Mask(secret, placeholder string) string {
	if secret == "" || secret == placeholder {
		return WarningStyle.Render("(not set)")
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", 8)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RenderReport summarises a finished batch and where it was exported.
func RenderReport(report *worker.Report, exported []string) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Batch summary") + "\n")

	line := func(label, value string) {
		b.WriteString(LabelStyle.Render(label) + value + "\n")
	}
	line("run", report.RunID)
	line("keywords", fmt.Sprintf("%d/%d processed", report.Processed, report.Keywords))
	line("successful", SuccessStyle.Render(fmt.Sprintf("%d", report.Succeeded())))
	if n := len(report.Failed); n > 0 {
		line("failed", ErrorStyle.Render(fmt.Sprintf("%d", n)))
	} else {
		line("failed", "0")
	}
	line("success rate", fmt.Sprintf("%.1f%%", report.SuccessRate()))
	line("results", fmt.Sprintf("%d", len(report.Results)))
	line("duration", report.Duration().Round(time.Millisecond).String())
	if report.Interrupted {
		line("status", WarningStyle.Render("stopped"))
	}

	for _, f := range report.Failed {
		b.WriteString(ArrowStyle.String() + ErrorStyle.Render(f.Keyword) + DimStyle.Render(": "+f.Err.Error()) + "\n")
	}
	for _, e := range exported {
		b.WriteString(SuccessStyle.Render("saved ") + e + "\n")
	}
	return b.String()
}

// RenderError formats an error line.
func RenderError(err error) string {
	return ErrorStyle.Render("error: ") + err.Error()
}

// RenderSuccess formats a success line.
func RenderSuccess(msg string) string {
	return SuccessStyle.Render("ok: ") + msg
}

// ProgressPrinter is a worker.Observer that writes progress to w.
type ProgressPrinter struct {
	w       io.Writer
	verbose bool
}

// NewProgressPrinter returns a printer. In verbose mode every record is
// listed as it arrives.
func NewProgressPrinter(w io.Writer, verbose bool) *ProgressPrinter {
	return &ProgressPrinter{w: w, verbose: verbose}
}

func (p *ProgressPrinter) OnProgress(percent int, message string) {
	fmt.Fprintf(p.w, "%s %s\n", DimStyle.Render(fmt.Sprintf("[%3d%%]", percent)), message)
}

func (p *ProgressPrinter) OnResult(keyword string, results []kwsearch.Result) {
	if p.verbose {
		fmt.Fprint(p.w, RenderResults(keyword, results))
	}
}

func (p *ProgressPrinter) OnKeywordError(keyword string, err error) {
	fmt.Fprintf(p.w, "%s %s: %v\n", ErrorStyle.Render("failed"), keyword, err)
}

func (p *ProgressPrinter) OnDone(report *worker.Report) {
	status := SuccessStyle.Render("done")
	if report.Interrupted {
		status = WarningStyle.Render("stopped")
	}
	fmt.Fprintf(p.w, "%s %d results from %d keywords\n", status, len(report.Results), report.Processed)
}
