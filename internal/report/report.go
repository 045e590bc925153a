// Package report renders the outcome of a scenario run as Markdown, as a
// sanitised standalone HTML page, and as JSON.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/storefront-e2e/internal/errs"
)

// Status is the outcome of one scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result is one scenario execution.
type Result struct {
	Scenario  string        `json:"scenario"`
	Browser   string        `json:"browser"`
	Status    Status        `json:"status"`
	Duration  time.Duration `json:"duration_ns"`
	Code      errs.Code     `json:"code,omitempty"`
	Error     string        `json:"error,omitempty"`
	Artifacts []string      `json:"artifacts,omitempty"`
}

// NewResult classifies err into a Result.
func NewResult(scenario, browser string, duration time.Duration, err error) Result {
	r := Result{Scenario: scenario, Browser: browser, Status: StatusPassed, Duration: duration}
	if err != nil {
		r.Status = StatusFailed
		r.Code = errs.CodeOf(err)
		r.Error = err.Error()
	}
	return r
}

// SkippedResult records a scenario that could not run because its
// environment was missing, such as an uninstalled browser. reason is kept in
// Error.
func SkippedResult(scenario, browser string, duration time.Duration, reason error) Result {
	r := Result{Scenario: scenario, Browser: browser, Status: StatusSkipped, Duration: duration}
	if reason != nil {
		r.Code = errs.CodeOf(reason)
		r.Error = reason.Error()
	}
	return r
}

// Report collects results for one run. Add is safe for concurrent use.
type Report struct {
	RunID     string    `json:"run_id"`
	BaseURL   string    `json:"base_url"`
	StartedAt time.Time `json:"started_at"`

	mu      sync.Mutex
	results []Result
}

func New(runID, baseURL string, startedAt time.Time) *Report {
	return &Report{RunID: runID, BaseURL: baseURL, StartedAt: startedAt.UTC()}
}

func (r *Report) Add(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Results returns the results ordered by scenario, then browser.
func (r *Report) Results() []Result {
	r.mu.Lock()
	out := append([]Result(nil), r.results...)
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Scenario != out[j].Scenario {
			return out[i].Scenario < out[j].Scenario
		}
		return out[i].Browser < out[j].Browser
	})
	return out
}

// Counts returns the number of results per status.
func (r *Report) Counts() map[Status]int {
	counts := map[Status]int{}
	for _, res := range r.Results() {
		counts[res.Status]++
	}
	return counts
}

// Failed reports whether any scenario failed.
func (r *Report) Failed() bool {
	return r.Counts()[StatusFailed] > 0
}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	results := r.Results()
	counts := r.Counts()

	var b strings.Builder
	fmt.Fprintf(&b, "# Storefront run %s\n\n", r.RunID)
	fmt.Fprintf(&b, "- Target: %s\n", r.BaseURL)
	fmt.Fprintf(&b, "- Started: %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Passed: %d, failed: %d, skipped: %d\n\n",
		counts[StatusPassed], counts[StatusFailed], counts[StatusSkipped])

	b.WriteString("| Scenario | Browser | Status | Duration |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, res := range results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(res.Scenario), cell(res.Browser), statusLabel(res.Status), res.Duration.Round(time.Millisecond))
	}

	var failures []Result
	for _, res := range results {
		if res.Status == StatusFailed {
			failures = append(failures, res)
		}
	}
	if len(failures) > 0 {
		b.WriteString("\n## Failures\n")
		for _, res := range failures {
			fmt.Fprintf(&b, "\n### %s (%s)\n\n", res.Scenario, res.Browser)
			fmt.Fprintf(&b, "Code: `%s`\n\n", res.Code)
			b.WriteString("```\n")
			b.WriteString(strings.ReplaceAll(res.Error, "```", "'''"))
			b.WriteString("\n```\n")
			for _, a := range res.Artifacts {
				fmt.Fprintf(&b, "\n- Artifact: `%s`\n", a)
			}
		}
	}
	return b.String()
}

func statusLabel(s Status) string {
	switch s {
	case StatusPassed:
		return "PASS"
	case StatusFailed:
		return "**FAIL**"
	default:
		return "skip"
	}
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.5;
            max-width: 960px;
            margin: 0 auto;
            padding: 2rem 1rem;
        }
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid #e0e0e0; padding: 0.4rem 0.6rem; text-align: left; }
        pre { background: #f5f5f5; padding: 1rem; overflow-x: auto; }
    </style>
</head>
<body>
    <article>
{{.Content}}
    </article>
</body>
</html>`

var page = template.Must(template.New("report").Parse(pageTemplate))

// HTML renders the Markdown report to a standalone page. The rendered body is
// sanitised, since error text comes from the page under test.
func (r *Report) HTML() ([]byte, error) {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(r.Markdown()))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	body := bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))

	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title   string
		Content template.HTML
	}{
		Title:   "Storefront run " + r.RunID,
		Content: template.HTML(body),
	})
	if err != nil {
		return nil, fmt.Errorf("report: render html: %w", err)
	}
	return buf.Bytes(), nil
}

// JSON renders the report and its ordered results.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(struct {
		RunID     string         `json:"run_id"`
		BaseURL   string         `json:"base_url"`
		StartedAt time.Time      `json:"started_at"`
		Counts    map[Status]int `json:"counts"`
		Results   []Result       `json:"results"`
	}{r.RunID, r.BaseURL, r.StartedAt, r.Counts(), r.Results()}, "", "  ")
}
