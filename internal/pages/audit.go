package pages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
)

// Violation is one accessibility rule that failed on the page.
type Violation struct {
	ID     string `json:"id"`
	Impact string `json:"impact"`
	Help   string `json:"help"`
	Nodes  int    `json:"nodes"`
}

// axeRunScript runs axe-core and returns violations as a JSON string, so the
// result crosses the driver boundary as one value.
const axeRunScript = `async () => {
  if (typeof axe === "undefined") {
    throw new Error("axe-core is not loaded");
  }
  const result = await axe.run(document, { resultTypes: ["violations"] });
  return JSON.stringify(result.violations.map(v => ({
    id: v.id,
    impact: v.impact || "",
    help: v.help,
    nodes: v.nodes.length,
  })));
}`

// Audit injects axe-core from scriptURL into the current page and returns
// the rule violations it reports. A script that cannot be loaded is
// Unavailable; a scan that fails once loaded keeps its own code.
func Audit(ctx context.Context, surface Surface, scriptURL string) ([]Violation, error) {
	if err := surface.AddScript(ctx, scriptURL); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "load accessibility scanner", err)
	}
	raw, err := surface.Evaluate(ctx, axeRunScript)
	if err != nil {
		return nil, err
	}
	encoded, ok := raw.(string)
	if !ok {
		return nil, errs.New(errs.InvalidFormat, fmt.Sprintf("accessibility scan returned %T, want string", raw))
	}
	var violations []Violation
	if err := json.Unmarshal([]byte(encoded), &violations); err != nil {
		return nil, errs.Wrap(errs.InvalidFormat, "decode accessibility scan", err)
	}
	obs.From(ctx).Info("accessibility scan", "pkg", "pages", "url", surface.URL(), "violations", len(violations))
	return violations, nil
}
