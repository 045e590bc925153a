// Package pagestest provides in-memory pages.Surface implementations for
// tests that exercise page objects without a browser.
package pagestest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/pages"
)

var _ pages.Surface = (*Surface)(nil)

// ErrNoElement is returned for locators that match nothing.
var ErrNoElement = errors.New("no element matches locator")

// Call records one Surface invocation.
type Call struct {
	Op      string
	Locator string
	Value   string
}

// Surface is a recording fake. Locators resolve against the texts and lists
// set on it; hooks let a test react to clicks, selections and navigation.
type Surface struct {
	mu       sync.Mutex
	calls    []Call
	texts    map[string]string
	lists    map[string][]string
	values   map[string]string
	failures map[string]error
	scripts  []string
	url      string

	PNG        []byte
	EvalResult any
	EvalErr    error

	OnGoto   func(url string) error
	OnClick  func(locator string) error
	OnSelect func(locator, value string) error
}

// New returns an empty fake surface.
func New() *Surface {
	return &Surface{
		texts:    map[string]string{},
		lists:    map[string][]string{},
		values:   map[string]string{},
		failures: map[string]error{},
		PNG:      []byte("\x89PNG\r\n\x1a\n"),
	}
}

// SetText makes locator resolve to a single element with text.
func (s *Surface) SetText(locator, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[locator] = text
}

// SetList makes locator resolve to one element per text.
func (s *Surface) SetList(locator string, texts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[locator] = append([]string(nil), texts...)
}

// Remove makes locator match nothing.
func (s *Surface) Remove(locator string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.texts, locator)
	delete(s.lists, locator)
}

// Reset drops every element and field value, as a fresh page load would.
func (s *Surface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = map[string]string{}
	s.lists = map[string][]string{}
	s.values = map[string]string{}
}

// Fail makes every operation on locator return err.
func (s *Surface) Fail(locator string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[locator] = err
}

// Value returns what was last filled into locator.
func (s *Surface) Value(locator string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[locator]
}

// Calls returns a copy of the recorded calls.
func (s *Surface) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Ops returns the recorded operation names in order.
func (s *Surface) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := make([]string, len(s.calls))
	for i, c := range s.calls {
		ops[i] = c.Op
	}
	return ops
}

// Scripts returns the script URLs injected so far.
func (s *Surface) Scripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scripts...)
}

// begin records the call and returns the configured failure, if any.
func (s *Surface) begin(ctx context.Context, op, locator, value string) error {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Op: op, Locator: locator, Value: value})
	failure := s.failures[locator]
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fail(op, locator, err)
	}
	if failure != nil {
		return fail(op, locator, failure)
	}
	return nil
}

func fail(op, locator string, err error) error {
	return errs.Wrap(errs.Interaction, fmt.Sprintf("%s %s", op, locator), err)
}

func (s *Surface) Goto(ctx context.Context, url string) error {
	if err := s.begin(ctx, "goto", url, ""); err != nil {
		return err
	}
	s.mu.Lock()
	s.url = url
	hook := s.OnGoto
	s.mu.Unlock()
	if hook != nil {
		if err := hook(url); err != nil {
			return fail("goto", url, err)
		}
	}
	return nil
}

func (s *Surface) Fill(ctx context.Context, locator, text string) error {
	if err := s.begin(ctx, "fill", locator, text); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[locator] = text
	return nil
}

func (s *Surface) Click(ctx context.Context, locator string) error {
	if err := s.begin(ctx, "click", locator, ""); err != nil {
		return err
	}
	s.mu.Lock()
	hook := s.OnClick
	s.mu.Unlock()
	if hook != nil {
		if err := hook(locator); err != nil {
			return fail("click", locator, err)
		}
	}
	return nil
}

func (s *Surface) InnerText(ctx context.Context, locator string) (string, error) {
	if err := s.begin(ctx, "inner_text", locator, ""); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if text, ok := s.texts[locator]; ok {
		return text, nil
	}
	if list := s.lists[locator]; len(list) > 0 {
		return list[0], nil
	}
	return "", fail("inner_text", locator, ErrNoElement)
}

func (s *Surface) SelectOption(ctx context.Context, locator, value string) error {
	if err := s.begin(ctx, "select_option", locator, value); err != nil {
		return err
	}
	s.mu.Lock()
	hook := s.OnSelect
	s.mu.Unlock()
	if hook != nil {
		if err := hook(locator, value); err != nil {
			return fail("select_option", locator, err)
		}
	}
	return nil
}

func (s *Surface) AllInnerTexts(ctx context.Context, locator string) ([]string, error) {
	if err := s.begin(ctx, "all_inner_texts", locator, ""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if list := s.lists[locator]; len(list) > 0 {
		return append([]string(nil), list...), nil
	}
	if text, ok := s.texts[locator]; ok {
		return []string{text}, nil
	}
	return nil, fail("all_inner_texts", locator, ErrNoElement)
}

func (s *Surface) Count(ctx context.Context, locator string) (int, error) {
	if err := s.begin(ctx, "count", locator, ""); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if list, ok := s.lists[locator]; ok {
		return len(list), nil
	}
	if _, ok := s.texts[locator]; ok {
		return 1, nil
	}
	return 0, nil
}

func (s *Surface) Screenshot(ctx context.Context) ([]byte, error) {
	if err := s.begin(ctx, "screenshot", "", ""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.PNG...), nil
}

func (s *Surface) AddScript(ctx context.Context, url string) error {
	if err := s.begin(ctx, "add_script", url, ""); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, url)
	return nil
}

func (s *Surface) Evaluate(ctx context.Context, expression string) (any, error) {
	if err := s.begin(ctx, "evaluate", "", ""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EvalErr != nil {
		return nil, fail("evaluate", "script", s.EvalErr)
	}
	return s.EvalResult, nil
}

func (s *Surface) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}
