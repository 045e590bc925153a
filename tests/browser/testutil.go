// Package browser runs the storefront scenarios in a real browser.
// By default every test targets an in-process demoshop server; set
// E2E_LIVE=1 to target BASE_URL with the environment's credentials instead.
// All browser test files use SetupShopTestEnv(t) and env.OpenSession(t).
package browser

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kuitang/storefront-e2e/internal/artifacts"
	"github.com/kuitang/storefront-e2e/internal/config"
	"github.com/kuitang/storefront-e2e/internal/demoshop"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/fixture"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/pages"
	"github.com/kuitang/storefront-e2e/internal/scenario"
)

const (
	// Never introduce a larger timeout value anywhere in tests/browser.
	browserMaxTimeout = 5 * time.Second

	liveEnvVar = "E2E_LIVE"
)

var (
	shopServerMu sync.Mutex
	shopServer   *httptest.Server
)

// ShopTestEnv is the per-test environment: a configuration pointing at the
// storefront and the store failure screenshots go to.
type ShopTestEnv struct {
	Config *config.Config
	Live   bool
	Store  artifacts.Store
	RunID  string
}

// SetupShopTestEnv skips in -short mode and otherwise returns an environment
// targeting the shared demoshop server, or the live site when E2E_LIVE=1.
func SetupShopTestEnv(t *testing.T) *ShopTestEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}

	live := os.Getenv(liveEnvVar) == "1"
	var cfg *config.Config
	if live {
		var err error
		cfg, err = config.LoadConfig(config.Overrides{})
		if err != nil {
			t.Fatalf("Failed to load live configuration: %v", err)
		}
	} else {
		cfg = config.Default()
		cfg.BaseURL = sharedShopURL(t)
		cfg.Username = demoshop.StandardUser
		cfg.Password = demoshop.DefaultPassword
		if b := strings.TrimSpace(os.Getenv("BROWSER")); b != "" {
			cfg.Browser = b
		}
		cfg.ActionTimeout = browserMaxTimeout
		cfg.NavigationTimeout = browserMaxTimeout
		cfg.ArtifactDir = filepath.Join(os.TempDir(), "storefront-e2e-artifacts")
	}

	return &ShopTestEnv{
		Config: cfg,
		Live:   live,
		Store:  artifacts.NewDirStore(cfg.ArtifactDir),
		RunID:  artifacts.NewRunID(time.Now()),
	}
}

func sharedShopURL(t *testing.T) string {
	t.Helper()
	shopServerMu.Lock()
	defer shopServerMu.Unlock()
	if shopServer == nil {
		shop, err := demoshop.New(demoshop.Options{})
		if err != nil {
			t.Fatalf("Failed to build demoshop: %v", err)
		}
		shopServer = httptest.NewServer(shop.Handler())
	}
	return shopServer.URL + "/"
}

func TestMain(m *testing.M) {
	code := m.Run()
	shopServerMu.Lock()
	if shopServer != nil {
		shopServer.Close()
	}
	shopServerMu.Unlock()
	os.Exit(code)
}

// Context returns a context carrying the test's correlation fields.
func (env *ShopTestEnv) Context(t *testing.T) context.Context {
	return obs.WithCorrelation(context.Background(), obs.Correlation{
		RunID:   env.RunID,
		Test:    t.Name(),
		Browser: env.Config.Browser,
	})
}

// OpenSession opens a browser session for t and registers its teardown.
// The test is skipped when Playwright or the browser is not installed.
// A failed test leaves a screenshot in the artifact store.
func (env *ShopTestEnv) OpenSession(t *testing.T) *fixture.Session {
	t.Helper()
	ctx := env.Context(t)

	s, err := fixture.Open(ctx, env.Config)
	if err != nil {
		if errs.Is(err, errs.Unavailable) {
			t.Skip("Playwright not available:", err)
		}
		t.Fatalf("Failed to open session: %v", err)
	}

	t.Cleanup(func() {
		if t.Failed() && env.Config.ScreenshotOnFailure {
			env.saveFailureScreenshot(t, ctx, s)
		}
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close session: %v", err)
		}
	})
	return s
}

func (env *ShopTestEnv) saveFailureScreenshot(t *testing.T, ctx context.Context, s *fixture.Session) {
	png, err := s.Screenshot(ctx)
	if err != nil {
		t.Logf("Failure screenshot not captured: %v", err)
		return
	}
	key := artifacts.Key(env.RunID, t.Name(), "failure.png")
	if err := env.Store.Put(ctx, key, png, artifacts.ContentTypePNG); err != nil {
		t.Logf("Failure screenshot not saved: %v", err)
		return
	}
	t.Logf("Failure screenshot: %s", env.Store.Location(key))
}

// Env binds a scenario environment to an open session.
func (env *ShopTestEnv) Env(s *fixture.Session) scenario.Env {
	return scenario.NewEnv(env.Config, s.Surface)
}

// SignIn opens a session, signs in and returns the inventory page.
func (env *ShopTestEnv) SignIn(t *testing.T) (*fixture.Session, *pages.InventoryPage) {
	t.Helper()
	s := env.OpenSession(t)
	if _, err := s.Login(env.Context(t)); err != nil {
		t.Fatalf("Failed to sign in: %v", err)
	}
	return s, pages.NewInventoryPage(s.Surface)
}

// RequireDemoshop skips tests that depend on demoshop-only behaviour.
func (env *ShopTestEnv) RequireDemoshop(t *testing.T) {
	t.Helper()
	if env.Live {
		t.Skip("Runs against the local demoshop only")
	}
}
