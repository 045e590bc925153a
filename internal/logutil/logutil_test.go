package logutil

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestIsSensitiveLogField(t *testing.T) {
	t.Parallel()
	sensitive := []string{"USER_PASSWORD", "password", "AWS_SECRET_ACCESS_KEY", "AWS_ACCESS_KEY_ID", "Authorization", "session-cookie", "api_key", "token"}
	for _, key := range sensitive {
		if !IsSensitiveLogField(key) {
			t.Errorf("expected %q to be sensitive", key)
		}
	}
	plain := []string{"BROWSER", "BASE_URL", "USER_USERNAME", "DEVICE_NAME", "HEADLESS"}
	for _, key := range plain {
		if IsSensitiveLogField(key) {
			t.Errorf("expected %q to be plain", key)
		}
	}
}

func TestRedactValue(t *testing.T) {
	t.Parallel()
	if got := RedactValue("USER_PASSWORD", "secret_sauce"); got != Redacted {
		t.Fatalf("password not redacted: %q", got)
	}
	if got := RedactValue("USER_PASSWORD", ""); got != "" {
		t.Fatalf("empty password should stay empty, got %q", got)
	}
	if got := RedactValue("USER_USERNAME", "standard_user"); got != "standard_user" {
		t.Fatalf("username should pass through, got %q", got)
	}
}

func testTruncateForLog_Bounded(t *rapid.T) {
	value := rapid.StringMatching(`[a-zA-Z0-9 \n]{0,200}`).Draw(t, "value")
	limit := rapid.IntRange(1, 100).Draw(t, "limit")

	got := TruncateForLog(value, limit)
	if strings.Contains(got, "\n") {
		t.Fatalf("output must be single-line: %q", got)
	}
	body := strings.TrimSuffix(got, "... [truncated]")
	if len(body) > limit {
		t.Fatalf("body longer than limit %d: %q", limit, body)
	}
}

func TestTruncateForLog_Bounded(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testTruncateForLog_Bounded)
}
