package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leefowlercu/veriview-gateway/internal/audit"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

type fakeNavigator struct {
	urls    []string
	verdict types.Verdict
}

func (f *fakeNavigator) Navigate(ctx context.Context, url string) types.Verdict {
	f.urls = append(f.urls, url)
	return f.verdict
}

func newTestServer(t *testing.T, nav *fakeNavigator, log *audit.Log) *Server {
	t.Helper()
	return New("test", nav, log, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNavigateAllowed(t *testing.T) {
	nav := &fakeNavigator{verdict: types.Verdict{
		SafeSnapshot:        []string{"Welcome"},
		InteractiveElements: []types.InteractiveElement{{ElementID: "vv-1", Tag: "A", Text: "Home"}},
		RiskScore:           5,
		AuditTrail:          []string{"[Decision] Decision: ALLOWED (risk 5)"},
	}}
	s := newTestServer(t, nav, audit.NewLog(10, 5))

	result, out, err := s.handleNavigate(context.Background(), &mcpsdk.CallToolRequest{}, NavigateInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success, got error result")
	}
	if len(out.SafeSnapshot) != 1 || out.SafeSnapshot[0] != "Welcome" {
		t.Errorf("SafeSnapshot = %v", out.SafeSnapshot)
	}
	if len(out.InteractiveElements) != 1 || out.InteractiveElements[0].ElementID != "vv-1" {
		t.Errorf("InteractiveElements = %v", out.InteractiveElements)
	}
	if out.RiskScore != 5 || out.Blocked {
		t.Errorf("unexpected verdict %+v", out)
	}
	if len(nav.urls) != 1 || nav.urls[0] != "https://example.com" {
		t.Errorf("navigator called with %v", nav.urls)
	}
}

func TestNavigateBlocked(t *testing.T) {
	nav := &fakeNavigator{verdict: types.Verdict{
		SafeSnapshot: []string{"BLOCKED BY VERIVIEW"},
		RiskScore:    100,
		Blocked:      true,
		Reason:       "Ghost text detected",
	}}
	s := newTestServer(t, nav, audit.NewLog(10, 5))

	result, out, err := s.handleNavigate(context.Background(), &mcpsdk.CallToolRequest{}, NavigateInput{URL: "http://evil.test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected IsError result for blocked page")
	}
	if !out.Blocked || out.Reason != "Ghost text detected" {
		t.Errorf("unexpected output %+v", out)
	}
	if out.InteractiveElements == nil || out.Logs == nil {
		t.Error("slices must be non-nil for structured output")
	}
}

func TestNavigateInvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"relative", "/admin"},
		{"file scheme", "file:///etc/passwd"},
		{"javascript", "javascript:alert(1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &fakeNavigator{}
			s := newTestServer(t, nav, audit.NewLog(10, 5))

			_, _, err := s.handleNavigate(context.Background(), &mcpsdk.CallToolRequest{}, NavigateInput{URL: tt.url})
			if err == nil {
				t.Fatal("expected error")
			}
			if len(nav.urls) != 0 {
				t.Error("navigator must not run for invalid URLs")
			}
		})
	}
}

func TestLogs(t *testing.T) {
	log := audit.NewLog(10, 5)
	for _, msg := range []string{"one", "two", "three"} {
		log.Record(types.AuditEntry{URL: "http://example.com", Phase: types.PhaseVisual, Message: msg, RiskScore: 20})
	}
	s := newTestServer(t, &fakeNavigator{}, log)

	tests := []struct {
		limit     int
		wantCount int
		wantFirst string
	}{
		{0, 3, "one"},
		{2, 2, "two"},
		{10, 3, "one"},
	}

	for _, tt := range tests {
		_, out, err := s.handleLogs(context.Background(), &mcpsdk.CallToolRequest{}, LogsInput{Limit: tt.limit})
		if err != nil {
			t.Fatalf("limit %d: unexpected error: %v", tt.limit, err)
		}
		if len(out.Entries) != tt.wantCount || out.Entries[0].Message != tt.wantFirst {
			t.Errorf("limit %d: got %+v", tt.limit, out.Entries)
		}
		if out.Entries[0].Phase != "Visual" || out.Entries[0].Timestamp == "" {
			t.Errorf("limit %d: unexpected entry %+v", tt.limit, out.Entries[0])
		}
	}

	if _, _, err := s.handleLogs(context.Background(), &mcpsdk.CallToolRequest{}, LogsInput{Limit: -1}); err == nil {
		t.Error("expected error for negative limit")
	}
}

func TestLogsEmpty(t *testing.T) {
	s := newTestServer(t, &fakeNavigator{}, audit.NewLog(10, 5))

	_, out, err := s.handleLogs(context.Background(), &mcpsdk.CallToolRequest{}, LogsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Entries == nil || len(out.Entries) != 0 {
		t.Errorf("expected empty non-nil entries, got %v", out.Entries)
	}
}
