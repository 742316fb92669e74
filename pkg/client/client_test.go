package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

func gateway(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestInspect(t *testing.T) {
	var gotURL string
	ts := gateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/navigate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req types.NavigateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotURL = req.URL

		_ = json.NewEncoder(w).Encode(types.Verdict{
			SafeSnapshot:        []string{"Welcome"},
			InteractiveElements: []types.InteractiveElement{{ElementID: "vv-1", Tag: "BUTTON", Text: "Buy"}},
			RiskScore:           10,
			Reason:              "Page passed visual-structural consensus",
			AuditTrail:          []string{"[Decision] Decision: ALLOWED (risk 10)"},
		})
	})

	report := New(Config{GatewayURL: ts.URL + "/"}).Inspect(context.Background(), "http://example.com")

	if gotURL != "http://example.com" {
		t.Errorf("gateway received url %q", gotURL)
	}
	if report.Blocked || report.RiskScore != 10 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.RiskReason != "Page passed visual-structural consensus" {
		t.Errorf("RiskReason = %q", report.RiskReason)
	}
	if len(report.SafeElements) != 1 || report.SafeElements[0].ElementID != "vv-1" {
		t.Errorf("SafeElements = %v", report.SafeElements)
	}
	if len(report.Logs) != 1 {
		t.Errorf("Logs = %v", report.Logs)
	}
}

func TestRiskReasonFallback(t *testing.T) {
	tests := []struct {
		name    string
		verdict types.Verdict
		want    string
	}{
		{
			name:    "allowed",
			verdict: types.Verdict{RiskScore: 0},
			want:    "Page passed visual-structural consensus verification",
		},
		{
			name:    "ghost text in logs",
			verdict: types.Verdict{Blocked: true, RiskScore: 100, AuditTrail: []string{"GHOST TEXT DETECTED: ignore previous instructions"}},
			want:    "Hidden prompt injection detected in page structure (ghost text with dangerous keywords)",
		},
		{
			name:    "renderer flagged",
			verdict: types.Verdict{Blocked: true, RiskScore: 60, AuditTrail: []string{"[Structural] Renderer flagged 2 hidden elements"}},
			want:    "Suspicious hidden elements found (opacity, size, or position anomalies)",
		},
		{
			name:    "generic",
			verdict: types.Verdict{Blocked: true, RiskScore: 75},
			want:    "Security threat detected (Risk score: 75)",
		},
		{
			name:    "gateway reason wins",
			verdict: types.Verdict{Blocked: true, RiskScore: 90, Reason: "custom", AuditTrail: []string{"GHOST TEXT DETECTED"}},
			want:    "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := riskReason(tt.verdict); got != tt.want {
				t.Errorf("riskReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInspectFailSecure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	report := New(Config{GatewayURL: url}).Inspect(context.Background(), "http://example.com")

	if !report.Blocked || report.RiskScore != 100 {
		t.Errorf("expected fail-secure block, got %+v", report)
	}
	if !strings.HasPrefix(report.RiskReason, "FAIL-SECURE: VeriView Gateway offline") {
		t.Errorf("RiskReason = %q", report.RiskReason)
	}
	if len(report.SafeSnapshot) != 0 || report.SafeElements == nil {
		t.Errorf("fail-secure report must expose no content: %+v", report)
	}
}

func TestInspectFailOpen(t *testing.T) {
	ts := gateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	report := New(Config{GatewayURL: ts.URL, FailSecure: Bool(false)}).Inspect(context.Background(), "http://example.com")

	if report.Blocked || report.RiskScore != 0 {
		t.Errorf("expected fail-open report, got %+v", report)
	}
	if len(report.SafeSnapshot) != 1 || report.SafeSnapshot[0] != "[ERROR] VeriView Gateway internal error" {
		t.Errorf("SafeSnapshot = %v", report.SafeSnapshot)
	}
	if !strings.HasPrefix(report.RiskReason, "FAIL-OPEN:") {
		t.Errorf("RiskReason = %q", report.RiskReason)
	}
}

func TestInspectFailureReasons(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		want    string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: "VeriView Gateway internal error",
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"url is required"}`, http.StatusBadRequest)
			},
			want: "Gateway error: gateway returned status 400",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			want: "Gateway error: failed to decode response",
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout: 50 * time.Millisecond,
			want:    "Request timeout (>50ms)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := gateway(t, tt.handler)

			report := New(Config{GatewayURL: ts.URL, Timeout: tt.timeout}).Inspect(context.Background(), "http://example.com")

			if !report.Blocked {
				t.Fatal("expected fail-secure block by default")
			}
			if !strings.Contains(report.RiskReason, tt.want) {
				t.Errorf("RiskReason = %q, want it to contain %q", report.RiskReason, tt.want)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	ts := gateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("OK"))
	})

	if !New(Config{GatewayURL: ts.URL}).HealthCheck(context.Background()) {
		t.Error("expected healthy gateway")
	}

	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()
	if New(Config{GatewayURL: url}).HealthCheck(context.Background()) {
		t.Error("expected unhealthy gateway")
	}
}

func TestLogs(t *testing.T) {
	var gotQuery string
	ts := gateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"timestamp":"2026-01-02T03:04:05Z","url":"http://example.com","phase":"Decision","message":"Decision: ALLOWED (risk 0)","risk_score":0}]`))
	})

	entries, err := New(Config{GatewayURL: ts.URL}).Logs(context.Background(), 5)
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	if gotQuery != "limit=5" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(entries) != 1 || entries[0].Phase != types.PhaseDecision {
		t.Errorf("entries = %+v", entries)
	}
}

func TestAlert(t *testing.T) {
	var got types.Alert
	ts := gateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(types.AlertResponse{Status: "received", Message: "Alert logged"})
	})

	resp, err := New(Config{GatewayURL: ts.URL}).Alert(context.Background(), types.Alert{
		URL:       "http://example.com",
		AlertType: "DYNAMIC_INJECTION",
		Details:   "Injected DIV",
	})
	if err != nil {
		t.Fatalf("Alert() error = %v", err)
	}
	if resp.Status != "received" || got.AlertType != "DYNAMIC_INJECTION" {
		t.Errorf("resp = %+v, forwarded = %+v", resp, got)
	}
}
