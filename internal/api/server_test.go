package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/tomw/arc-ci-ranker/internal/config"
	"github.com/tomw/arc-ci-ranker/internal/export"
	"github.com/tomw/arc-ci-ranker/internal/rank"
)

func intPtr(v int) *int { return &v }

func newTestServer() *Server {
	data := rank.NewDataset([]export.Row{
		{
			Code:                    "A123",
			FundingCommencementYear: intPtr(2020),
			ChiefInvestigators:      []string{"Smith, J", "Doe, R"},
			AllCodes:                []string{"0801", "4602"},
			AllNames:                []string{"Artificial Intelligence and Image Processing", "Artificial intelligence"},
		},
		{
			Code:                    "B456",
			FundingCommencementYear: intPtr(2022),
			ChiefInvestigators:      []string{"Smith, J"},
			AllCodes:                []string{"0801"},
			AllNames:                []string{"Artificial Intelligence and Image Processing"},
		},
	})

	cfg := config.Default()
	cfg.AdminSecret = "test-secret"
	return NewServer(cfg, data, nil)
}

func doGet(t *testing.T, s *Server, target string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s response: %v", target, err)
		}
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	if code := doGet(t, s, "/health", nil); code != http.StatusOK {
		t.Errorf("health returned %d", code)
	}
}

func TestForCodes(t *testing.T) {
	s := newTestServer()

	var opts rank.Options
	if code := doGet(t, s, "/api/v1/for_codes", &opts); code != http.StatusOK {
		t.Fatalf("for_codes returned %d", code)
	}

	if len(opts.Specific) != 2 || opts.Specific[0].Value != "0801" {
		t.Errorf("unexpected specific options: %+v", opts.Specific)
	}
	if len(opts.Broad) != 2 || opts.Broad[0].Value != "08" || opts.Broad[1].Value != "46" {
		t.Errorf("unexpected broad options: %+v", opts.Broad)
	}
}

func TestRankedCIs(t *testing.T) {
	s := newTestServer()

	var overall rank.Result
	if code := doGet(t, s, "/api/v1/ranked_cis", &overall); code != http.StatusOK {
		t.Fatalf("ranked_cis returned %d", code)
	}
	if !overall.IsOverall {
		t.Error("unfiltered ranking should be flagged overall")
	}
	if len(overall.Entries) != 2 || overall.Entries[0].Investigator != "Smith, J" || overall.Entries[0].ProjectCount != 2 {
		t.Errorf("unexpected overall ranking: %+v", overall.Entries)
	}

	var filtered rank.Result
	doGet(t, s, "/api/v1/ranked_cis?selected_codes=4602", &filtered)
	if filtered.IsOverall {
		t.Error("filtered ranking must not be flagged overall")
	}
	if len(filtered.Entries) != 2 {
		t.Fatalf("expected both A123 investigators under 4602, got %+v", filtered.Entries)
	}
	for _, e := range filtered.Entries {
		if e.ProjectCount != 1 {
			t.Errorf("only A123 carries 4602: %+v", e)
		}
	}

	var capped rank.Result
	doGet(t, s, "/api/v1/ranked_cis?top_k=1", &capped)
	if len(capped.Entries) != 1 {
		t.Errorf("top_k=1 must cap the ranking: %+v", capped.Entries)
	}

	// Out-of-range values fall back to the configured default.
	var fallback rank.Result
	doGet(t, s, "/api/v1/ranked_cis?top_k=500", &fallback)
	if len(fallback.Entries) != 2 {
		t.Errorf("invalid top_k should use the default: %+v", fallback.Entries)
	}
}

func TestCIDetail(t *testing.T) {
	s := newTestServer()

	var detail rank.DetailResult
	target := "/api/v1/ci_detail/" + url.PathEscape("Smith, J") + "?selected_codes=0801"
	if code := doGet(t, s, target, &detail); code != http.StatusOK {
		t.Fatalf("ci_detail returned %d", code)
	}

	if detail.Investigator != "Smith, J" {
		t.Errorf("wrong investigator echoed: %q", detail.Investigator)
	}
	if len(detail.Projects) != 2 {
		t.Fatalf("expected 2 projects, got %+v", detail.Projects)
	}
	// Year descending.
	if detail.Projects[0].Code != "B456" || detail.Projects[1].Code != "A123" {
		t.Errorf("projects not sorted by year descending: %+v", detail.Projects)
	}
	if detail.Projects[0].URL != rank.GrantPageURL+"B456" {
		t.Errorf("project URL wrong: %q", detail.Projects[0].URL)
	}
}

func TestAdminEndpointsRequireSecret(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/crawl", nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing secret: got %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/crawl", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	rec = httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: got %d, want 401", rec.Code)
	}
}

func TestAdminJobStatusAcceptsBothAuthHeaders(t *testing.T) {
	s := newTestServer()

	for _, set := range []func(*http.Request){
		func(r *http.Request) { r.Header.Set("X-Admin-Secret", "test-secret") },
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer test-secret") },
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/job/nope", nil)
		set(req)
		rec := httptest.NewRecorder()
		s.Echo.ServeHTTP(rec, req)
		// Authenticated but unknown job id.
		if rec.Code != http.StatusNotFound {
			t.Errorf("authenticated job lookup: got %d, want 404", rec.Code)
		}
	}
}

func TestEphemeralAdminSecretFallback(t *testing.T) {
	cfg := config.Default()
	s := NewServer(cfg, rank.NewDataset(nil), nil)
	if s.adminSecret == "" {
		t.Error("server without a configured secret must generate an ephemeral one")
	}
}
