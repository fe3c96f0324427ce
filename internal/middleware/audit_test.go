package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"escrow/internal/domain"
)

func TestRequestIDAndAudit(t *testing.T) {
	var meta domain.AuditMeta
	lookup := func(ip string) (string, error) {
		if ip == "203.0.113.7" {
			return "id", nil
		}
		return "", errors.New("unknown")
	}
	h := RequestID(Audit(lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta = domain.AuditMetaFromContext(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if _, err := uuid.Parse(meta.RequestID); err != nil {
		t.Fatalf("expected minted uuid, got %q", meta.RequestID)
	}
	if rec.Header().Get("X-Request-ID") != meta.RequestID {
		t.Fatalf("response header %q != %q", rec.Header().Get("X-Request-ID"), meta.RequestID)
	}
	if meta.Country != "ID" {
		t.Fatalf("country = %q", meta.Country)
	}

	rid := uuid.NewString()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", rid)
	req.Header.Set("CF-IPCountry", "sg")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if meta.RequestID != rid || meta.Country != "SG" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestResolveCountrySkipsUnknownHint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-IPCountry", "XX")
	if got := ResolveCountry(req, nil); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Fatalf("preflight: %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unexpected allow origin")
	}
}
