package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"escrow/internal/middleware"
)

func TestDonateSendsSignedRequest(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
		gotAcct string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		acct, err := middleware.VerifyJWT("s3cret", "escrow", tok)
		if err == nil {
			gotAcct = acct.String()
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--server", srv.URL, "--as", "0xABC", "--jwt-secret", "s3cret", "--jwt-issuer", "escrow", "--token", "",
		"campaigns", "donate", "3", "250"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotPath != "/v1/campaigns/3/donations" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["amount"].(float64) != 250 {
		t.Fatalf("body = %v", gotBody)
	}
	if gotAcct != "0xabc" {
		t.Fatalf("account = %q", gotAcct)
	}
	if !strings.Contains(out.String(), `"ok": true`) {
		t.Fatalf("output = %q", out.String())
	}
}

func TestErrorStatusFailsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"not_found"}}`))
	}))
	defer srv.Close()

	cmd := rootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--server", srv.URL, "campaigns", "get", "9"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestParseID(t *testing.T) {
	if _, err := parseID("0"); err == nil {
		t.Fatal("zero id accepted")
	}
	if id, err := parseID("12"); err != nil || id != 12 {
		t.Fatalf("parseID(12) = %d, %v", id, err)
	}
}
