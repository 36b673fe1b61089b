package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/savagelysubtle/archivum/internal/cache"
	"github.com/savagelysubtle/archivum/internal/extract"
	"github.com/savagelysubtle/archivum/internal/record"
)

const testToken = "test-token-12345"

// --- mocks ---

type stubCapability struct {
	name    string
	version string
	fields  extract.Fields
	err     error
}

func (s *stubCapability) Name() string { return s.name }

func (s *stubCapability) Version() string {
	if s.version == "" {
		return "1.0"
	}
	return s.version
}

func (s *stubCapability) Extract(_ context.Context, _ string) (extract.Fields, error) {
	return s.fields, s.err
}

type stubContentCapability struct {
	stubCapability
	received []byte
}

func (s *stubContentCapability) ExtractWithContent(_ context.Context, _ string, content []byte) (extract.Fields, error) {
	s.received = content
	return s.fields, s.err
}

type mockCacheAdmin struct {
	statsFn func(ctx context.Context) (cache.Stats, error)
	purgeFn func(ctx context.Context) error
}

func (m *mockCacheAdmin) Stats(ctx context.Context) (cache.Stats, error) {
	if m.statsFn == nil {
		return cache.Stats{}, nil
	}
	return m.statsFn(ctx)
}

func (m *mockCacheAdmin) Purge(ctx context.Context) error {
	if m.purgeFn == nil {
		return nil
	}
	return m.purgeFn(ctx)
}

// --- helpers ---

func setupAppHandler(t *testing.T, token string) (http.Handler, *extract.Registry) {
	t.Helper()
	reg := extract.NewRegistry()
	eng := extract.New(reg, extract.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	handler := NewAppHandler(AppDeps{
		Engine:      eng,
		Registry:    reg,
		Token:       token,
		Concurrency: 4,
		Version:     "test",
	})
	return handler, reg
}

func setupAppHandlerWithCache(t *testing.T, token string, admin CacheAdmin) http.Handler {
	t.Helper()
	reg := extract.NewRegistry()
	eng := extract.New(reg, extract.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	return NewAppHandler(AppDeps{
		Engine:      eng,
		Registry:    reg,
		Cache:       admin,
		Token:       token,
		Concurrency: 4,
		Version:     "test",
	})
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// --- tests ---

func TestHealth_OpenWithoutAuth(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/health", "", "")
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp map[string]string
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
	if resp["version"] != "test" {
		t.Errorf("version = %q, want %q", resp["version"], "test")
	}
}

func TestExtract_ReturnsRecord(t *testing.T) {
	h, reg := setupAppHandler(t, testToken)
	reg.Register("text/plain", &stubCapability{
		name:   "stub",
		fields: extract.Fields{"preview": "hello", "word_count": 3},
	}, 1.0, "")

	path := writeTestFile(t, "note.txt", "hello there world")

	body := fmt.Sprintf(`{"path":%q}`, path)
	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/extract", body, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	ct := rr.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var rec record.Record
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.Path != path {
		t.Errorf("Path = %q, want %q", rec.Path, path)
	}
	if rec.MIMEType != "text/plain" {
		t.Errorf("MIMEType = %q, want %q", rec.MIMEType, "text/plain")
	}
	if !rec.Complete {
		t.Errorf("Complete = false, want true; error = %q", rec.Error)
	}
	if rec.Preview != "hello" {
		t.Errorf("Preview = %q, want %q", rec.Preview, "hello")
	}
	if got := rec.Payload["stub"]["word_count"]; got != float64(3) {
		t.Errorf("Payload[stub][word_count] = %v, want 3", got)
	}
}

func TestExtract_FileNotFound(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	body := `{"path":"/no/such/file.txt"}`
	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/extract", body, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var rec record.Record
	json.NewDecoder(rr.Body).Decode(&rec)
	if rec.Complete {
		t.Error("Complete = true, want false")
	}
	if rec.Error != "file not found" {
		t.Errorf("Error = %q, want %q", rec.Error, "file not found")
	}
	if rec.Size != -1 {
		t.Errorf("Size = %d, want -1", rec.Size)
	}
}

func TestExtract_MissingPath(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/extract", `{}`, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestExtract_InvalidBody(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/extract", `{not json`, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestExtract_InvalidBase64(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)
	path := writeTestFile(t, "note.txt", "hello")

	body := fmt.Sprintf(`{"path":%q,"content_base64":"!!!not-base64!!!"}`, path)
	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/extract", body, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestExtract_MIMETypeOverride(t *testing.T) {
	h, reg := setupAppHandler(t, testToken)
	reg.Register("application/x-custom", &stubCapability{
		name:   "custom",
		fields: extract.Fields{"handled": true},
	}, 1.0, "")

	path := writeTestFile(t, "data.txt", "plain text on disk")

	body := fmt.Sprintf(`{"path":%q,"mime_type":"application/x-custom"}`, path)
	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/extract", body, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var rec record.Record
	json.NewDecoder(rr.Body).Decode(&rec)
	if rec.MIMEType != "application/x-custom" {
		t.Errorf("MIMEType = %q, want %q", rec.MIMEType, "application/x-custom")
	}
	if got := rec.Payload["custom"]["handled"]; got != true {
		t.Errorf("Payload[custom][handled] = %v, want true", got)
	}
}

func TestExtract_ContentUpload(t *testing.T) {
	h, reg := setupAppHandler(t, testToken)
	stub := &stubContentCapability{
		stubCapability: stubCapability{name: "content-stub", fields: extract.Fields{"seen": true}},
	}
	reg.Register("text/plain", stub, 1.0, "")

	path := writeTestFile(t, "note.txt", "on disk")
	uploaded := []byte("uploaded bytes win")

	body := fmt.Sprintf(`{"path":%q,"content_base64":%q}`,
		path, base64.StdEncoding.EncodeToString(uploaded))
	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/extract", body, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if string(stub.received) != string(uploaded) {
		t.Errorf("extractor received %q, want %q", stub.received, uploaded)
	}
}

func TestBatch_OrderedResults(t *testing.T) {
	h, reg := setupAppHandler(t, testToken)
	reg.Register("text/plain", &stubCapability{name: "stub", fields: extract.Fields{"ok": true}}, 1.0, "")

	paths := []string{
		writeTestFile(t, "a.txt", "first"),
		writeTestFile(t, "b.txt", "second"),
		writeTestFile(t, "c.txt", "third"),
	}

	body, _ := json.Marshal(BatchRequest{Paths: paths})
	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/batch", string(body), testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		BatchID string           `json:"batch_id"`
		Count   int              `json:"count"`
		Results []*record.Record `json:"results"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BatchID == "" {
		t.Error("response missing batch_id")
	}
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Count)
	}
	for i, rec := range resp.Results {
		if rec.Path != paths[i] {
			t.Errorf("results[%d].Path = %q, want %q", i, rec.Path, paths[i])
		}
	}
}

func TestBatch_EmptyPaths(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/batch", `{"paths":[]}`, testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestBatch_TooManyPaths(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	paths := make([]string, maxBatchPaths+1)
	for i := range paths {
		paths[i] = "/tmp/overflow.txt"
	}
	body, _ := json.Marshal(BatchRequest{Paths: paths})

	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/batch", string(body), testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestListExtractors(t *testing.T) {
	h, reg := setupAppHandler(t, testToken)
	reg.Register("text/*", &stubCapability{name: "text", version: "2.0"}, 1.0, "")
	reg.Register("image/*", &stubCapability{name: "exif"}, 3.0, "")

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/extractors", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var regs []extract.Registration
	if err := json.NewDecoder(rr.Body).Decode(&regs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("got %d registrations, want 2", len(regs))
	}
	if regs[0].Name != "exif" {
		t.Errorf("regs[0].Name = %q, want %q", regs[0].Name, "exif")
	}
	if regs[1].Version != "2.0" {
		t.Errorf("regs[1].Version = %q, want %q", regs[1].Version, "2.0")
	}
}

func TestListExtractors_Empty(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/extractors", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	body := strings.TrimSpace(rr.Body.String())
	if body != "[]" {
		t.Errorf("body = %q, want %q", body, "[]")
	}
}

func TestCacheStats(t *testing.T) {
	admin := &mockCacheAdmin{
		statsFn: func(_ context.Context) (cache.Stats, error) {
			return cache.Stats{Entries: 3, Bytes: 2048}, nil
		},
	}
	h := setupAppHandlerWithCache(t, testToken, admin)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/cache/stats", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var stats cache.Stats
	json.NewDecoder(rr.Body).Decode(&stats)
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}
	if stats.Bytes != 2048 {
		t.Errorf("Bytes = %d, want 2048", stats.Bytes)
	}
}

func TestCacheStats_NoBackend(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/cache/stats", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCachePurge(t *testing.T) {
	purged := false
	admin := &mockCacheAdmin{
		purgeFn: func(_ context.Context) error {
			purged = true
			return nil
		},
	}
	h := setupAppHandlerWithCache(t, testToken, admin)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodDelete, "/cache", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !purged {
		t.Error("purge was not called")
	}

	var resp map[string]string
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["status"] != "purged" {
		t.Errorf("status = %q, want %q", resp["status"], "purged")
	}
}

func TestCachePurge_Error(t *testing.T) {
	admin := &mockCacheAdmin{
		purgeFn: func(_ context.Context) error {
			return errors.New("disk on fire")
		},
	}
	h := setupAppHandlerWithCache(t, testToken, admin)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodDelete, "/cache", "", testToken)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestExtract_NoAuth(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/extract", `{"path":"/tmp/x"}`, "")
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestExtract_WrongToken(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	req := authReq(http.MethodPost, "/extract", `{"path":"/tmp/x"}`, "wrong-token")
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuth_DisabledWithEmptyToken(t *testing.T) {
	h, _ := setupAppHandler(t, "")

	rr := httptest.NewRecorder()
	req := authReq(http.MethodGet, "/extractors", "", "")
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}
