package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/folio/internal/config"
	"github.com/dgallion1/folio/internal/sessions"
)

const testKey = "test-key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		FolioAPIKey:    testKey,
		WorkerCount:    1,
		MaxQueueSize:   8,
		MaxUploadBytes: 1 << 20,
		SessionTTL:     time.Hour,
		ViewportWidth:  400,
		ViewportHeight: 100,
		CharWidth:      10,
		LineHeight:     20,
		Tuning:         config.DefaultTuning(),
	}
	log := slog.New(slog.DiscardHandler)
	srv := httptest.NewServer(NewServer(sessions.NewManager(cfg, nil, log), log, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, contentType string, body io.Reader) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	json.Unmarshal(raw, &out)
	return resp, out
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	return do(t, method, url, "application/json", strings.NewReader(body))
}

func upload(t *testing.T, srv *httptest.Server, filename, content string, fields map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	io.WriteString(fw, content)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return do(t, http.MethodPost, srv.URL+"/api/sessions", mw.FormDataContentType(), &buf)
}

func chapter(n int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := range n {
		b.WriteString("<p>para ")
		b.WriteString(string(rune('a' + i)))
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestHealth_NoAuth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuth_Rejected(t *testing.T) {
	srv := newTestServer(t)
	for _, header := range []string{"", "Bearer wrong"} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/stats/dispatch", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, resp.StatusCode)
		}
	}
}

func TestCreateSession_Validation(t *testing.T) {
	srv := newTestServer(t)
	cases := []struct {
		name     string
		filename string
		fields   map[string]string
	}{
		{"unsupported file", "book.exe", nil},
		{"bad mode", "ch.html", map[string]string{"mode": "sideways"}},
		{"bad columns", "ch.html", map[string]string{"columns": "3"}},
		{"bad width", "ch.html", map[string]string{"width": "-1"}},
		{"bad highlights", "ch.html", map[string]string{"highlights": "{"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := upload(t, srv, tc.filename, chapter(2), tc.fields)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	resp, created := upload(t, srv, "ch1.html", chapter(12), map[string]string{
		"mode":     "paginated",
		"progress": `{"path":"BODY/7/0","offset":1}`,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, created)
	}
	id, _ := created["session_id"].(string)
	base := srv.URL + "/api/sessions/" + id

	// The restore runs once the session clock passes the settle delay.
	resp, out := doJSON(t, http.MethodPost, base+"/events", `{"events":[{"type":"tick","at_ms":600}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	state := out["state"].(map[string]any)
	if state["page"].(float64) != 1 || state["loading"].(bool) {
		t.Errorf("expected the restore on page 1, got %v", state)
	}

	resp, out = doJSON(t, http.MethodPost, base+"/events", `{"events":[
		{"type":"pointerdown","at_ms":1000,"x":360,"y":50},
		{"type":"pointerup","at_ms":1040,"x":360,"y":50}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	outcomes := out["outcomes"].([]any)
	if len(outcomes) != 2 || outcomes[1] != "next-page!" {
		t.Errorf("unexpected outcomes %v", outcomes)
	}

	resp, out = doJSON(t, http.MethodPost, base+"/events", `{"events":[{"type":"key","at_ms":2000,"key":"ArrowRight"}]}`)
	var chapterEnd bool
	for _, r := range out["reports"].([]any) {
		if r.(map[string]any)["event"] == "onNextChapter" {
			chapterEnd = true
		}
	}
	if !chapterEnd {
		t.Errorf("expected onNextChapter past the last page, got %v", out["reports"])
	}

	if resp, _ = doJSON(t, http.MethodPost, base+"/page", `{"page":0}`); resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for a page jump, got %d", resp.StatusCode)
	}
	if resp, _ = doJSON(t, http.MethodPost, base+"/page", `{}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without a page, got %d", resp.StatusCode)
	}

	resp, out = doJSON(t, http.MethodPut, base+"/flags", `{"interactionLocked":true}`)
	if resp.StatusCode != http.StatusOK || !out["state"].(map[string]any)["interactionLocked"].(bool) {
		t.Errorf("expected the lock to be set, got %d %v", resp.StatusCode, out)
	}
	if resp, _ = doJSON(t, http.MethodPut, base+"/theme", `{"textColor":"#000","backgroundColor":"#fff"}`); resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for theme, got %d", resp.StatusCode)
	}
	if resp, _ = doJSON(t, http.MethodPut, base+"/font", `{"fontFamily":"serif"}`); resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for font, got %d", resp.StatusCode)
	}

	resp, out = doJSON(t, http.MethodPut, base+"/highlights", `[
		{"id":"h1","range":{"startPath":"BODY/0/0","startOffset":0,"endPath":"BODY/0/0","endOffset":4}},
		{"id":"broken"}]`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["markers"].(float64) != 1 || out["skipped"] == "" {
		t.Errorf("expected one marker and a skipped record, got %v", out)
	}

	req, _ := http.NewRequest(http.MethodGet, base+"/content", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	cresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html, _ := io.ReadAll(cresp.Body)
	cresp.Body.Close()
	if !strings.Contains(string(html), `data-overlay="highlight"`) {
		t.Errorf("expected a highlight marker in the content, got %s", html)
	}

	if resp, _ = do(t, http.MethodDelete, base, "", nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if resp, _ = do(t, http.MethodGet, base, "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestEvents_Validation(t *testing.T) {
	srv := newTestServer(t)
	_, created := upload(t, srv, "ch1.txt", "hello", nil)
	base := srv.URL + "/api/sessions/" + created["session_id"].(string)

	for _, body := range []string{
		`{"events":[{"type":"wiggle"}]}`,
		`{"events":[{"type":"tick","at_ms":-5}]}`,
		`not json`,
	} {
		if resp, _ := doJSON(t, http.MethodPost, base+"/events", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, resp.StatusCode)
		}
	}
	if resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/nope/events", `{"events":[]}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown session, got %d", resp.StatusCode)
	}
}

func TestDispatchStats(t *testing.T) {
	srv := newTestServer(t)
	upload(t, srv, "ch1.txt", "hello", nil)
	resp, out := do(t, http.MethodGet, srv.URL+"/api/stats/dispatch", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["sessions"].(float64) != 1 {
		t.Errorf("expected 1 session, got %v", out["sessions"])
	}
	if out["dispatch"].(map[string]any)["count"].(float64) != 1 {
		t.Errorf("expected 1 dispatch sample, got %v", out["dispatch"])
	}
}
