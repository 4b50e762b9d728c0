package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/blob"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/cas"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/coord"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/notify"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/reader"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/store"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/writer"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	log := zerolog.Nop()
	meta := store.NewMemoryStore()
	blobs := blob.NewMemoryStore()
	coords := coord.NewMemoryStore()
	contents := cas.NewContentStore(blobs, "test")

	writes := writer.New(
		writer.NewSequenceAllocator(coords),
		writer.NewIdempotencyGuard(coords, time.Hour),
		contents, meta, notify.NewLogPublisher(log), "test.writes", log,
	)
	reads := reader.New(meta, contents, blobs, coords, 4, log)
	h := NewHandler(writes, reads, meta, coords, log)

	r := chi.NewRouter()
	r.Route("/conversations/{conversationId}/messages", func(r chi.Router) {
		r.Post("/", h.WriteMessage)
		r.Get("/", h.ReadMessages)
	})
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	return r
}

func postMessage(t *testing.T, r http.Handler, conv, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/conversations/"+conv+"/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWriteMessageCreated(t *testing.T) {
	r := newTestRouter(t)

	rec := postMessage(t, r, "c1", `{"role":"user","body":{"text":"hi"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	var resp WriteMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Seq != 1 || resp.MsgID == "" || resp.Status != "created" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestWriteMessageIdempotentReplay(t *testing.T) {
	r := newTestRouter(t)
	body := `{"role":"user","body":{"text":"once"},"clientKey":"k-1"}`

	first := postMessage(t, r, "c2", body)
	if first.Code != http.StatusCreated {
		t.Fatalf("first write status %d", first.Code)
	}
	second := postMessage(t, r, "c2", body)
	if second.Code != http.StatusOK {
		t.Fatalf("replay status %d, want 200", second.Code)
	}

	var a, b WriteMessageResponse
	json.Unmarshal(first.Body.Bytes(), &a)
	json.Unmarshal(second.Body.Bytes(), &b)
	if b.Status != "already_exists" {
		t.Errorf("replay status %q", b.Status)
	}
	if a.MsgID != b.MsgID || a.Seq != b.Seq {
		t.Errorf("replay changed identity: %+v vs %+v", a, b)
	}
}

func TestWriteMessageRejectsBadInput(t *testing.T) {
	r := newTestRouter(t)

	if rec := postMessage(t, r, "c3", `{"role":"robot","body":{}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid role: status %d", rec.Code)
	}
	if rec := postMessage(t, r, "c3", `{"role":"user"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing body: status %d", rec.Code)
	}
	if rec := postMessage(t, r, "c3", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: status %d", rec.Code)
	}
}

func TestReadMessagesPagination(t *testing.T) {
	r := newTestRouter(t)
	for i := 0; i < 5; i++ {
		rec := postMessage(t, r, "c4", `{"role":"user","body":{"n":`+strconv.Itoa(i)+`}}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed write %d: status %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest("GET", "/conversations/c4/messages?limit=2", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var page ReadMessagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Messages) != 2 {
		t.Fatalf("page size %d", len(page.Messages))
	}
	if page.NextCursor == nil || *page.NextCursor != 2 {
		t.Fatalf("next cursor %v, want 2", page.NextCursor)
	}

	req = httptest.NewRequest("GET", "/conversations/c4/messages?limit=10&cursor=2", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	page = ReadMessagesResponse{}
	json.Unmarshal(rec.Body.Bytes(), &page)
	if len(page.Messages) != 3 {
		t.Fatalf("second page size %d", len(page.Messages))
	}
	if page.Messages[0].Seq != 3 {
		t.Errorf("second page starts at seq %d", page.Messages[0].Seq)
	}
	if page.NextCursor != nil {
		t.Errorf("final page has next cursor %v", *page.NextCursor)
	}
}

func TestReadMessagesDescendingDefaultsToNewest(t *testing.T) {
	r := newTestRouter(t)
	for i := 0; i < 3; i++ {
		postMessage(t, r, "c5", `{"role":"assistant","body":{"text":"x"}}`)
	}

	req := httptest.NewRequest("GET", "/conversations/c5/messages?order=desc&limit=2", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var page ReadMessagesResponse
	json.Unmarshal(rec.Body.Bytes(), &page)
	if len(page.Messages) != 2 || page.Messages[0].Seq != 3 || page.Messages[1].Seq != 2 {
		t.Fatalf("unexpected page: %+v", page.Messages)
	}
}

func TestReadMessagesValidatesQuery(t *testing.T) {
	r := newTestRouter(t)

	for _, q := range []string{"limit=0", "limit=201", "limit=x", "cursor=x", "order=sideways"} {
		req := httptest.NewRequest("GET", "/conversations/c6/messages?"+q, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, rec.Code)
		}
	}
}

func TestHealthAndStats(t *testing.T) {
	r := newTestRouter(t)
	postMessage(t, r, "c7", `{"role":"user","body":{"text":"hi"}}`)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
	var health HealthResponse
	json.Unmarshal(rec.Body.Bytes(), &health)
	if health.Status != "healthy" {
		t.Errorf("health %q", health.Status)
	}

	req = httptest.NewRequest("GET", "/stats", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var stats StatsResponse
	json.Unmarshal(rec.Body.Bytes(), &stats)
	if stats.TotalMessages != 1 || stats.CASRefs != 1 {
		t.Errorf("stats %+v", stats)
	}
}
