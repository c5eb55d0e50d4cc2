package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"nyaya/config"
	"nyaya/internal/adapter/analyzer"
	"nyaya/internal/adapter/provider"
	"nyaya/internal/adapter/store"
	"nyaya/internal/domain"
	"nyaya/internal/port"
	"nyaya/internal/usecase"
)

type queryEmbedder struct {
	vector []float32
}

func (e *queryEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = e.vector
	}
	return out, nil
}

func (e *queryEmbedder) Dimension() int    { return len(e.vector) }
func (e *queryEmbedder) ModelName() string { return "fixed" }

func newTestServer(t *testing.T, providers ...port.GenerationProvider) *Server {
	t.Helper()

	st, err := store.NewBoltStore(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	doc := domain.Document{
		ID:    "sc_379",
		Title: "State v. Prabhu",
		Court: "Supreme Court of India",
		Date:  time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := st.PutDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	chunk := domain.Chunk{ID: "c_379", DocID: "sc_379", Text: "Punishment for theft under Section 379 extends to three years."}
	if err := st.PutChunk(ctx, chunk); err != nil {
		t.Fatal(err)
	}

	snap, err := store.NewSnapshot(3, []string{"c_379"}, [][]float32{{1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	idx := store.NewSnapshotIndex(snap)

	retriever := usecase.NewRetrieveUseCase(&queryEmbedder{vector: []float32{1, 0, 0}}, idx, st, nil, 4, 0.45)
	health := usecase.NewProviderHealth(time.Second, time.Minute)
	gen := usecase.NewGenerateUseCase(providers, health, 512, time.Second, nil)
	answerer := usecase.NewAnswerUseCase(retriever, usecase.NewAssembleUseCase(analyzer.NewTokenizer()), gen, usecase.NewVerifyUseCase(), 5, 4000, nil)

	return NewServer(answerer, st, idx, config.ServerConfig{Host: "127.0.0.1", Port: 0}, nil)
}

func postAnswer(t *testing.T, srv *Server, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/answer", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, req)
	return rec
}

func TestHandleAnswer_OK(t *testing.T) {
	srv := newTestServer(t, provider.NewScripted("groq",
		provider.ScriptedResponse{Text: "Theft is punishable with up to three years of imprisonment [1]."}))

	rec := postAnswer(t, srv, map[string]interface{}{"question": "What is the punishment for theft?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var answer domain.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatal(err)
	}
	if answer.Status != domain.StatusFullyGrounded {
		t.Errorf("status = %s", answer.Status)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].DocID != "sc_379" {
		t.Errorf("citations = %+v", answer.Citations)
	}
}

func TestHandleAnswer_EmptyQuestion(t *testing.T) {
	srv := newTestServer(t)

	rec := postAnswer(t, srv, map[string]interface{}{"question": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAnswer_BadLanguage(t *testing.T) {
	srv := newTestServer(t)

	rec := postAnswer(t, srv, map[string]interface{}{"question": "q", "language": "fr"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAnswer_DegradedStillOK(t *testing.T) {
	srv := newTestServer(t, provider.NewScripted("groq",
		provider.ScriptedResponse{Err: domain.ErrRateLimited}))

	rec := postAnswer(t, srv, map[string]interface{}{"question": "What is the punishment for theft?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded answers are still 200, got %d", rec.Code)
	}
	var answer domain.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatal(err)
	}
	if !answer.Degraded {
		t.Error("expected degraded answer")
	}
	if len(answer.Evidence) != 1 {
		t.Errorf("evidence = %+v", answer.Evidence)
	}
}

func TestHandleGetDocument(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/sc_379", nil)
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing", nil)
	rec = httptest.NewRecorder()
	srv.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestServer_LogsRequests(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	srv := newTestServer(t)
	srv.logger = zap.New(core)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, req)

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/health" {
		t.Errorf("path = %v", fields["path"])
	}
	if fields["status"] != int64(http.StatusOK) {
		t.Errorf("status = %v", fields["status"])
	}
}
