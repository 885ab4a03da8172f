package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/smsprobe/pkg/config"
	"github.com/kart-io/smsprobe/pkg/probe"
	"github.com/kart-io/smsprobe/pkg/provider"
	"github.com/kart-io/smsprobe/pkg/report"
)

type stubProvider struct {
	sent chan string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Send(_ context.Context, req *provider.SendRequest) (*provider.SendResponse, error) {
	if p.sent != nil {
		p.sent <- req.Tag
	}
	return &provider.SendResponse{MessageID: "stub-" + req.Tag, AcceptedAt: time.Now()}, nil
}

func (p *stubProvider) IsHealthy(context.Context) error { return nil }
func (p *stubProvider) Close() error                    { return nil }

func testEngine(sent chan string) *probe.Engine {
	cfg := config.Default()
	cfg.SMSWaitTimeout = 2 * time.Second
	cfg.MMSWaitTimeout = 2 * time.Second
	cfg.BatchTimeout = 3 * time.Second
	cfg.Sources = []config.SourceNumber{
		{Name: "TF", Number: "+15550001111", ApplicationID: "app-tf"},
	}
	cfg.Destinations = []config.Destination{
		{Number: "+15552223333", Carrier: "AT&T"},
	}
	return probe.NewEngine(cfg, &stubProvider{sent: sent})
}

func TestWebhookHandlerRejectsBadJSON(t *testing.T) {
	h := NewWebhookHandler(testEngine(nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandlerAcceptsUnmatchedEvents(t *testing.T) {
	h := NewWebhookHandler(testEngine(nil), nil)

	body := `[{"type":"message-delivered","message":{"id":"x","tag":"single_unknown"}}]`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestTestHandlerUnknownSource(t *testing.T) {
	h := NewTestHandler(testEngine(nil), nil)

	body := `{"source":"nope","destination":"+15552223333","message_type":"sms"}`
	req := httptest.NewRequest(http.MethodPost, "/tests", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestHandlerDelivered(t *testing.T) {
	sent := make(chan string, 1)
	engine := testEngine(sent)
	h := NewTestHandler(engine, nil)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		body := `{"source":"TF","destination":"+15552223333","message_type":"sms"}`
		req := httptest.NewRequest(http.MethodPost, "/tests", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Handle(rec, req)
		done <- rec
	}()

	var tag string
	select {
	case tag = <-sent:
	case <-time.After(time.Second):
		t.Fatal("send never reached the provider")
	}

	// Wait for the acknowledgment before injecting the delivery event.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got, ok := engine.Registry().Get(tag); ok && got.Status == "sent" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	engine.HandleEvents(context.Background(), []provider.Event{{
		Type:    provider.EventMessageDelivered,
		Time:    time.Now(),
		Message: provider.EventMessage{ID: "stub-" + tag, Tag: tag},
	}})

	rec := <-done
	require.Equal(t, http.StatusOK, rec.Code)

	var result report.TestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, report.OutcomeDelivered, result.Outcome)
}

func TestBatchHandlerStartAndPoll(t *testing.T) {
	sent := make(chan string, 4)
	engine := testEngine(sent)
	h := NewBatchHandler(engine, nil)

	req := httptest.NewRequest(http.MethodPost, "/batches", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.HandleStart(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started batchStartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.BatchID)

	pollReq := httptest.NewRequest(http.MethodGet, "/batches/"+started.BatchID, nil)
	pollReq.SetPathValue("id", started.BatchID)
	pollRec := httptest.NewRecorder()
	h.HandleStatus(pollRec, pollReq)
	require.Equal(t, http.StatusOK, pollRec.Code)

	var status report.BatchStatus
	require.NoError(t, json.Unmarshal(pollRec.Body.Bytes(), &status))
	assert.Equal(t, started.BatchID, status.BatchID)
	assert.False(t, status.Complete)
}

func TestBatchHandlerEmptyBodyUsesConfiguredMatrix(t *testing.T) {
	sent := make(chan string, 4)
	h := NewBatchHandler(testEngine(sent), nil)

	req := httptest.NewRequest(http.MethodPost, "/batches", strings.NewReader(""))
	rec := httptest.NewRecorder()
	h.HandleStart(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestBatchHandlerUnknownMessageType(t *testing.T) {
	h := NewBatchHandler(testEngine(make(chan string, 4)), nil)

	req := httptest.NewRequest(http.MethodPost, "/batches",
		strings.NewReader(`{"message_types":["fax"]}`))
	rec := httptest.NewRecorder()
	h.HandleStart(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(testEngine(nil))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "stub", resp.Provider)
	assert.Equal(t, 0, resp.PendingTests)
}
