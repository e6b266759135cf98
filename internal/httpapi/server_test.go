package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spigell/navihire/internal/assistant"
	"github.com/spigell/navihire/internal/flights"
	"github.com/spigell/navihire/internal/metrics"
	"github.com/spigell/navihire/internal/session"
	"github.com/spigell/navihire/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssistant struct {
	mu       sync.Mutex
	requests []assistant.Request
	err      error
	history  map[string][]workflow.Message
	resets   []string
	delay    time.Duration
}

func (f *fakeAssistant) Handle(ctx context.Context, req assistant.Request) (*assistant.Reply, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, assistant.ErrEmptyMessage
	}
	id := req.SessionID
	if id == "" {
		id = "generated"
	}
	return &assistant.Reply{
		SessionID:    id,
		Message:      "echo: " + req.Message,
		Agent:        "resume_analysis",
		TaskProgress: map[string]workflow.Progress{"resume_analysis": {Status: workflow.StatusNoResumes}},
	}, nil
}

func (f *fakeAssistant) History(ctx context.Context, id string) ([]workflow.Message, error) {
	msgs, ok := f.history[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return msgs, nil
}

func (f *fakeAssistant) Reset(ctx context.Context, id string) error {
	f.resets = append(f.resets, id)
	return nil
}

func (f *fakeAssistant) recorded() []assistant.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]assistant.Request(nil), f.requests...)
}

func newTestServer(t *testing.T, a Assistant, opts ...Option) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(a, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestChat(t *testing.T) {
	fake := &fakeAssistant{}
	srv := newTestServer(t, fake)

	resp := postJSON(t, srv.URL+"/api/v1/chat", map[string]any{
		"session_id":      "s1",
		"message":         "analyze resumes",
		"job_description": map[string]any{"title": "Engineer"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply assistant.Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, "s1", reply.SessionID)
	assert.Equal(t, "echo: analyze resumes", reply.Message)
	assert.Equal(t, workflow.StatusNoResumes, reply.TaskProgress["resume_analysis"].Status)

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Engineer", reqs[0].JobDescription["title"])
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
	}{
		{name: "bad json", body: "{", status: http.StatusBadRequest},
		{name: "empty message", body: `{"message": " "}`, status: http.StatusBadRequest},
		{name: "timeout", err: context.DeadlineExceeded, body: `{"message": "hi"}`, status: http.StatusGatewayTimeout},
		{name: "internal", err: assert.AnError, body: `{"message": "hi"}`, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeAssistant{err: tt.err})
			resp, err := http.Post(srv.URL+"/api/v1/chat", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestSessions(t *testing.T) {
	fake := &fakeAssistant{history: map[string][]workflow.Message{
		"s1": {{Role: workflow.RoleUser, Content: "hi"}, {Role: workflow.RoleAssistant, Content: "hello"}},
	}}
	srv := newTestServer(t, fake)

	resp, err := http.Get(srv.URL + "/api/v1/sessions/s1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Messages []workflow.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Messages, 2)

	missing, err := http.Get(srv.URL + "/api/v1/sessions/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/sessions/s1", nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)
	assert.Equal(t, []string{"s1"}, fake.resets)
}

func TestUploadResumes(t *testing.T) {
	fake := &fakeAssistant{}
	srv := newTestServer(t, fake)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range map[string]string{"jane.txt": "Jane Doe\npython", "photo.png": "binary"} {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("session_id", "s9"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/resumes/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "s9", reqs[0].SessionID)
	require.Len(t, reqs[0].Resumes, 1)
	assert.Equal(t, "jane.txt", reqs[0].Resumes[0].Filename)
	assert.Contains(t, reqs[0].Message, "jane.txt")
}

func TestUploadResumesRejectsUnsupported(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "photo.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("binary"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/resumes/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchFlights(t *testing.T) {
	catalog, err := flights.DefaultCatalog()
	require.NoError(t, err)
	srv := newTestServer(t, &fakeAssistant{}, WithFlights(catalog))

	resp := postJSON(t, srv.URL+"/api/v1/flights/search", map[string]string{"origin": "Delhi", "destination": "Mumbai", "date": "2026-06-01"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Flights    []flights.Flight `json:"flights"`
		TotalFound int              `json:"total_found"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotZero(t, body.TotalFound)
	assert.Len(t, body.Flights, body.TotalFound)

	missing := postJSON(t, srv.URL+"/api/v1/flights/search", map[string]string{"origin": "Delhi"})
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestFlightSearchDisabled(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{})
	resp := postJSON(t, srv.URL+"/api/v1/flights/search", map[string]string{"origin": "Delhi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg).ObserveRun("direct_response", 0.3)
	srv := newTestServer(t, &fakeAssistant{}, WithMetrics(reg))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `navihire_workflow_runs_total{route="direct_response"} 1`)
}

func TestChatWebSocket(t *testing.T) {
	fake := &fakeAssistant{}
	srv := newTestServer(t, fake)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/u42"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var welcome frame
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "message", welcome.Type)
	assert.Equal(t, systemAgent, welcome.Agent)

	require.NoError(t, conn.WriteJSON(inbound{Type: "ping"}))
	var pong frame
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong.Type)

	// Blank messages get no answer; the next frame belongs to the real one.
	require.NoError(t, conn.WriteJSON(inbound{Message: "   "}))
	require.NoError(t, conn.WriteJSON(inbound{Message: "first"}))

	var typing, reply frame
	require.NoError(t, conn.ReadJSON(&typing))
	assert.Equal(t, "typing", typing.Type)
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, "echo: first", reply.Content)
	assert.Equal(t, "resume_analysis", reply.Agent)
	assert.Equal(t, "generated", reply.SessionID)
	assert.Equal(t, workflow.StatusNoResumes, reply.TaskProgress["resume_analysis"].Status)

	require.NoError(t, conn.WriteJSON(inbound{Message: "second"}))
	require.NoError(t, conn.ReadJSON(&typing))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "echo: second", reply.Content)

	reqs := fake.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "u42", reqs[0].UserID)
	assert.Equal(t, "", reqs[0].SessionID)
	assert.Equal(t, "generated", reqs[1].SessionID)
}

func TestChatWebSocketSurvivesSlowTurns(t *testing.T) {
	fake := &fakeAssistant{delay: 300 * time.Millisecond}
	server := NewServer(fake)
	server.pongWait = 200 * time.Millisecond
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/u7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var welcome frame
	require.NoError(t, conn.ReadJSON(&welcome))

	// Each turn outlasts the idle window; the connection must stay usable.
	for _, msg := range []string{"first", "second"} {
		require.NoError(t, conn.WriteJSON(inbound{Message: msg}))

		var typing, reply frame
		require.NoError(t, conn.ReadJSON(&typing))
		assert.Equal(t, "typing", typing.Type)
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, "echo: "+msg, reply.Content)
	}
}
