package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMessages(t *testing.T) {
	stream := "event: connected\ndata: {}\n\n" +
		": ping\n\n" +
		"event: insert\ndata: {\"a\":1}\n\n" +
		"data: line one\ndata: line two\n\n"

	var got []message
	err := readMessages(strings.NewReader(stream), func(m message) bool {
		got = append(got, m)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []message{
		{Event: "connected", Data: "{}"},
		{Event: "insert", Data: `{"a":1}`},
		{Data: "line one\nline two"},
	}, got)
}

func TestSignInKeepsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"Email ou senha incorretos."}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.SignIn(context.Background(), "a@b.test", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Email ou senha incorretos.", apiErr.Message)

	require.NoError(t, c.SignIn(context.Background(), "a@b.test", "secret1"))
	assert.Equal(t, "tok", c.Token)
}

func TestNotificationsFetchAndMarkRead(t *testing.T) {
	var mu sync.Mutex
	var marked []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/notifications":
			assert.Equal(t, "20", r.URL.Query().Get("limit"))
			fmt.Fprint(w, `{"notifications":[{"id":"n1","title":"Oi","read":false,"created_at":"2025-03-01T12:00:00Z"}]}`)
		case "/notifications/read-all":
			var body struct {
				IDs []string `json:"ids"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			mu.Lock()
			marked = append(marked, body.IDs...)
			mu.Unlock()
			fmt.Fprint(w, `{"ids":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	n := New(srv.URL, "tok").Notifications()
	items, err := n.Fetch(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n1", items[0].ID)

	require.NoError(t, n.MarkRead(context.Background(), []string{"n1", "n2"}))
	require.NoError(t, n.MarkRead(context.Background(), nil))
	mu.Lock()
	assert.Equal(t, []string{"n1", "n2"}, marked)
	mu.Unlock()
}

func sseServer(t *testing.T, path string, events ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "event: connected\ndata: {}\n\n")
		flusher.Flush()
		for _, e := range events {
			fmt.Fprint(w, e)
			flusher.Flush()
		}
		fmt.Fprint(w, "event: close\ndata: {}\n\n")
		flusher.Flush()
	}))
}

func TestNotificationsSubscribe(t *testing.T) {
	srv := sseServer(t, "/notifications/stream",
		`event: insert`+"\n"+`data: {"table":"notifications","type":"INSERT","record":{"id":"n9","title":"Novo","created_at":"2025-03-01T12:00:00Z"}}`+"\n\n",
		`event: insert`+"\n"+`data: {"table":"project_activities","type":"INSERT","record":{"id":"a1"}}`+"\n\n",
		`event: insert`+"\n"+`data: not json`+"\n\n",
	)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := New(srv.URL, "tok").Notifications().Subscribe(ctx)
	require.NoError(t, err)

	var ids []string
	for n := range events {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"n9"}, ids, "foreign tables and bad payloads are skipped; close ends the channel")
}

func TestSubscribeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"project not found"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok").Activities("p1").Subscribe(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestTimelineOverHTTP(t *testing.T) {
	var once sync.Once
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dashboard/project/p1/activities":
			fmt.Fprint(w, `{"activities":[{"id":"a1","project_id":"p1","action":"created","created_at":"2025-03-01T12:00:00Z"}]}`)
		case "/dashboard/project/p1/activities/stream":
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			fmt.Fprint(w, "event: connected\ndata: {}\n\n")
			fmt.Fprint(w, "event: insert\ndata: {\"table\":\"project_activities\",\"type\":\"INSERT\",\"record\":{\"id\":\"a2\",\"project_id\":\"p1\",\"action\":\"status_changed\",\"created_at\":\"2025-03-01T13:00:00Z\"}}\n\n")
			flusher.Flush()
			select {
			case <-release:
			case <-r.Context().Done():
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	defer once.Do(func() { close(release) })

	tl := New(srv.URL, "tok").NewTimeline("p1")
	require.NoError(t, tl.Open(context.Background()))

	require.Eventually(t, func() bool { return len(tl.Items()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "a2", tl.Items()[0].ID)

	once.Do(func() { close(release) })
	tl.Close()
}

func TestTicketMessagesComeBackInThreadOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/dashboard/tickets/t1/messages":
			fmt.Fprint(w, `{"messages":[`+
				`{"id":"m3","message":"c","created_at":"2025-03-01T12:05:00Z"},`+
				`{"id":"m2","message":"b","created_at":"2025-03-01T12:00:00Z"},`+
				`{"id":"m1","message":"a","created_at":"2025-03-01T12:00:00Z"}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/dashboard/tickets/t1/messages":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"id":"m4","ticket_id":"t1","message":%q,"created_at":"2025-03-01T12:10:00Z"}`, body["message"])
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	msgs, err := c.TicketMessages(context.Background(), "t1")
	require.NoError(t, err)
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)

	posted, err := c.PostTicketMessage(context.Background(), "t1", "Pode enviar o logo?")
	require.NoError(t, err)
	assert.Equal(t, "m4", posted.ID)
	assert.Equal(t, "Pode enviar o logo?", posted.Message)
}
