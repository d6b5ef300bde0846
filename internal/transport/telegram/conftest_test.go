package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
	"github.com/kailas-cloud/limitwatch/internal/usecase/conversation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

const testToken = "123:secret"

type apiCall struct {
	method string
	params map[string]any
}

// fakeAPI is an in-process Bot API.
type fakeAPI struct {
	mu       sync.Mutex
	calls    []apiCall
	batches  [][]Update
	failures map[string][]int // queued HTTP error codes per method
	nextID   int64
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{failures: map[string][]int{}, nextID: 100}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, NewClient(srv.Client(), srv.URL, testToken)
}

func (f *fakeAPI) queue(batch ...Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
}

func (f *fakeAPI) fail(method string, codes ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = append(f.failures[method], codes...)
}

func (f *fakeAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		if c.method != "getUpdates" {
			out = append(out, c.method)
		}
	}
	return out
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if path.Dir(r.URL.Path) != "/bot"+testToken {
		http.NotFound(w, r)
		return
	}
	method := path.Base(r.URL.Path)
	params := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&params)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, params: params})
	var failCode int
	if codes := f.failures[method]; len(codes) > 0 {
		failCode, f.failures[method] = codes[0], codes[1:]
	}
	var batch []Update
	hasBatch := false
	if method == "getUpdates" && len(f.batches) > 0 {
		batch, f.batches, hasBatch = f.batches[0], f.batches[1:], true
	}
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failCode != 0 {
		w.WriteHeader(failCode)
		_, _ = fmt.Fprintf(w, `{"ok":false,"error_code":%d,"description":"failure %d"}`, failCode, failCode)
		return
	}

	var result any = true
	switch method {
	case "getUpdates":
		if !hasBatch {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(20 * time.Millisecond):
			}
			batch = []Update{}
		}
		result = batch
	case "getMe":
		result = User{ID: 1, IsBot: true, FirstName: "limitwatch", Username: "limitwatch_bot"}
	case "sendMessage":
		chatID, _ := params["chat_id"].(float64)
		result = Message{MessageID: id, Chat: &Chat{ID: int64(chatID), Type: "private"}}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

// stubConversation records events and returns canned responses.
type stubConversation struct {
	mu        sync.Mutex
	events    []string
	responses map[string]conversation.Response
}

func newStubConversation() *stubConversation {
	return &stubConversation{responses: map[string]conversation.Response{}}
}

func (s *stubConversation) record(event string) conversation.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.responses[event]
}

func (s *stubConversation) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *stubConversation) Start(_ context.Context, userID int64) conversation.Response {
	return s.record(fmt.Sprintf("start:%d", userID))
}

func (s *stubConversation) SelectProject(_ context.Context, userID int64, projectID string) conversation.Response {
	return s.record(fmt.Sprintf("select:%d:%s", userID, projectID))
}

func (s *stubConversation) Status(_ context.Context, userID int64) conversation.Response {
	return s.record(fmt.Sprintf("status:%d", userID))
}

func (s *stubConversation) SetLimit(_ context.Context, userID int64) conversation.Response {
	return s.record(fmt.Sprintf("setlimit:%d", userID))
}

func (s *stubConversation) AddLimit(_ context.Context, userID int64) conversation.Response {
	return s.record(fmt.Sprintf("add:%d", userID))
}

func (s *stubConversation) Help(_ context.Context, userID int64) conversation.Response {
	return s.record(fmt.Sprintf("help:%d", userID))
}

func (s *stubConversation) Cancel(_ context.Context, userID int64) conversation.Response {
	return s.record(fmt.Sprintf("cancel:%d", userID))
}

func (s *stubConversation) Text(_ context.Context, userID int64, text string) conversation.Response {
	return s.record(fmt.Sprintf("text:%d:%s", userID, text))
}

func (s *stubConversation) QuickPick(_ context.Context, userID int64, mode domquota.Mode, value int64) conversation.Response {
	return s.record(fmt.Sprintf("quick:%d:%s:%d", userID, mode, value))
}

func textUpdate(updateID, userID int64, text string) Update {
	return Update{
		UpdateID: updateID,
		Message: &Message{
			MessageID: updateID,
			From:      &User{ID: userID},
			Chat:      &Chat{ID: userID, Type: "private"},
			Text:      text,
		},
	}
}

func callbackUpdate(updateID, userID, messageID int64, data string) Update {
	return Update{
		UpdateID: updateID,
		CallbackQuery: &CallbackQuery{
			ID:      fmt.Sprintf("q%d", updateID),
			From:    User{ID: userID},
			Message: &Message{MessageID: messageID, Chat: &Chat{ID: userID, Type: "private"}},
			Data:    data,
		},
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
