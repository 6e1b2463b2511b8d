package publish

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/bgnews/newsrelay/app/post"
	"github.com/bgnews/newsrelay/app/retry"
)

var fastPolicy = retry.Policy{
	MaxAttempts:  2,
	InitialDelay: time.Millisecond,
	MaxDelay:     2 * time.Millisecond,
	Multiplier:   2,
}

type graphStub struct {
	mu       sync.Mutex
	calls    map[string]int
	texts    []string
	statuses map[string][]int // per recipient, consumed in order; last one repeats
}

func (s *graphStub) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer page-token" {
			t.Errorf("Expected bearer token, got %q", got)
		}

		var body messageRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		id := body.Recipient.ID
		s.calls[id]++
		s.texts = append(s.texts, body.Message.Text)

		statuses := s.statuses[id]
		status := http.StatusOK
		if len(statuses) > 0 {
			idx := s.calls[id] - 1
			if idx >= len(statuses) {
				idx = len(statuses) - 1
			}
			status = statuses[idx]
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"recipient_id":"` + id + `","message_id":"m1"}`))
			return
		}
		w.Write([]byte(`{"error":{"message":"stub failure","code":10}}`))
	})
}

func (s *graphStub) callCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

func (s *graphStub) firstText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[0]
}

func newStub(t *testing.T, statuses map[string][]int) (*graphStub, *httptest.Server) {
	stub := &graphStub{calls: map[string]int{}, statuses: statuses}
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)
	return stub, server
}

var testItem = post.Item{SourceName: "Policja", Text: "Zatrzymani w Boguszowie", CanonicalURL: "https://x/1"}

func TestMessengerPublisher_AllRecipients(t *testing.T) {
	stub, server := newStub(t, nil)
	recipients := ParseRecipients([]string{"111:Rada", "222"})
	publisher := NewMessengerPublisher(server.URL, "page-token", recipients, DefaultCaptionOptions(), fastPolicy)

	if err := publisher.Publish(context.Background(), testItem); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := stub.callCount("111"); got != 1 {
		t.Errorf("Expected 1 call for 111, got %d", got)
	}
	if got := stub.callCount("222"); got != 1 {
		t.Errorf("Expected 1 call for 222, got %d", got)
	}
	if expected := Caption(testItem, DefaultCaptionOptions()); stub.firstText() != expected {
		t.Errorf("Expected caption %q, got %q", expected, stub.firstText())
	}
}

func TestMessengerPublisher_PartialSuccess(t *testing.T) {
	stub, server := newStub(t, map[string][]int{"111": {http.StatusBadRequest}})
	publisher := NewMessengerPublisher(server.URL, "page-token", ParseRecipients([]string{"111", "222"}), CaptionOptions{}, fastPolicy)

	if err := publisher.Publish(context.Background(), testItem); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := stub.callCount("111"); got != 1 {
		t.Errorf("Expected client error not to be retried, got %d calls", got)
	}
}

func TestMessengerPublisher_RetriesTransientFailure(t *testing.T) {
	stub, server := newStub(t, map[string][]int{"111": {http.StatusInternalServerError, http.StatusOK}})
	publisher := NewMessengerPublisher(server.URL, "page-token", ParseRecipients([]string{"111"}), CaptionOptions{}, fastPolicy)

	if err := publisher.Publish(context.Background(), testItem); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := stub.callCount("111"); got != 2 {
		t.Errorf("Expected 2 calls, got %d", got)
	}
}

func TestMessengerPublisher_NoRecipientAccepted(t *testing.T) {
	_, server := newStub(t, map[string][]int{"111": {http.StatusForbidden}, "222": {http.StatusServiceUnavailable}})
	publisher := NewMessengerPublisher(server.URL, "page-token", ParseRecipients([]string{"111", "222"}), CaptionOptions{}, fastPolicy)

	if err := publisher.Publish(context.Background(), testItem); !errors.Is(err, ErrNoRecipientAccepted) {
		t.Errorf("Expected ErrNoRecipientAccepted, got: %v", err)
	}
}

func TestMessengerPublisher_NoRecipients(t *testing.T) {
	publisher := NewMessengerPublisher("http://127.0.0.1:0", "page-token", nil, CaptionOptions{}, fastPolicy)

	if err := publisher.Publish(context.Background(), testItem); !errors.Is(err, ErrNoRecipientAccepted) {
		t.Errorf("Expected ErrNoRecipientAccepted, got: %v", err)
	}
}

func TestParseRecipients(t *testing.T) {
	recipients := ParseRecipients([]string{" 111:Rada Starszych ", "", "222"})
	expected := []Recipient{
		{ID: "111", Name: "Rada Starszych"},
		{ID: "222", Name: "222"},
	}

	if !reflect.DeepEqual(recipients, expected) {
		t.Errorf("Expected %+v, got %+v", expected, recipients)
	}
}

func TestLogPublisher(t *testing.T) {
	publisher := NewLogPublisher(DefaultCaptionOptions())
	if err := publisher.Publish(context.Background(), testItem); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := publisher.Publish(ctx, testItem); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
