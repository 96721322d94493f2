package metering

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordingSink struct {
	events []string
	err    error
}

func (s *recordingSink) Charge(ctx context.Context, eventName string) error {
	s.events = append(s.events, eventName)
	return s.err
}

func TestCharger_SuccessAndFailure(t *testing.T) {
	sink := &recordingSink{}
	charger := NewCharger(sink, nil)

	if !charger.Charge(context.Background(), "run_started") {
		t.Fatal("expected successful charge to report true")
	}

	sink.err = errors.New("billing backend unavailable")
	if charger.Charge(context.Background(), "clip_processed") {
		t.Fatal("expected failed charge to report false, not error")
	}

	if len(sink.events) != 2 {
		t.Fatalf("sink saw %d events, want 2", len(sink.events))
	}
}

func TestHTTPSink_PostsEvent(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL)
	if err := sink.Charge(context.Background(), "clip_processed_480p"); err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if gotBody != `{"event_name":"clip_processed_480p"}` {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestHTTPSink_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	if err := NewHTTPSink(server.URL).Charge(context.Background(), "clip_processed"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
