package aggregator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opal-project/opalrunner/internal/partial"
)

func TestPostSuccess(t *testing.T) {
	var received payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Post(partial.Partial{"a": 1.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.Update["a"] != 1.5 {
		t.Errorf("expected server to receive a=1.5, got %+v", received.Update)
	}
}

func TestPostNon200ReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Post(partial.Partial{"a": 1})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	aggErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if aggErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", aggErr.StatusCode)
	}
}

func TestPostTransportFailure(t *testing.T) {
	c := New("http://127.0.0.1:1")
	err := c.Post(partial.Partial{"a": 1})
	if err == nil {
		t.Fatal("expected transport error for unreachable server")
	}
}
