package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Key") != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("no key"))
			return
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing user agent")
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New("", 0)
	body, err := Get(context.Background(), c, srv.URL, http.Header{"X-Key": {"abc"}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}

	_, err = Get(context.Background(), c, srv.URL, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized || se.Body != "no key" {
		t.Errorf("err = %v, want 401 StatusError", err)
	}
}

func TestNew_Timeout(t *testing.T) {
	if c := New("http://proxy.local:8080", 0); c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}
}
