package storefront_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"playtime/internal/services"
	"playtime/internal/storefront"
)

func newServer(t *testing.T, handler http.HandlerFunc) *storefront.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := storefront.New(server.URL, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestAppName(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("appids"); got != "211420" {
			t.Errorf("appids = %q", got)
		}
		_, _ = w.Write([]byte(`{"211420":{"success":true,"data":{"name":"DARK SOULS™: Prepare To Die Edition"}}}`))
	})

	name, err := client.AppName(context.Background(), 211420)
	if err != nil {
		t.Fatalf("AppName: %v", err)
	}
	if name != "DARK SOULS™: Prepare To Die Edition" {
		t.Fatalf("name = %q", name)
	}
}

func TestAppNameUnknownApp(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"999":{"success":false}}`))
	})

	_, err := client.AppName(context.Background(), 999)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAppNameUpstreamFailure(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.AppName(context.Background(), 211420)
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected upstream rejection, got %v", err)
	}
}

func TestAppNameMalformedBody(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := client.AppName(context.Background(), 211420)
	if !errors.Is(err, services.ErrMalformed) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := storefront.New("  ", nil); err == nil {
		t.Fatal("expected error for missing base url")
	}
}
