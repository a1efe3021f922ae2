package nominatim_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samirrijal/placesweep/internal/adapters/nominatim"
	"github.com/samirrijal/placesweep/internal/core/ports"
)

func TestGeocoder_BoundsFor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("format") != "json" || q.Get("limit") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("city") != "Bilbao" {
			t.Errorf("expected city Bilbao, got %s", q.Get("city"))
		}
		if r.Header.Get("User-Agent") != "placesweep-test/1.0" {
			t.Errorf("expected identifying user agent, got %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"display_name":"Bilbao, Biscay","boundingbox":["43.2","43.4","-2.99","-2.8"]}]`))
	}))
	defer srv.Close()

	g := nominatim.New(nominatim.Config{BaseURL: srv.URL, UserAgent: "placesweep-test/1.0"})
	region, err := g.BoundsFor(context.Background(), "Bilbao")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// boundingbox arrives ordered south, north, west, east
	if region.South != 43.2 || region.North != 43.4 || region.West != -2.99 || region.East != -2.8 {
		t.Errorf("unexpected region: %+v", region)
	}
}

func TestGeocoder_BoundsFor_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := nominatim.New(nominatim.Config{BaseURL: srv.URL, UserAgent: "test"})
	_, err := g.BoundsFor(context.Background(), "Atlantis")
	if !errors.Is(err, ports.ErrGeocodeNotFound) {
		t.Fatalf("expected ErrGeocodeNotFound, got %v", err)
	}
}

func TestGeocoder_BoundsFor_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := nominatim.New(nominatim.Config{BaseURL: srv.URL, UserAgent: "test"})
	_, err := g.BoundsFor(context.Background(), "Bilbao")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ports.ErrGeocodeNotFound) {
		t.Error("an upstream failure is not a missing place")
	}
}

func TestGeocoder_BoundsFor_MalformedBoundingBox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"display_name":"x","boundingbox":["43.2","43.4","-2.99"]}]`))
	}))
	defer srv.Close()

	g := nominatim.New(nominatim.Config{BaseURL: srv.URL, UserAgent: "test"})
	if _, err := g.BoundsFor(context.Background(), "Bilbao"); err == nil {
		t.Fatal("expected error for short boundingbox")
	}
}

func TestGeocoder_BoundsFor_InvertedBoundingBox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"display_name":"x","boundingbox":["43.4","43.2","-2.8","-2.99"]}]`))
	}))
	defer srv.Close()

	g := nominatim.New(nominatim.Config{BaseURL: srv.URL, UserAgent: "test"})
	if _, err := g.BoundsFor(context.Background(), "Bilbao"); err == nil {
		t.Fatal("expected error for inverted boundingbox")
	}
}
