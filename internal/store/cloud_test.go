package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/driftworks/tacklebox/internal/types"
)

type staticSession struct {
	token string
	err   error
}

func (s staticSession) Token(ctx context.Context) (string, error) {
	return s.token, s.err
}

func newTestCloud(t *testing.T, handler http.HandlerFunc) *Cloud {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCloud(srv.URL, staticSession{token: "session-token"})
}

func TestCloud_ListNormalizesFields(t *testing.T) {
	c := newTestCloud(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/lures" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer session-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"id": "a297bd35-6d9a-42b0-bfd1-5f5a8a9c2f64",
			"lure_type": "Spinnerbait",
			"confidence": 87,
			"image_url": "https://cdn.example.com/lure.jpg",
			"lure_details": {"colors": ["chartreuse"]},
			"is_favorite": true,
			"catch_count": 99,
			"catches": [{
				"id": "5f0c9f3e-71f2-4f6e-9a93-0d3274c8c9f1",
				"lure_analysis_id": "a297bd35-6d9a-42b0-bfd1-5f5a8a9c2f64",
				"fish_species": "Northern Pike",
				"weight": 3.5,
				"weight_unit": "lbs",
				"latitude": 46.5,
				"longitude": -92.1,
				"image_url": "https://cdn.example.com/catch.jpg",
				"catch_date": "2024-04-30T18:16:52Z"
			}],
			"created_at": "2024-04-29T10:00:00Z"
		}]`))
	})

	lures, err := c.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(lures) != 1 {
		t.Fatalf("got %d lures", len(lures))
	}

	rec := lures[0]
	if rec.ImageURI != "https://cdn.example.com/lure.jpg" {
		t.Errorf("ImageURI = %q", rec.ImageURI)
	}
	if rec.LureType != "Spinnerbait" || rec.Confidence != 87 || !rec.IsFavorite {
		t.Errorf("lure fields = %+v", rec)
	}
	// Count is derived from the embedded list, not trusted from the wire.
	if rec.CatchCount != 1 {
		t.Errorf("CatchCount = %d, want 1", rec.CatchCount)
	}

	caught := rec.Catches[0]
	if caught.Weight == nil || caught.Weight.Value != 3.5 || caught.Weight.Unit != types.WeightPounds {
		t.Errorf("Weight = %+v", caught.Weight)
	}
	if caught.Coordinate == nil || caught.Coordinate.Latitude != 46.5 {
		t.Errorf("Coordinate = %+v", caught.Coordinate)
	}
	if caught.FishSpecies != "Northern Pike" {
		t.Errorf("FishSpecies = %q", caught.FishSpecies)
	}
}

func TestCloud_SavePayloadUsesRemoteNames(t *testing.T) {
	var body map[string]any
	c := newTestCloud(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "a297bd35-6d9a-42b0-bfd1-5f5a8a9c2f64", "lure_type": "Jig", "image_url": "x", "catches": [], "created_at": "2024-04-29T10:00:00Z"}`))
	})

	rec, err := c.Save(context.Background(), types.NewLure{
		ImageURI:   "file:///photo.jpg",
		LureType:   "Jig",
		Confidence: 75,
	})
	if err != nil {
		t.Fatal(err)
	}

	if body["image_url"] != "file:///photo.jpg" {
		t.Errorf("image_url = %v", body["image_url"])
	}
	if body["lure_type"] != "Jig" {
		t.Errorf("lure_type = %v", body["lure_type"])
	}
	if types.ClassifyID(rec.ID) != types.OriginCloud {
		t.Errorf("server id %q classified local", rec.ID)
	}
}

func TestCloud_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuth},
		{"forbidden", http.StatusForbidden, ErrAuth},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"bad request", http.StatusBadRequest, ErrValidation},
		{"unprocessable", http.StatusUnprocessableEntity, ErrValidation},
		{"server error", http.StatusInternalServerError, ErrTransient},
		{"bad gateway", http.StatusBadGateway, ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCloud(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.List(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("List with %d = %v, want %v", tt.status, err, tt.want)
			}
		})
	}
}

func TestCloud_NoSessionIsAuthError(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewCloud(srv.URL, staticSession{token: ""})
	_, err := c.List(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Errorf("List without session = %v, want ErrAuth", err)
	}
	if called {
		t.Error("request was sent without a session")
	}
}

func TestCloud_NetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewCloud(srv.URL, staticSession{token: "session-token"})
	_, err := c.List(context.Background())
	if !errors.Is(err, ErrTransient) {
		t.Errorf("List against dead server = %v, want ErrTransient", err)
	}
}

func TestCloud_ToggleFavoriteIsGetThenPatch(t *testing.T) {
	var patched map[string]any
	c := newTestCloud(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"id": "a297bd35-6d9a-42b0-bfd1-5f5a8a9c2f64", "is_favorite": false, "image_url": "x", "catches": [], "created_at": "2024-04-29T10:00:00Z"}`))
		case http.MethodPatch:
			if err := json.NewDecoder(r.Body).Decode(&patched); err != nil {
				t.Fatal(err)
			}
			w.Write([]byte(`{"id": "a297bd35-6d9a-42b0-bfd1-5f5a8a9c2f64", "is_favorite": true, "image_url": "x", "catches": [], "created_at": "2024-04-29T10:00:00Z"}`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	rec, err := c.ToggleFavorite(context.Background(), "a297bd35-6d9a-42b0-bfd1-5f5a8a9c2f64")
	if err != nil {
		t.Fatal(err)
	}
	if patched["is_favorite"] != true {
		t.Errorf("patch payload = %v", patched)
	}
	if !rec.IsFavorite {
		t.Error("toggle result not favorite")
	}
}

func TestCloud_CatchesWithLocation(t *testing.T) {
	c := newTestCloud(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/catches/locations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"id": "5f0c9f3e-71f2-4f6e-9a93-0d3274c8c9f1",
			"lure_analysis_id": "a297bd35-6d9a-42b0-bfd1-5f5a8a9c2f64",
			"fish_species": "Smallmouth Bass",
			"latitude": 44.98,
			"longitude": -93.27,
			"image_url": "https://cdn.example.com/catch.jpg",
			"catch_date": "2024-05-12T07:40:00Z"
		}]`))
	})

	catches, err := c.CatchesWithLocation(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(catches) != 1 {
		t.Fatalf("got %d catches", len(catches))
	}
	got := catches[0]
	if got.FishSpecies != "Smallmouth Bass" || got.ImageURI != "https://cdn.example.com/catch.jpg" {
		t.Errorf("catch = %+v", got)
	}
	if got.Coordinate == nil || got.Coordinate.Latitude != 44.98 || got.Coordinate.Longitude != -93.27 {
		t.Errorf("Coordinate = %+v", got.Coordinate)
	}
	if got.LureID != "a297bd35-6d9a-42b0-bfd1-5f5a8a9c2f64" {
		t.Errorf("LureID = %q", got.LureID)
	}
}

func TestCloud_UsageAndSubscription(t *testing.T) {
	c := newTestCloud(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v1/quota" && r.Method == http.MethodGet:
			w.Write([]byte(`{"used": 7}`))
		case r.URL.Path == "/api/v1/quota/usage" && r.Method == http.MethodPost:
			w.Write([]byte(`{"used": 8}`))
		case r.URL.Path == "/api/v1/subscription" && r.Method == http.MethodGet:
			w.Write([]byte(`{"is_pro": true, "subscription_type": "lifetime", "product_identifier": "fishing_lure_lifetime", "will_renew": false}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	used, err := c.UsageCount(ctx)
	if err != nil || used != 7 {
		t.Errorf("UsageCount = %d, %v", used, err)
	}

	used, err = c.IncrementUsage(ctx)
	if err != nil || used != 8 {
		t.Errorf("IncrementUsage = %d, %v", used, err)
	}

	ent, err := c.Subscription(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ent.Tier != types.TierUnlimited {
		t.Errorf("Tier = %s, want unlimited", ent.Tier)
	}
	if ent.ProductID != "fishing_lure_lifetime" {
		t.Errorf("ProductID = %s", ent.ProductID)
	}
}

func TestCloud_RequestTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	c := newTestCloud(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	c.client.Timeout = 50 * time.Millisecond

	_, err := c.List(context.Background())
	if !errors.Is(err, ErrTransient) {
		t.Errorf("timed-out List = %v, want ErrTransient", err)
	}
}
