package distance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geosensing/allocator/internal/domain"
)

func googleStub(t *testing.T, handler func(origins, destinations []string) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			http.Error(w, "missing key", http.StatusBadRequest)
			return
		}
		origins := strings.Split(r.URL.Query().Get("origins"), "|")
		destinations := strings.Split(r.URL.Query().Get("destinations"), "|")
		json.NewEncoder(w).Encode(handler(origins, destinations))
	}))
}

func googleOKResponse(origins, destinations []string) any {
	type elem struct {
		Status   string             `json:"status"`
		Distance map[string]float64 `json:"distance"`
		Duration map[string]float64 `json:"duration"`
	}
	rows := make([]map[string][]elem, len(origins))
	for i, o := range origins {
		elems := make([]elem, len(destinations))
		for j, d := range destinations {
			v := 0.0
			if o != d {
				v = float64((i+1)*100 + j)
			}
			elems[j] = elem{
				Status:   "OK",
				Distance: map[string]float64{"value": v},
				Duration: map[string]float64{"value": v / 10},
			}
		}
		rows[i] = map[string][]elem{"elements": elems}
	}
	return map[string]any{"status": "OK", "rows": rows}
}

func TestGoogleProviderMatrix(t *testing.T) {
	srv := googleStub(t, googleOKResponse)
	defer srv.Close()

	g, err := NewGoogleProvider("test-key", WithGoogleBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	points := pts([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0})
	m, err := g.Matrix(context.Background(), points, points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("matrix invalid: %v", err)
	}
	if m.Distances[0][1] == 0 {
		t.Fatalf("off-diagonal cell must carry the reported distance")
	}
	if m.Durations == nil {
		t.Fatalf("google matrices must carry durations")
	}
}

func TestGoogleProviderRequiresKey(t *testing.T) {
	_, err := NewGoogleProvider("   ")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Field != "api_key" {
		t.Fatalf("expected api_key field, got %q", verr.Field)
	}
}

func TestGoogleProviderElementFailureFailsCall(t *testing.T) {
	srv := googleStub(t, func(origins, destinations []string) any {
		rows := make([]map[string]any, len(origins))
		for i := range origins {
			elems := make([]map[string]any, len(destinations))
			for j := range destinations {
				elems[j] = map[string]any{"status": "NOT_FOUND"}
			}
			rows[i] = map[string]any{"elements": elems}
		}
		return map[string]any{"status": "OK", "rows": rows}
	})
	defer srv.Close()

	g, err := NewGoogleProvider("test-key", WithGoogleBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	points := pts([2]float64{0, 0}, [2]float64{1, 0})
	_, err = g.Matrix(context.Background(), points, points)
	var serr *domain.ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("expected service error, got %v", err)
	}
	if !serr.Permanent {
		t.Fatalf("unresolved element must be permanent: %v", serr)
	}
	if !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Fatalf("error should carry the element status, got %v", err)
	}
}

func TestGoogleProviderRequestDenied(t *testing.T) {
	srv := googleStub(t, func(origins, destinations []string) any {
		return map[string]any{"status": "REQUEST_DENIED", "error_message": "key expired"}
	})
	defer srv.Close()

	g, err := NewGoogleProvider("test-key", WithGoogleBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	points := pts([2]float64{0, 0}, [2]float64{1, 0})
	_, err = g.Matrix(context.Background(), points, points)
	var serr *domain.ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("expected service error, got %v", err)
	}
	if !serr.Permanent {
		t.Fatalf("REQUEST_DENIED must be permanent: %v", serr)
	}
}
