package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"prizewheel/internal/config"
	"prizewheel/internal/models"
	"prizewheel/internal/notify"
	"prizewheel/internal/otp"
	"prizewheel/internal/services"
	"prizewheel/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	l := logger.Init("handlers-test", false, false, io.Discard)
	code := m.Run()
	l.Close()
	os.Exit(code)
}

type fixture struct {
	router *gin.Engine
	store  *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg := config.Load()
	prizeService := services.NewPrizeService(s, notify.NewLogNotifier(), 3, 12)
	claimService := services.NewClaimService(s)
	registrationService := services.NewRegistrationService(s, otp.NewMockService(10*time.Minute))

	h := NewHTTPHandler(prizeService, claimService, registrationService, cfg)
	router := gin.New()
	h.RegisterRoutes(router)

	return &fixture{router: router, store: s}
}

func (f *fixture) addVerifiedAttendee(t *testing.T, id string) {
	t.Helper()

	a := &models.Attendee{ID: id, Name: "Attendee " + id, Email: id + "@example.com", Verified: true, CreatedAt: time.Now().UTC()}
	if err := f.store.CreateAttendee(context.Background(), a); err != nil {
		t.Fatalf("Failed to create attendee: %v", err)
	}
}

func (f *fixture) addPrize(t *testing.T, name string, stock int) *models.Prize {
	t.Helper()

	p := &models.Prize{Name: name, DisplayText: name, Weight: 1, Stock: stock, Color: "#ff0000", TextColor: "#ffffff"}
	if err := f.store.CreatePrize(context.Background(), p, -1, 12); err != nil {
		t.Fatalf("Failed to create prize: %v", err)
	}
	return p
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAllocatePrizeEndpoint(t *testing.T) {
	t.Run("successful spin", func(t *testing.T) {
		f := newFixture(t)
		prize := f.addPrize(t, "Mug", 3)
		f.addVerifiedAttendee(t, "a1")

		w := postJSON(t, f.router, "/allocate-prize", gin.H{"attendeeId": "a1"})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if got := w.Header().Get("Cache-Control"); got != "no-store" {
			t.Errorf("Expected Cache-Control no-store, got %q", got)
		}

		var result models.SpinResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if result.ID != prize.ID || result.Name != "Mug" || result.Color != "#ff0000" {
			t.Errorf("Unexpected spin result: %+v", result)
		}
	})

	t.Run("duplicate spin returns PRIZE_ALREADY_CLAIMED", func(t *testing.T) {
		f := newFixture(t)
		f.addPrize(t, "Mug", 3)
		f.addVerifiedAttendee(t, "a1")

		postJSON(t, f.router, "/allocate-prize", gin.H{"attendeeId": "a1"})
		w := postJSON(t, f.router, "/allocate-prize", gin.H{"attendeeId": "a1"})

		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "PRIZE_ALREADY_CLAIMED") {
			t.Errorf("Expected PRIZE_ALREADY_CLAIMED in body, got %s", w.Body.String())
		}
	})

	t.Run("empty pool returns NO_PRIZES_AVAILABLE", func(t *testing.T) {
		f := newFixture(t)
		f.addVerifiedAttendee(t, "a1")

		w := postJSON(t, f.router, "/allocate-prize", gin.H{"attendeeId": "a1"})
		if w.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "NO_PRIZES_AVAILABLE") {
			t.Errorf("Expected NO_PRIZES_AVAILABLE in body, got %s", w.Body.String())
		}
	})

	t.Run("unverified attendee is forbidden", func(t *testing.T) {
		f := newFixture(t)
		f.addPrize(t, "Mug", 1)
		a := &models.Attendee{ID: "a1", Name: "A", Email: "a@example.com", CreatedAt: time.Now().UTC()}
		if err := f.store.CreateAttendee(context.Background(), a); err != nil {
			t.Fatalf("CreateAttendee: %v", err)
		}

		w := postJSON(t, f.router, "/allocate-prize", gin.H{"attendeeId": "a1"})
		if w.Code != http.StatusForbidden {
			t.Fatalf("Expected 403, got %d", w.Code)
		}
	})

	t.Run("missing attendeeId is a bad request", func(t *testing.T) {
		f := newFixture(t)

		w := postJSON(t, f.router, "/allocate-prize", gin.H{})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", w.Code)
		}
	})
}

func TestNextClaimIDEndpoint(t *testing.T) {
	t.Run("allocates and repeats the same id", func(t *testing.T) {
		f := newFixture(t)
		f.addVerifiedAttendee(t, "a1")

		w := postJSON(t, f.router, "/next-claim-id", gin.H{"attendeeId": "a1"})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if got := w.Header().Get("Cache-Control"); got != "no-store" {
			t.Errorf("Expected Cache-Control no-store, got %q", got)
		}

		var first struct {
			ClaimID int64 `json:"claimId"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if first.ClaimID <= 0 {
			t.Errorf("Expected a positive claim id, got %d", first.ClaimID)
		}

		w = postJSON(t, f.router, "/next-claim-id", gin.H{"attendeeId": "a1"})
		var second struct {
			ClaimID int64 `json:"claimId"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if second.ClaimID != first.ClaimID {
			t.Errorf("Expected idempotent claim id %d, got %d", first.ClaimID, second.ClaimID)
		}
	})

	t.Run("unknown attendee", func(t *testing.T) {
		f := newFixture(t)

		w := postJSON(t, f.router, "/next-claim-id", gin.H{"attendeeId": "nope"})
		if w.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", w.Code)
		}
	})
}

func TestRegistrationEndpoints(t *testing.T) {
	f := newFixture(t)

	w := postJSON(t, f.router, "/attendees", gin.H{"name": "Alice", "email": "alice@example.com"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var attendee models.Attendee
	if err := json.Unmarshal(w.Body.Bytes(), &attendee); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if attendee.ID == "" || attendee.Verified {
		t.Errorf("Expected a fresh unverified attendee, got %+v", attendee)
	}

	// Wrong code is rejected; the mock service logged the real one.
	w = postJSON(t, f.router, "/attendees/"+attendee.ID+"/verify", gin.H{"code": "000000"})
	if w.Code != http.StatusBadRequest && w.Code != http.StatusOK {
		t.Fatalf("Expected 400 (or a lucky 200), got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/attendees/"+attendee.ID, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from GET attendee, got %d", rec.Code)
	}
}

func TestPrizeEndpoints(t *testing.T) {
	f := newFixture(t)

	w := postJSON(t, f.router, "/prizes", gin.H{
		"name": "Mug", "displayText": "A mug!", "weight": 5, "stock": 10,
		"color": "#00ff00", "textColor": "#000000",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest("GET", "/prizes", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from GET prizes, got %d", rec.Code)
	}

	var prizes []models.Prize
	if err := json.Unmarshal(rec.Body.Bytes(), &prizes); err != nil {
		t.Fatalf("Failed to decode prize list: %v", err)
	}
	if len(prizes) != 1 || prizes[0].Stock != 10 || prizes[0].Weight != 5 {
		t.Errorf("Unexpected prize list: %+v", prizes)
	}
}

func TestExportAwardsCSV(t *testing.T) {
	f := newFixture(t)
	f.addPrize(t, "Mug", 1)
	f.addVerifiedAttendee(t, "a1")
	postJSON(t, f.router, "/allocate-prize", gin.H{"attendeeId": "a1"})

	req := httptest.NewRequest("GET", "/export-awards-csv", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Errorf("Expected text/csv content type, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), "Mug") {
		t.Errorf("Expected awarded prize in CSV, got %s", rec.Body.String())
	}
}
