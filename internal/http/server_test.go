package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tripledger/internal/advisor/static"
	"tripledger/internal/core"
	"tripledger/internal/ledger"
	"tripledger/internal/services"
	"tripledger/internal/settle"
)

// nullStore satisfies services.TripStore without touching disk.
type nullStore struct{}

func (nullStore) ListTrips(context.Context) ([]core.Trip, error)     { return nil, nil }
func (nullStore) SaveTrip(context.Context, core.Trip) error          { return nil }
func (nullStore) DeleteTrip(context.Context, string) error           { return nil }
func (nullStore) LoadProfile(context.Context) (core.UserProfile, error) {
	return core.UserProfile{Name: "旅人", Avatar: "🦊"}, nil
}
func (nullStore) SaveProfile(context.Context, core.UserProfile) error { return nil }
func (nullStore) LoadLastCurrency(context.Context) (core.Currency, error) {
	return core.BaseCurrency, nil
}
func (nullStore) SaveLastCurrency(context.Context, core.Currency) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	adv := static.New()
	svc, err := services.NewTripService(context.Background(), nullStore{}, adv, adv, nil, 64, time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	srv := NewServer(":0", svc)
	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func createTestTrip(t *testing.T, ts *httptest.Server) core.Trip {
	t.Helper()
	var trip core.Trip
	resp := doJSON(t, ts, http.MethodPost, "/api/trips", map[string]string{
		"name": "Tokyo", "location": "Tokyo",
		"startDate": "2025-04-01", "endDate": "2025-04-03",
		"icon": "Plane",
	}, &trip)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create trip: status %d", resp.StatusCode)
	}
	return trip
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func TestTripLifecycle(t *testing.T) {
	ts := newTestServer(t)
	trip := createTestTrip(t, ts)

	if len(trip.Members) != 1 || trip.Members[0].ID != core.MemberMe {
		t.Fatalf("expected seeded me member, got %+v", trip.Members)
	}

	var fetched core.Trip
	resp := doJSON(t, ts, http.MethodGet, "/api/trips/"+trip.ID, nil, &fetched)
	if resp.StatusCode != http.StatusOK || fetched.ID != trip.ID {
		t.Fatalf("get trip: status %d, id %s", resp.StatusCode, fetched.ID)
	}

	var updated core.Trip
	resp = doJSON(t, ts, http.MethodPut, "/api/trips/"+trip.ID, map[string]string{
		"name": "Osaka", "location": "Osaka",
		"startDate": "2025-04-01", "endDate": "2025-04-05",
		"icon": "Train",
	}, &updated)
	if resp.StatusCode != http.StatusOK || updated.Name != "Osaka" {
		t.Fatalf("update trip: status %d, name %s", resp.StatusCode, updated.Name)
	}

	var dates []string
	doJSON(t, ts, http.MethodGet, "/api/trips/"+trip.ID+"/dates", nil, &dates)
	if len(dates) != 5 || dates[0] != "2025-04-01" || dates[4] != "2025-04-05" {
		t.Fatalf("unexpected date range: %v", dates)
	}

	resp = doJSON(t, ts, http.MethodDelete, "/api/trips/"+trip.ID, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete trip: status %d", resp.StatusCode)
	}
	resp = doJSON(t, ts, http.MethodGet, "/api/trips/"+trip.ID, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted trip must be 404, got %d", resp.StatusCode)
	}
}

func TestUnknownTripIs404(t *testing.T) {
	ts := newTestServer(t)
	for _, route := range []string{
		"/api/trips/ghost",
		"/api/trips/ghost/dates",
		"/api/trips/ghost/expenses/grouped",
		"/api/trips/ghost/settlement",
		"/api/trips/ghost/weather?date=2025-04-01",
	} {
		resp := doJSON(t, ts, http.MethodGet, route, nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", route, resp.StatusCode)
		}
	}
}

func TestActivityRoutesKeepTimeOrder(t *testing.T) {
	ts := newTestServer(t)
	trip := createTestTrip(t, ts)

	var after core.Trip
	resp := doJSON(t, ts, http.MethodPost, "/api/trips/"+trip.ID+"/activities", map[string]string{
		"date": "2025-04-01", "name": "Dinner", "startTime": "19:00", "icon": "Utensils",
	}, &after)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add activity: status %d", resp.StatusCode)
	}
	doJSON(t, ts, http.MethodPost, "/api/trips/"+trip.ID+"/activities", map[string]string{
		"date": "2025-04-01", "name": "Museum", "startTime": "09:30", "icon": "Landmark",
	}, &after)

	day := after.Itinerary["2025-04-01"]
	if len(day) != 2 || day[0].Name != "Museum" || day[1].Name != "Dinner" {
		t.Fatalf("expected time order Museum,Dinner: %+v", day)
	}

	// Invalid start time rejects with 422.
	resp = doJSON(t, ts, http.MethodPost, "/api/trips/"+trip.ID+"/activities", map[string]string{
		"date": "2025-04-01", "name": "Late", "startTime": "25:00",
	}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid time, got %d", resp.StatusCode)
	}

	// Reorder is verbatim.
	doJSON(t, ts, http.MethodPut, "/api/trips/"+trip.ID+"/activities:reorder", map[string]any{
		"date":       "2025-04-01",
		"orderedIds": []string{day[1].ID, day[0].ID},
	}, &after)
	day = after.Itinerary["2025-04-01"]
	if day[0].Name != "Dinner" || day[1].Name != "Museum" {
		t.Fatalf("reorder not applied: %+v", day)
	}

	// Delete one, by id and date.
	doJSON(t, ts, http.MethodDelete,
		"/api/trips/"+trip.ID+"/activities/"+day[0].ID+"?date=2025-04-01", nil, &after)
	if len(after.Itinerary["2025-04-01"]) != 1 {
		t.Fatalf("expected one activity left: %+v", after.Itinerary["2025-04-01"])
	}
}

func TestExpenseRoutes(t *testing.T) {
	ts := newTestServer(t)
	trip := createTestTrip(t, ts)

	var after core.Trip
	doJSON(t, ts, http.MethodPost, "/api/trips/"+trip.ID+"/members",
		map[string]string{"name": "Bob", "avatar": "🐱"}, &after)
	bob := after.Members[1].ID

	resp := doJSON(t, ts, http.MethodPost, "/api/trips/"+trip.ID+"/expenses", map[string]any{
		"item": "sushi dinner", "amount": 3000.0, "currency": "JPY",
		"payerId": core.MemberMe, "selected": []string{core.MemberMe, bob},
	}, &after)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add expense: status %d", resp.StatusCode)
	}
	exp := after.Expenses[0]
	if exp.SplitDetails[core.MemberMe] != 1500 || exp.SplitDetails[bob] != 1500 {
		t.Fatalf("unexpected split: %+v", exp.SplitDetails)
	}

	// Unknown currency rejects with 422 before any write.
	resp = doJSON(t, ts, http.MethodPost, "/api/trips/"+trip.ID+"/expenses", map[string]any{
		"item": "x", "amount": 10.0, "currency": "GBP", "payerId": core.MemberMe,
	}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown currency, got %d", resp.StatusCode)
	}

	var groups []ledger.DateGroup
	doJSON(t, ts, http.MethodGet, "/api/trips/"+trip.ID+"/expenses/grouped", nil, &groups)
	if len(groups) != 1 || len(groups[0].Expenses) != 1 {
		t.Fatalf("unexpected grouping: %+v", groups)
	}

	var stats ledger.Stats
	doJSON(t, ts, http.MethodGet, "/api/trips/"+trip.ID+"/expenses/stats?currency=TWD", nil, &stats)
	if stats.Total != 630 {
		t.Fatalf("expected total 630 TWD, got %v", stats.Total)
	}

	var transfers []settle.Transfer
	doJSON(t, ts, http.MethodGet, "/api/trips/"+trip.ID+"/settlement", nil, &transfers)
	if len(transfers) != 1 || transfers[0].From != bob || transfers[0].To != core.MemberMe {
		t.Fatalf("unexpected settlement: %+v", transfers)
	}

	doJSON(t, ts, http.MethodDelete, "/api/trips/"+trip.ID+"/expenses/"+exp.ID, nil, &after)
	if len(after.Expenses) != 0 {
		t.Fatalf("expected empty ledger after delete")
	}
}

func TestTodoRoutes(t *testing.T) {
	ts := newTestServer(t)
	trip := createTestTrip(t, ts)

	var after core.Trip
	resp := doJSON(t, ts, http.MethodPost, "/api/trips/"+trip.ID+"/todos",
		map[string]string{"text": "pack bags"}, &after)
	if resp.StatusCode != http.StatusCreated || len(after.Todos) != 1 {
		t.Fatalf("add todo: status %d, todos %+v", resp.StatusCode, after.Todos)
	}
	todoID := after.Todos[0].ID

	doJSON(t, ts, http.MethodPost, "/api/trips/"+trip.ID+"/todos/"+todoID+"/toggle", nil, &after)
	if !after.Todos[0].Completed {
		t.Fatalf("expected completed todo")
	}

	doJSON(t, ts, http.MethodDelete, "/api/trips/"+trip.ID+"/todos/"+todoID, nil, &after)
	if len(after.Todos) != 0 {
		t.Fatalf("expected todo removed")
	}
}

func TestWeatherRoute(t *testing.T) {
	ts := newTestServer(t)
	trip := createTestTrip(t, ts)

	var f core.Forecast
	resp := doJSON(t, ts, http.MethodGet, "/api/trips/"+trip.ID+"/weather?date=2025-04-01", nil, &f)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("weather: status %d", resp.StatusCode)
	}
	if f.Condition == "" || f.TempMax < f.TempMin {
		t.Fatalf("malformed forecast: %+v", f)
	}

	// The answer is cached on the trip.
	var again core.Forecast
	doJSON(t, ts, http.MethodGet, "/api/trips/"+trip.ID+"/weather?date=2025-04-01", nil, &again)
	if again != f {
		t.Fatalf("cached forecast differs: %+v vs %+v", again, f)
	}

	resp = doJSON(t, ts, http.MethodGet, "/api/trips/"+trip.ID+"/weather?date=not-a-date", nil, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad date, got %d", resp.StatusCode)
	}
}

func TestProfileRoutes(t *testing.T) {
	ts := newTestServer(t)
	trip := createTestTrip(t, ts)

	var p profileResponse
	resp := doJSON(t, ts, http.MethodGet, "/api/profile", nil, &p)
	if resp.StatusCode != http.StatusOK || p.Name != "旅人" {
		t.Fatalf("get profile: status %d, %+v", resp.StatusCode, p)
	}

	resp = doJSON(t, ts, http.MethodPut, "/api/profile",
		map[string]string{"name": "Zoe", "avatar": "🦉"}, &p)
	if resp.StatusCode != http.StatusOK || p.Name != "Zoe" {
		t.Fatalf("update profile: status %d, %+v", resp.StatusCode, p)
	}

	var fetched core.Trip
	doJSON(t, ts, http.MethodGet, "/api/trips/"+trip.ID, nil, &fetched)
	if fetched.Members[0].Name != "Zoe" {
		t.Fatalf("profile not propagated to me member: %+v", fetched.Members[0])
	}

	resp = doJSON(t, ts, http.MethodPut, "/api/profile", map[string]string{"name": ""}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty name, got %d", resp.StatusCode)
	}
}

func TestMalformedBodyIs400(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.Client().Post(ts.URL+"/api/trips", "application/json",
		bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
