package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cargoflow/internal/auth"
	"cargoflow/internal/maps"
	"cargoflow/internal/modules/booking"
	"cargoflow/internal/modules/dispatch"
	"cargoflow/internal/modules/fleet"
	"cargoflow/internal/modules/pricing"
	"cargoflow/internal/types"
)

type stubRouter struct {
	err error
}

func (s *stubRouter) ComputeRoute(ctx context.Context, origin, dest types.Point) (maps.Route, error) {
	if s.err != nil {
		return maps.Route{}, s.err
	}
	return maps.Route{
		DistanceMeters: 2000,
		Geometry:       []types.Point{origin, dest},
	}, nil
}

type testAPI struct {
	engine *gin.Engine
	auth   *auth.Service
}

func newTestAPI(t *testing.T, routerErr error) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()

	tokens := auth.NewManager("test-secret", time.Hour)
	users := auth.NewService(auth.SeedUsers(), tokens)
	tariffs := pricing.NewService(pricing.NewStore(pricing.DefaultTariffs()))
	ledger := booking.NewService(booking.NewMemStore(), tariffs)
	fl := fleet.NewService(fleet.NewStore(fleet.SeedDrivers()), nil, nil, nil)
	disp := dispatch.NewService(ledger, fl, tariffs, &stubRouter{err: routerErr}, nil, nil, 0, log)

	engine := NewRouter(RouterDeps{
		Auth:     users,
		Tokens:   tokens,
		Dispatch: disp,
		Ledger:   ledger,
		Fleet:    fl,
		Pricing:  tariffs,
		Log:      log,
	})
	return &testAPI{engine: engine, auth: users}
}

func (a *testAPI) token(t *testing.T, email string) string {
	t.Helper()
	token, _, err := a.auth.Login(email, "password")
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return token
}

func (a *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func bookingBody() map[string]any {
	return map[string]any{
		"pickup":      map[string]float64{"lat": 40.7128, "lng": -74.006},
		"dropoff":     map[string]float64{"lat": 40.758, "lng": -73.9855},
		"vehicleType": 1,
	}
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodPost, "/api/login", map[string]string{
		"email": "customer@example.com", "password": "password",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Token string    `json:"token"`
		User  auth.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" || resp.User.Email != "customer@example.com" {
		t.Fatalf("unexpected response %s", w.Body)
	}

	w = api.do(t, http.MethodPost, "/api/login", map[string]string{
		"email": "customer@example.com", "password": "wrong",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", w.Code)
	}
}

func TestBookingsRequireToken(t *testing.T) {
	api := newTestAPI(t, nil)

	if w := api.do(t, http.MethodGet, "/api/bookings", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := api.do(t, http.MethodGet, "/api/bookings", nil, "not-a-token"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with forged token, got %d", w.Code)
	}
}

func TestCreateBooking(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.token(t, "customer@example.com")

	w := api.do(t, http.MethodPost, "/api/bookings", bookingBody(), token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}
	var b booking.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Status != booking.StatusPending {
		t.Fatalf("expected pending, got %s", b.Status)
	}
	// Van: 10.00 base + 2km * 0.50.
	if b.EstimatedPrice.Cents != 1100 {
		t.Fatalf("expected 11.00, got %s", b.EstimatedPrice)
	}
}

func TestCreateBookingEstimateOnly(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.token(t, "customer@example.com")

	body := bookingBody()
	body["estimateOnly"] = true
	w := api.do(t, http.MethodPost, "/api/bookings", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for estimate, got %d: %s", w.Code, w.Body)
	}

	// No booking was created.
	w = api.do(t, http.MethodGet, "/api/bookings", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var all []booking.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("estimate must not create bookings, got %d", len(all))
	}
}

func TestCreateBookingRejectsDriverRole(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.token(t, "driver@example.com")

	w := api.do(t, http.MethodPost, "/api/bookings", bookingBody(), token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.token(t, "customer@example.com")

	body := bookingBody()
	body["vehicleType"] = 42
	if w := api.do(t, http.MethodPost, "/api/bookings", body, token); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown vehicle type, got %d", w.Code)
	}

	body = bookingBody()
	body["pickup"] = map[string]float64{"lat": 120, "lng": 0}
	if w := api.do(t, http.MethodPost, "/api/bookings", body, token); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad coordinates, got %d", w.Code)
	}
}

func TestGetBookingNotFound(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.token(t, "customer@example.com")

	if w := api.do(t, http.MethodGet, "/api/bookings/404", nil, token); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := api.do(t, http.MethodGet, "/api/bookings/abc", nil, token); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", w.Code)
	}
}

func createBooking(t *testing.T, api *testAPI) booking.Booking {
	t.Helper()
	w := api.do(t, http.MethodPost, "/api/bookings", bookingBody(), api.token(t, "customer@example.com"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create booking: %d: %s", w.Code, w.Body)
	}
	var b booking.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return b
}

func TestAcceptFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	b := createBooking(t, api)
	driver := api.token(t, "driver@example.com")

	w := api.do(t, http.MethodPost, "/api/bookings/1/accept", nil, driver)
	if w.Code != http.StatusOK {
		t.Fatalf("accept: %d: %s", w.Code, w.Body)
	}
	var accepted booking.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.ID != b.ID || accepted.Status != booking.StatusAccepted {
		t.Fatalf("unexpected booking %+v", accepted)
	}

	// Second accept, via admin acting for driver 2, loses.
	admin := api.token(t, "admin@example.com")
	w = api.do(t, http.MethodPost, "/api/bookings/1/accept", map[string]any{"driverId": 2}, admin)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second accept, got %d: %s", w.Code, w.Body)
	}

	// Customers cannot accept at all.
	customer := api.token(t, "customer@example.com")
	if w := api.do(t, http.MethodPost, "/api/bookings/1/accept", nil, customer); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer accept, got %d", w.Code)
	}
}

func TestStatusUpdateFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	createBooking(t, api)
	driver := api.token(t, "driver@example.com")

	// en_route before accepting is a state machine violation.
	w := api.do(t, http.MethodPut, "/api/bookings/1/status", map[string]any{"status": "en_route"}, driver)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 before accept, got %d: %s", w.Code, w.Body)
	}

	if w := api.do(t, http.MethodPost, "/api/bookings/1/accept", nil, driver); w.Code != http.StatusOK {
		t.Fatalf("accept: %d", w.Code)
	}

	for _, status := range []string{"en_route", "picked_up", "completed"} {
		w := api.do(t, http.MethodPut, "/api/bookings/1/status", map[string]any{"status": status}, driver)
		if w.Code != http.StatusOK {
			t.Fatalf("status %s: %d: %s", status, w.Code, w.Body)
		}
	}

	w = api.do(t, http.MethodPut, "/api/bookings/1/status", map[string]any{"status": "nonsense"}, driver)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestDriverEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	driver := api.token(t, "driver@example.com")

	w := api.do(t, http.MethodGet, "/api/drivers", nil, driver)
	if w.Code != http.StatusOK {
		t.Fatalf("list drivers: %d", w.Code)
	}
	var drivers []fleet.Driver
	if err := json.Unmarshal(w.Body.Bytes(), &drivers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(drivers) != 3 {
		t.Fatalf("expected 3 seeded drivers, got %d", len(drivers))
	}

	// The driver account is linked to fleet record 1 and may move it.
	loc := map[string]float64{"lat": 40.75, "lng": -73.99}
	if w := api.do(t, http.MethodPost, "/api/drivers/1/location", loc, driver); w.Code != http.StatusOK {
		t.Fatalf("own location update: %d: %s", w.Code, w.Body)
	}
	// But not somebody else's record.
	if w := api.do(t, http.MethodPost, "/api/drivers/2/location", loc, driver); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other driver, got %d", w.Code)
	}
	// Admins may.
	admin := api.token(t, "admin@example.com")
	if w := api.do(t, http.MethodPost, "/api/drivers/2/location", loc, admin); w.Code != http.StatusOK {
		t.Fatalf("admin location update: %d: %s", w.Code, w.Body)
	}
}

func TestVehicleTypesIsPublic(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/api/vehicle-types", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var tariffs []pricing.Tariff
	if err := json.Unmarshal(w.Body.Bytes(), &tariffs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tariffs) != 3 {
		t.Fatalf("expected 3 tariffs, got %d", len(tariffs))
	}
}

func TestCalculateRoute(t *testing.T) {
	api := newTestAPI(t, nil)

	body := map[string]any{
		"origin":      map[string]float64{"lat": 40.7128, "lng": -74.006},
		"destination": map[string]float64{"lat": 40.758, "lng": -73.9855},
	}
	w := api.do(t, http.MethodPost, "/api/calculate-route", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}

	broken := newTestAPI(t, maps.ErrRouteUnavailable)
	if w := broken.do(t, http.MethodPost, "/api/calculate-route", body, ""); w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on upstream failure, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)
	if w := api.do(t, http.MethodGet, "/health", nil, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
