// README: Smoke cases: auth, booking lifecycle, accept race, location load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	customerToken string
	driverToken   string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "SKIP", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "API: health",
			Run: func(ctx context.Context, r *Runner) Result {
				start := time.Now()
				status, _, err := r.do(ctx, http.MethodGet, base+"/health", nil, "")
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
				}
				return Result{Status: "PASS", Latency: time.Since(start)}
			},
		},
		{
			Name: "Auth: login seeded accounts",
			Run: func(ctx context.Context, r *Runner) Result {
				var err error
				if r.customerToken, err = r.login(ctx, "customer@example.com", "password"); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if r.driverToken, err = r.login(ctx, "driver@example.com", "password"); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Auth: bad password rejected",
			Run: func(ctx context.Context, r *Runner) Result {
				status, _, err := r.do(ctx, http.MethodPost, base+"/api/login", map[string]string{
					"email": "customer@example.com", "password": "wrong",
				}, "")
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusUnauthorized {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Catalog: vehicle types",
			Run: func(ctx context.Context, r *Runner) Result {
				status, body, err := r.do(ctx, http.MethodGet, base+"/api/vehicle-types", nil, "")
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				var tariffs []map[string]any
				if status != http.StatusOK || json.Unmarshal(body, &tariffs) != nil || len(tariffs) == 0 {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
				}
				return Result{Status: "PASS", Note: fmt.Sprintf("tariffs=%d", len(tariffs))}
			},
		},
		{
			Name: "Booking: estimate only",
			Run: func(ctx context.Context, r *Runner) Result {
				status, _, err := r.do(ctx, http.MethodPost, base+"/api/bookings", bookingPayload(true), r.customerToken)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Booking: full lifecycle",
			Run:  func(ctx context.Context, r *Runner) Result { return r.lifecycle(ctx, base) },
		},
		{
			Name: "Booking: unknown vehicle type rejected",
			Run: func(ctx context.Context, r *Runner) Result {
				payload := bookingPayload(false)
				payload["vehicleType"] = 42
				status, _, err := r.do(ctx, http.MethodPost, base+"/api/bookings", payload, r.customerToken)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusBadRequest {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Concurrency: multi accept same booking",
			Run:  func(ctx context.Context, r *Runner) Result { return r.concurrentAccept(ctx, base) },
		},
		{
			Name: "Load: driver location updates",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.load(ctx, base+"/api/drivers/1/location", map[string]float64{
					"lat": 40.75, "lng": -73.99,
				}, r.driverToken)
			},
		},
	}
}

func bookingPayload(estimateOnly bool) map[string]any {
	return map[string]any{
		"pickup":       map[string]float64{"lat": 40.7128, "lng": -74.006},
		"dropoff":      map[string]float64{"lat": 40.758, "lng": -73.9855},
		"vehicleType":  1,
		"estimateOnly": estimateOnly,
	}
}

func (r *Runner) login(ctx context.Context, email, password string) (string, error) {
	status, body, err := r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/login", map[string]string{
		"email": email, "password": password,
	}, "")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("login %s: status=%d", email, status)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Token == "" {
		return "", fmt.Errorf("login %s: no token", email)
	}
	return resp.Token, nil
}

// lifecycle creates a booking, accepts it, and walks it to completed.
func (r *Runner) lifecycle(ctx context.Context, base string) Result {
	start := time.Now()
	status, body, err := r.do(ctx, http.MethodPost, base+"/api/bookings", bookingPayload(false), r.customerToken)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	if status != http.StatusCreated {
		return Result{Status: "FAIL", Note: fmt.Sprintf("create status=%d", status)}
	}
	var b struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &b); err != nil || b.ID == 0 {
		return Result{Status: "FAIL", Note: "no booking id"}
	}

	url := fmt.Sprintf("%s/api/bookings/%d", base, b.ID)
	if status, _, err = r.do(ctx, http.MethodPost, url+"/accept", nil, r.driverToken); err != nil || status != http.StatusOK {
		return Result{Status: "FAIL", Note: fmt.Sprintf("accept status=%d err=%v", status, err)}
	}
	for _, next := range []string{"en_route", "picked_up", "completed"} {
		status, _, err = r.do(ctx, http.MethodPut, url+"/status", map[string]string{"status": next}, r.driverToken)
		if err != nil || status != http.StatusOK {
			return Result{Status: "FAIL", Note: fmt.Sprintf("%s status=%d err=%v", next, status, err)}
		}
	}
	return Result{Status: "PASS", Latency: time.Since(start)}
}

// concurrentAccept fires N accepts at one pending booking; exactly one
// may return 200.
func (r *Runner) concurrentAccept(ctx context.Context, base string) Result {
	status, body, err := r.do(ctx, http.MethodPost, base+"/api/bookings", bookingPayload(false), r.customerToken)
	if err != nil || status != http.StatusCreated {
		return Result{Status: "FAIL", Note: fmt.Sprintf("create status=%d err=%v", status, err)}
	}
	var b struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &b); err != nil || b.ID == 0 {
		return Result{Status: "FAIL", Note: "no booking id"}
	}

	url := fmt.Sprintf("%s/api/bookings/%d/accept", base, b.ID)
	var mu sync.Mutex
	succ := 0
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.do(ctx, http.MethodPost, url, nil, r.driverToken)
			if err != nil {
				return
			}
			if status == http.StatusOK {
				mu.Lock()
				succ++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succ != 1 {
		return Result{Status: "FAIL", Note: fmt.Sprintf("success=%d", succ)}
	}
	return Result{Status: "PASS", Note: "success=1"}
}

func (r *Runner) load(ctx context.Context, url string, payload any, token string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var mu sync.Mutex
	var count, errCount int64
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				status, _, err := r.do(ctx, http.MethodPost, url, payload, token)
				mu.Lock()
				if err != nil || status >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func (r *Runner) do(ctx context.Context, method, url string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}
