package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/crewboard/platform/internal/platform/metrics"
	"github.com/crewboard/platform/internal/schedule"
)

type config struct {
	CommandAPIBase          string
	SSEBase                 string
	Users                   int
	SetupConcurrency        int
	StartupWait             time.Duration
	Duration                time.Duration
	RampUp                  time.Duration
	ActionsPerUserPerSecond float64
	RequestTimeout          time.Duration
	MetricsAddr             string
	Password                string
	EnableSSE               bool
	RecurringShare          float64
}

type authResponse struct {
	AccessToken string `json:"access_token"`
}

type commandResponse struct {
	TaskID string `json:"task_id"`
}

type simulatedTechnician struct {
	Index       int
	Username    string
	Password    string
	ClientIP    string
	AccessToken string

	mu    sync.Mutex
	tasks []string
}

type runner struct {
	cfg       config
	runID     string
	apiClient *http.Client
	sseClient *http.Client

	requestsSuccess atomic.Int64
	requestsError   atomic.Int64
	activeVUs       atomic.Int64
	activeSSE       atomic.Int64
}

var (
	requestsTotal = metrics.NewCounterVec(metrics.Opts{
		Name: "crewboard_loadgen_requests_total",
		Help: "Total HTTP requests sent by the load generator.",
	}, []string{"endpoint", "method", "status", "outcome"})

	actionsTotal = metrics.NewCounterVec(metrics.Opts{
		Name: "crewboard_loadgen_actions_total",
		Help: "Technician actions executed by the load generator.",
	}, []string{"action", "outcome"})

	virtualUsersGauge = metrics.NewGauge(metrics.Opts{
		Name: "crewboard_loadgen_virtual_users",
		Help: "Current number of active simulated technicians.",
	})

	sseConnectedUsersGauge = metrics.NewGauge(metrics.Opts{
		Name: "crewboard_loadgen_sse_connected_users",
		Help: "Simulated technicians with an open SSE stream.",
	})
)

func init() {
	metrics.Default.MustRegister(requestsTotal, actionsTotal, virtualUsersGauge, sseConnectedUsersGauge)
}

func main() {
	cfg := loadConfig()
	if cfg.Users <= 0 {
		log.Fatal("LOADGEN_USERS must be > 0")
	}
	if cfg.SetupConcurrency <= 0 {
		log.Fatal("LOADGEN_SETUP_CONCURRENCY must be > 0")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx := baseCtx
	if cfg.Duration > 0 {
		timeoutCtx, cancel := context.WithTimeout(baseCtx, cfg.Duration)
		defer cancel()
		ctx = timeoutCtx
	}

	go runMetricsServer(cfg.MetricsAddr)

	transport := &http.Transport{
		MaxIdleConns:        cfg.Users * 4,
		MaxIdleConnsPerHost: cfg.Users * 4,
		IdleConnTimeout:     90 * time.Second,
	}

	r := &runner{
		cfg:   cfg,
		runID: strconv.FormatInt(time.Now().UTC().UnixNano(), 10),
		apiClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		sseClient: &http.Client{
			Transport: transport,
		},
	}

	if err := r.waitForDependencies(ctx); err != nil {
		log.Fatalf("dependency readiness failed: %v", err)
	}

	techs := r.setupTechnicians(ctx)
	if len(techs) == 0 {
		log.Fatal("failed to initialize any technicians")
	}
	log.Printf("load generator initialized: technicians=%d duration=%s sse=%v rate_per_user=%.2f req/s",
		len(techs), cfg.Duration.String(), cfg.EnableSSE, cfg.ActionsPerUserPerSecond)

	go r.logProgress(ctx)

	var wg sync.WaitGroup
	for idx := range techs {
		tech := techs[idx]
		wg.Add(1)
		go func(t *simulatedTechnician) {
			defer wg.Done()
			r.runTechnician(ctx, t)
		}(tech)
	}

	<-ctx.Done()
	wg.Wait()

	log.Printf("load test complete: success_requests=%d error_requests=%d",
		r.requestsSuccess.Load(), r.requestsError.Load())
}

func loadConfig() config {
	return config{
		CommandAPIBase:          trimRightSlash(stringEnv("LOADGEN_COMMAND_API_BASE", "http://command-api:8080")),
		SSEBase:                 trimRightSlash(stringEnv("LOADGEN_SSE_BASE", "http://sse-streamer:8081")),
		Users:                   intEnv("LOADGEN_USERS", 200),
		SetupConcurrency:        intEnv("LOADGEN_SETUP_CONCURRENCY", 25),
		StartupWait:             durationEnv("LOADGEN_STARTUP_WAIT", 2*time.Minute),
		Duration:                durationEnv("LOADGEN_DURATION", 10*time.Minute),
		RampUp:                  durationEnv("LOADGEN_RAMP_UP", 30*time.Second),
		ActionsPerUserPerSecond: floatEnv("LOADGEN_ACTIONS_PER_USER_PER_SECOND", 0.3),
		RequestTimeout:          durationEnv("LOADGEN_REQUEST_TIMEOUT", 10*time.Second),
		MetricsAddr:             stringEnv("LOADGEN_METRICS_ADDR", ":9099"),
		Password:                stringEnv("LOADGEN_PASSWORD", "load-test-pass-123"),
		EnableSSE:               boolEnv("LOADGEN_ENABLE_SSE", true),
		RecurringShare:          floatEnv("LOADGEN_RECURRING_SHARE", 0.1),
	}
}

func (r *runner) waitForDependencies(ctx context.Context) error {
	wait := r.cfg.StartupWait
	if wait <= 0 {
		wait = 2 * time.Minute
	}

	if err := r.waitForHTTPStatus(ctx, r.cfg.CommandAPIBase+"/readyz", http.StatusOK, wait); err != nil {
		return fmt.Errorf("command-api not ready: %w", err)
	}
	if err := r.waitForHTTPStatus(ctx, r.cfg.SSEBase+"/readyz", http.StatusOK, wait); err != nil {
		return fmt.Errorf("sse-streamer not ready: %w", err)
	}
	return nil
}

func (r *runner) waitForHTTPStatus(ctx context.Context, requestURL string, expectedStatus int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			lastErr = err
			time.Sleep(1200 * time.Millisecond)
			continue
		}
		resp, err := r.apiClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(1200 * time.Millisecond)
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode == expectedStatus {
			return nil
		}
		lastErr = fmt.Errorf("status=%d", resp.StatusCode)
		time.Sleep(1200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout")
	}
	return lastErr
}

func (r *runner) setupTechnicians(ctx context.Context) []*simulatedTechnician {
	type setupResult struct {
		tech *simulatedTechnician
		err  error
	}

	sem := make(chan struct{}, r.cfg.SetupConcurrency)
	results := make(chan setupResult, r.cfg.Users)
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Users; i++ {
		idx := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			tech, err := r.setupSingleTechnician(ctx, idx)
			results <- setupResult{tech: tech, err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	techs := make([]*simulatedTechnician, 0, r.cfg.Users)
	failures := 0
	for result := range results {
		if result.err != nil {
			failures++
			log.Printf("technician setup failed: %v", result.err)
			continue
		}
		techs = append(techs, result.tech)
	}
	log.Printf("technician setup complete: success=%d failed=%d", len(techs), failures)
	return techs
}

func (r *runner) setupSingleTechnician(ctx context.Context, idx int) (*simulatedTechnician, error) {
	tech := &simulatedTechnician{
		Index:    idx,
		Username: fmt.Sprintf("load-%s-%04d", r.runID, idx),
		Password: r.cfg.Password,
		ClientIP: fmt.Sprintf("10.0.%d.%d", 1+(idx/250), 1+(idx%250)),
	}

	var auth authResponse
	status, err := r.requestJSON(ctx, tech, "register", http.MethodPost, r.cfg.CommandAPIBase+"/api/v1/auth/register", map[string]string{
		"username":     tech.Username,
		"display_name": fmt.Sprintf("Load Tech %d", idx),
		"password":     tech.Password,
	}, nil, &auth, http.StatusCreated, http.StatusConflict)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", tech.Username, err)
	}

	if status == http.StatusConflict {
		auth = authResponse{}
		if _, err := r.requestJSON(ctx, tech, "login", http.MethodPost, r.cfg.CommandAPIBase+"/api/v1/auth/login", map[string]string{
			"username": tech.Username,
			"password": tech.Password,
		}, nil, &auth, http.StatusOK); err != nil {
			return nil, fmt.Errorf("login %s: %w", tech.Username, err)
		}
	}

	if strings.TrimSpace(auth.AccessToken) == "" {
		return nil, fmt.Errorf("empty access token for %s", tech.Username)
	}
	tech.AccessToken = auth.AccessToken

	return tech, nil
}

func (r *runner) runTechnician(ctx context.Context, tech *simulatedTechnician) {
	if r.cfg.RampUp > 0 {
		delay := time.Duration((float64(r.cfg.RampUp) / float64(maxInt(r.cfg.Users, 1))) * float64(tech.Index))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	if r.cfg.EnableSSE {
		go r.runSSELoop(ctx, tech)
	}

	virtualUsersGauge.Inc()
	r.activeVUs.Add(1)
	defer virtualUsersGauge.Dec()
	defer r.activeVUs.Add(-1)

	interval := time.Second
	if r.cfg.ActionsPerUserPerSecond > 0 {
		interval = time.Duration(float64(time.Second) / r.cfg.ActionsPerUserPerSecond)
		if interval < 25*time.Millisecond {
			interval = 25 * time.Millisecond
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(tech.Index*7)))
	initialJitter := time.Duration(rng.Int63n(int64(interval)))
	select {
	case <-ctx.Done():
		return
	case <-time.After(initialJitter):
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runAction(ctx, tech, rng)
		}
	}
}

func (r *runner) runAction(ctx context.Context, tech *simulatedTechnician, rng *rand.Rand) {
	taskID, hasTask := tech.randomTask(rng)

	choice := rng.Float64()
	switch {
	case !hasTask || choice < 0.50:
		r.createTask(ctx, tech, rng)
	case choice < 0.75:
		r.completeTask(ctx, tech, rng, taskID)
	case choice < 0.90:
		r.rescheduleTask(ctx, tech, rng, taskID)
	default:
		r.deleteTask(ctx, tech, taskID)
	}
}

func (r *runner) createTask(ctx context.Context, tech *simulatedTechnician, rng *rand.Rand) {
	dueDate := time.Now().UTC().AddDate(0, 0, rng.Intn(14)).Format(schedule.DateLayout)
	payload := map[string]any{
		"action":      "create-task",
		"description": fmt.Sprintf("Load Job %d", rng.Intn(1_000_000)),
		"due_date":    dueDate,
		"due_time":    fmt.Sprintf("%02d:%02d", 6+rng.Intn(12), 15*rng.Intn(4)),
	}
	if rng.Float64() < r.cfg.RecurringShare {
		payload["is_recurring"] = true
		payload["recurring_type"] = "on_completion"
		payload["recurring_interval"] = 1
	}

	var resp commandResponse
	_, err := r.requestJSON(ctx, tech, "command_create", http.MethodPost, r.cfg.CommandAPIBase+"/api/v1/command", payload, &tech.AccessToken, &resp, http.StatusAccepted)
	if err != nil {
		actionsTotal.WithLabelValues("create", "error").Inc()
		return
	}
	if strings.TrimSpace(resp.TaskID) != "" {
		tech.addTask(resp.TaskID)
	}
	actionsTotal.WithLabelValues("create", "success").Inc()
}

func (r *runner) completeTask(ctx context.Context, tech *simulatedTechnician, rng *rand.Rand, taskID string) {
	if strings.TrimSpace(taskID) == "" {
		r.createTask(ctx, tech, rng)
		return
	}

	payload := map[string]any{
		"action":  "complete-task",
		"task_id": taskID,
	}
	switch {
	case rng.Float64() < 0.10:
		payload["completion_status"] = schedule.CompletionFailed
		payload["completion_notes"] = "Customer unavailable, access denied on site."
	case rng.Float64() < 0.20:
		payload["completion_status"] = schedule.CompletionWithIssues
		payload["completion_notes"] = "Replaced part was the wrong revision."
	}

	_, err := r.requestJSON(ctx, tech, "command_complete", http.MethodPost, r.cfg.CommandAPIBase+"/api/v1/command", payload, &tech.AccessToken, nil, http.StatusAccepted)
	if err != nil {
		actionsTotal.WithLabelValues("complete", "error").Inc()
		return
	}
	tech.removeTask(taskID)
	actionsTotal.WithLabelValues("complete", "success").Inc()
}

func (r *runner) rescheduleTask(ctx context.Context, tech *simulatedTechnician, rng *rand.Rand, taskID string) {
	if strings.TrimSpace(taskID) == "" {
		actionsTotal.WithLabelValues("reschedule", "error").Inc()
		return
	}

	_, err := r.requestJSON(ctx, tech, "command_reschedule", http.MethodPost, r.cfg.CommandAPIBase+"/api/v1/command", map[string]any{
		"action":   "reschedule-task",
		"task_id":  taskID,
		"due_date": time.Now().UTC().AddDate(0, 0, 1+rng.Intn(7)).Format(schedule.DateLayout),
		"due_time": fmt.Sprintf("%02d:00", 7+rng.Intn(10)),
	}, &tech.AccessToken, nil, http.StatusAccepted)
	if err != nil {
		actionsTotal.WithLabelValues("reschedule", "error").Inc()
		return
	}
	actionsTotal.WithLabelValues("reschedule", "success").Inc()
}

func (r *runner) deleteTask(ctx context.Context, tech *simulatedTechnician, taskID string) {
	if strings.TrimSpace(taskID) == "" {
		actionsTotal.WithLabelValues("delete", "error").Inc()
		return
	}

	_, err := r.requestJSON(ctx, tech, "command_delete", http.MethodPost, r.cfg.CommandAPIBase+"/api/v1/command", map[string]any{
		"action":  "delete-task",
		"task_id": taskID,
	}, &tech.AccessToken, nil, http.StatusAccepted)
	if err != nil {
		actionsTotal.WithLabelValues("delete", "error").Inc()
		return
	}
	tech.removeTask(taskID)
	actionsTotal.WithLabelValues("delete", "success").Inc()
}

func (r *runner) runSSELoop(ctx context.Context, tech *simulatedTechnician) {
	for {
		if ctx.Err() != nil {
			return
		}
		err := r.connectAndReadSSE(ctx, tech)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("sse reconnect user=%s err=%v", tech.Username, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(1200 * time.Millisecond):
		}
	}
}

func (r *runner) connectAndReadSSE(ctx context.Context, tech *simulatedTechnician) error {
	sseURL := r.cfg.SSEBase + "/events?token=" + url.QueryEscape(tech.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sseURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-Forwarded-For", tech.ClientIP)

	resp, err := r.sseClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("events_stream_open", http.MethodGet, "0", "error").Inc()
		r.requestsError.Add(1)
		return err
	}
	defer resp.Body.Close()

	statusText := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		requestsTotal.WithLabelValues("events_stream_open", http.MethodGet, statusText, "error").Inc()
		r.requestsError.Add(1)
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected SSE status: %d", resp.StatusCode)
	}

	requestsTotal.WithLabelValues("events_stream_open", http.MethodGet, statusText, "success").Inc()
	r.requestsSuccess.Add(1)

	sseConnectedUsersGauge.Inc()
	r.activeSSE.Add(1)
	defer sseConnectedUsersGauge.Dec()
	defer r.activeSSE.Add(-1)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return err
	}
	return nil
}

func (r *runner) requestJSON(
	ctx context.Context,
	tech *simulatedTechnician,
	endpoint, method, requestURL string,
	payload any,
	bearerToken *string,
	out any,
	expectedStatuses ...int,
) (int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Forwarded-For", tech.ClientIP)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearerToken != nil && strings.TrimSpace(*bearerToken) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(*bearerToken))
	}

	resp, err := r.apiClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, method, "0", "error").Inc()
		r.requestsError.Add(1)
		return 0, err
	}
	defer resp.Body.Close()

	responseBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		requestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(resp.StatusCode), "error").Inc()
		r.requestsError.Add(1)
		return resp.StatusCode, readErr
	}

	statusText := strconv.Itoa(resp.StatusCode)
	if isExpectedStatus(resp.StatusCode, expectedStatuses) {
		requestsTotal.WithLabelValues(endpoint, method, statusText, "success").Inc()
		r.requestsSuccess.Add(1)
		if out != nil && len(responseBody) > 0 {
			if err := json.Unmarshal(responseBody, out); err != nil {
				return resp.StatusCode, err
			}
		}
		return resp.StatusCode, nil
	}

	requestsTotal.WithLabelValues(endpoint, method, statusText, "error").Inc()
	r.requestsError.Add(1)
	return resp.StatusCode, fmt.Errorf("unexpected status=%d body=%s", resp.StatusCode, truncate(string(responseBody), 240))
}

func (r *runner) logProgress(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("progress: success_requests=%d error_requests=%d active_vus=%d active_sse=%d",
				r.requestsSuccess.Load(),
				r.requestsError.Load(),
				r.activeVUs.Load(),
				r.activeSSE.Load(),
			)
		}
	}
}

func runMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.DefaultHandler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("load generator metrics endpoint listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("load generator metrics server failed: %v", err)
	}
}

func (u *simulatedTechnician) addTask(taskID string) {
	if strings.TrimSpace(taskID) == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tasks = append(u.tasks, taskID)
}

func (u *simulatedTechnician) randomTask(rng *rand.Rand) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.tasks) == 0 {
		return "", false
	}
	return u.tasks[rng.Intn(len(u.tasks))], true
}

func (u *simulatedTechnician) removeTask(taskID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for idx, existing := range u.tasks {
		if existing != taskID {
			continue
		}
		u.tasks[idx] = u.tasks[len(u.tasks)-1]
		u.tasks = u.tasks[:len(u.tasks)-1]
		return
	}
}

func trimRightSlash(v string) string {
	return strings.TrimRight(strings.TrimSpace(v), "/")
}

func isExpectedStatus(status int, expected []int) bool {
	for _, candidate := range expected {
		if status == candidate {
			return true
		}
	}
	return false
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max] + "..."
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func stringEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func floatEnv(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func boolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
