package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/crewboard/platform/internal/app/identity"
	"github.com/crewboard/platform/internal/app/query"
	"github.com/crewboard/platform/internal/contracts"
	platformauth "github.com/crewboard/platform/internal/platform/auth"
	"github.com/crewboard/platform/internal/platform/config"
	"github.com/crewboard/platform/internal/platform/dbpool"
	"github.com/crewboard/platform/internal/platform/metrics"
	"github.com/crewboard/platform/internal/platform/natsutil"
	"github.com/crewboard/platform/internal/schedule"
	"github.com/crewboard/platform/services/frontend"
)

var userStreams = newUserStreamRegistry()
var scopeStreams *scopeStreamRegistry

// ScopeAll fans out every task event; only admins may attach to it.
const ScopeAll = "all"

func main() {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	tokenManager := identity.NewTokenManager(cfg.JWTSecret)

	pool, err := dbpool.New(runCtx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	identityRepo := identity.NewPostgresRepository(pool)
	if err := waitForIdentitySchema(runCtx, identityRepo, 30*time.Second); err != nil {
		log.Fatal(err)
	}
	queryRepo := query.NewTaskRepository(pool)

	client, err := natsutil.ConnectJetStreamWithRetry(cfg.NATSURL, cfg.NATSTimeout)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()
	js := client.JS
	scopeStreams = newScopeStreamRegistry(js, queryRepo)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.DefaultHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := checkStreamerReadiness(r.Context(), pool, client.Conn); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", templ.Handler(frontend.LoginPage()))
	mux.Handle("/login", templ.Handler(frontend.LoginPage()))
	mux.Handle("/app", templ.Handler(frontend.DashboardPage()))
	mux.Handle("/static/", http.StripPrefix("/static/", frontend.StaticHandler()))

	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		claims, ok := claimsFromAuthHeader(w, r, tokenManager)
		if !ok {
			return
		}

		scope, ok := resolveScope(w, r, claims)
		if !ok {
			return
		}

		limit := 50
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}
		tasks, err := listScopeTasks(r.Context(), queryRepo, scope, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
	})

	mux.HandleFunc("/ui/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		claims, ok := claimsFromAuthHeader(w, r, tokenManager)
		if !ok {
			return
		}
		scope, ok := resolveScope(w, r, claims)
		if !ok {
			return
		}

		tasks, err := listScopeTasks(r.Context(), queryRepo, scope, 100)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(renderTaskBoard(tasks, scope, time.Now())))
	})

	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		token := platformauth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = strings.TrimSpace(r.URL.Query().Get("token"))
		}
		if token == "" {
			http.Error(w, "token is required", http.StatusUnauthorized)
			return
		}
		claims, err := tokenManager.Parse(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		streamCtx, cancelStream := context.WithCancel(r.Context())
		streamID := fmt.Sprintf("%d", time.Now().UnixNano())
		if cancelPrev := userStreams.Replace(claims.Subject, streamID, cancelStream); cancelPrev != nil {
			cancelPrev()
		}
		defer userStreams.Release(claims.Subject, streamID)
		defer cancelStream()

		scope, ok := resolveScope(w, r, claims)
		if !ok {
			return
		}

		metrics.ActiveStreams.Inc()
		defer metrics.ActiveStreams.Dec()

		sendPatch := func(selector, mode, content string) {
			content = strings.ReplaceAll(content, "\n", "")
			fmt.Fprint(w, "event: datastar-patch-elements\n")
			fmt.Fprintf(w, "data: selector %s\n", selector)
			fmt.Fprintf(w, "data: mode %s\n", mode)
			fmt.Fprintf(w, "data: elements %s\n\n", content)
			flusher.Flush()
		}

		boardSelector := cssAttrSelector("board", "data-scope", scope)
		eventsSelector := cssAttrSelector("events", "data-scope", scope)
		sendFragment := func(msg string, subtitle string) {
			component := frontend.EventItem(msg, subtitle)
			var buf bytes.Buffer
			if err := component.Render(streamCtx, &buf); err != nil {
				return
			}
			sendPatch(eventsSelector, "prepend", buf.String())
		}
		eventCh, unsubscribeScope, err := scopeStreams.Subscribe(scope)
		if err != nil {
			http.Error(w, "stream subscription failed", http.StatusInternalServerError)
			return
		}
		defer unsubscribeScope()

		sendPatch("#board", "outer", renderTaskBoard(nil, scope, time.Now()))
		sendPatch("#events", "outer", renderEventsContainer(scope))
		sendFragment("Connected to Task Stream!", "Waiting for updates...")
		if initialTasks, err := listScopeTasks(streamCtx, queryRepo, scope, 100); err == nil {
			sendPatch(boardSelector, "outer", renderTaskBoard(initialTasks, scope, time.Now()))
		}

		for {
			select {
			case <-streamCtx.Done():
				return
			case streamMsg := <-eventCh:
				if streamMsg.Event != nil {
					event := *streamMsg.Event
					switch event.EventType {
					case "task.created":
						sendFragment(event.Description, "assigned by "+event.ActorName)
					case "task.updated":
						sendFragment(event.Description, "updated by "+event.ActorName)
					case "task.rescheduled":
						sendFragment(event.Description, "rescheduled to "+event.DueDate+" "+event.DueTime)
					case "task.completed":
						sendFragment(event.Description, completionSubtitle(event))
					case "task.reopened":
						sendFragment(event.Description, "reopened by "+event.ActorName)
					case "task.deleted":
						sendFragment("Task deleted", "deleted by "+event.ActorName)
					default:
						sendFragment("Board updated", "change by "+event.ActorName)
					}
				}
				if streamMsg.Tasks != nil {
					sendPatch(boardSelector, "outer", renderTaskBoard(streamMsg.Tasks, scope, time.Now()))
				}
			}
		}
	})

	mux.HandleFunc("/events/disconnect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		token := platformauth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = strings.TrimSpace(r.URL.Query().Get("token"))
		}
		if token == "" {
			http.Error(w, "token is required", http.StatusUnauthorized)
			return
		}

		claims, err := tokenManager.Parse(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		userStreams.Cancel(claims.Subject)
		w.WriteHeader(http.StatusNoContent)
	})

	server := &http.Server{
		Addr:              cfg.StreamerAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Keep WriteTimeout unset for long-lived SSE streams.
		IdleTimeout: 120 * time.Second,
	}

	fmt.Printf("SSE Streamer listening on %s\n", cfg.StreamerAddr)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Fatal(err)
	case <-runCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("sse-streamer graceful shutdown failed: %v", err)
	}
}

// resolveScope maps the caller onto the widest stream they may watch.
// Technicians are pinned to their own assignee scope. Admins default to the
// firehose and may narrow to a single assignee with ?assignee=.
func resolveScope(w http.ResponseWriter, r *http.Request, claims platformauth.Claims) (string, bool) {
	requested := strings.TrimSpace(r.URL.Query().Get("assignee"))
	if claims.Role != identity.RoleAdmin {
		if requested != "" && requested != claims.Subject {
			http.Error(w, "forbidden", http.StatusForbidden)
			return "", false
		}
		return claims.Subject, true
	}
	if requested == "" || requested == ScopeAll {
		return ScopeAll, true
	}
	return requested, true
}

func listScopeTasks(ctx context.Context, repo *query.TaskRepository, scope string, limit int) ([]query.TaskView, error) {
	if scope == ScopeAll {
		return repo.ListAll(ctx, limit)
	}
	return repo.ListForAssignee(ctx, scope, limit)
}

func completionSubtitle(event contracts.TaskEvent) string {
	subtitle := "completed by " + event.ActorName
	if event.CompletionStatus != "" && event.CompletionStatus != schedule.CompletionCompleted {
		subtitle += " (" + event.CompletionStatus + ")"
	}
	return subtitle
}

type userStreamLease struct {
	id     string
	cancel context.CancelFunc
}

type userStreamRegistry struct {
	mu     sync.Mutex
	byUser map[string]userStreamLease
}

func newUserStreamRegistry() *userStreamRegistry {
	return &userStreamRegistry{byUser: make(map[string]userStreamLease)}
}

func (r *userStreamRegistry) Replace(userID, streamID string, cancel context.CancelFunc) context.CancelFunc {
	r.mu.Lock()
	defer r.mu.Unlock()

	var prevCancel context.CancelFunc
	if current, ok := r.byUser[userID]; ok {
		prevCancel = current.cancel
	}
	r.byUser[userID] = userStreamLease{id: streamID, cancel: cancel}
	return prevCancel
}

func (r *userStreamRegistry) Release(userID, streamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byUser[userID]
	if !ok {
		return
	}
	if current.id != streamID {
		return
	}
	delete(r.byUser, userID)
}

func (r *userStreamRegistry) Cancel(userID string) {
	r.mu.Lock()
	lease, ok := r.byUser[userID]
	if ok {
		delete(r.byUser, userID)
	}
	r.mu.Unlock()

	if ok && lease.cancel != nil {
		lease.cancel()
	}
}

type scopeStreamMessage struct {
	Event *contracts.TaskEvent
	Seq   uint64
	Tasks []query.TaskView
}

type scopeStreamRegistry struct {
	mu      sync.Mutex
	js      nats.JetStreamContext
	repo    *query.TaskRepository
	byScope map[string]*scopeStream
}

type scopeStream struct {
	scope string
	js    nats.JetStreamContext
	repo  *query.TaskRepository

	mu           sync.Mutex
	sub          *nats.Subscription
	subscribers  map[string]chan scopeStreamMessage
	nextID       uint64
	pendingSeq   uint64
	refreshTimer *time.Timer
}

func newScopeStreamRegistry(js nats.JetStreamContext, repo *query.TaskRepository) *scopeStreamRegistry {
	return &scopeStreamRegistry{
		js:      js,
		repo:    repo,
		byScope: map[string]*scopeStream{},
	}
}

func (r *scopeStreamRegistry) Subscribe(scope string) (<-chan scopeStreamMessage, func(), error) {
	r.mu.Lock()
	stream, ok := r.byScope[scope]
	if !ok {
		stream = &scopeStream{
			scope:       scope,
			js:          r.js,
			repo:        r.repo,
			subscribers: map[string]chan scopeStreamMessage{},
		}
		r.byScope[scope] = stream
	}
	r.mu.Unlock()

	subID, ch, err := stream.addSubscriber()
	if err != nil {
		return nil, nil, err
	}

	unsubscribe := func() {
		empty := stream.removeSubscriber(subID)
		if !empty {
			return
		}
		r.mu.Lock()
		current, ok := r.byScope[scope]
		if ok && current == stream {
			delete(r.byScope, scope)
		}
		r.mu.Unlock()
	}

	return ch, unsubscribe, nil
}

func (s *scopeStream) addSubscriber() (string, chan scopeStreamMessage, error) {
	ch := make(chan scopeStreamMessage, 64)

	s.mu.Lock()
	s.nextID++
	subID := fmt.Sprintf("%s-%d", s.scope, s.nextID)
	s.subscribers[subID] = ch
	s.mu.Unlock()

	if err := s.ensureSubscription(); err != nil {
		s.mu.Lock()
		delete(s.subscribers, subID)
		s.mu.Unlock()
		return "", nil, err
	}

	return subID, ch, nil
}

func (s *scopeStream) removeSubscriber(subID string) bool {
	var (
		shouldStop bool
		sub        *nats.Subscription
		timer      *time.Timer
	)

	s.mu.Lock()
	delete(s.subscribers, subID)
	if len(s.subscribers) == 0 {
		shouldStop = true
		sub = s.sub
		timer = s.refreshTimer
		s.sub = nil
		s.refreshTimer = nil
		s.pendingSeq = 0
	}
	s.mu.Unlock()

	if shouldStop {
		if timer != nil {
			timer.Stop()
		}
		if sub != nil {
			_ = sub.Unsubscribe()
		}
	}

	return shouldStop
}

func (s *scopeStream) ensureSubscription() error {
	s.mu.Lock()
	if s.sub != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if s.js == nil {
		return fmt.Errorf("jetstream is not configured")
	}

	sub, err := s.js.Subscribe(scopeEventSubject(s.scope), func(msg *nats.Msg) {
		var event contracts.TaskEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}

		var eventSeq uint64
		if meta, metaErr := msg.Metadata(); metaErr == nil {
			eventSeq = meta.Sequence.Stream
		}

		s.broadcast(scopeStreamMessage{Event: &event, Seq: eventSeq})
		s.scheduleSnapshot(eventSeq)
	}, nats.DeliverNew())
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.sub != nil {
		s.mu.Unlock()
		_ = sub.Unsubscribe()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()
	return nil
}

func (s *scopeStream) broadcast(msg scopeStreamMessage) {
	s.mu.Lock()
	subs := make([]chan scopeStreamMessage, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (s *scopeStream) scheduleSnapshot(seq uint64) {
	const snapshotDebounce = 75 * time.Millisecond

	s.mu.Lock()
	if seq > s.pendingSeq {
		s.pendingSeq = seq
	}
	if s.refreshTimer == nil {
		s.refreshTimer = time.AfterFunc(snapshotDebounce, s.runSnapshotRefresh)
		s.mu.Unlock()
		return
	}
	s.refreshTimer.Reset(snapshotDebounce)
	s.mu.Unlock()
}

func (s *scopeStream) runSnapshotRefresh() {
	s.mu.Lock()
	targetSeq := s.pendingSeq
	s.pendingSeq = 0
	s.refreshTimer = nil
	hasSubscribers := len(s.subscribers) > 0
	s.mu.Unlock()

	if !hasSubscribers {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// The firehose scope spans every assignee offset, so read-your-write
	// waiting only applies to single-assignee scopes.
	if s.scope != ScopeAll {
		waitForProjectionOffset(ctx, s.repo, s.scope, targetSeq, 2500*time.Millisecond)
	}
	tasks, err := listScopeTasks(ctx, s.repo, s.scope, 100)
	if err != nil {
		return
	}

	s.broadcast(scopeStreamMessage{Seq: targetSeq, Tasks: tasks})
}

func waitForIdentitySchema(ctx context.Context, repo *identity.PostgresRepository, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		attemptCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = repo.EnsureSchema(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		log.Printf("waiting for identity schema readiness: %v", lastErr)
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}

func checkStreamerReadiness(ctx context.Context, pool *pgxpool.Pool, conn *nats.Conn) error {
	if conn == nil {
		return errors.New("nats connection is nil")
	}
	if conn.Status() != nats.CONNECTED {
		return fmt.Errorf("nats is not connected: %s", conn.Status().String())
	}

	checkCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
	defer cancel()
	if err := pool.Ping(checkCtx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func claimsFromAuthHeader(w http.ResponseWriter, r *http.Request, tokenManager platformauth.Manager) (platformauth.Claims, bool) {
	token := platformauth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return platformauth.Claims{}, false
	}
	claims, err := tokenManager.Parse(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return platformauth.Claims{}, false
	}
	return claims, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func waitForProjectionOffset(ctx context.Context, repo *query.TaskRepository, scope string, target uint64, timeout time.Duration) {
	if target == 0 {
		return
	}

	deadline := time.Now().Add(timeout)
	delay := 40 * time.Millisecond
	for time.Now().Before(deadline) {
		offset, err := repo.GetScopeProjectionOffset(ctx, scope)
		if err == nil && offset >= target {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		nextDelay := time.Duration(float64(delay) * 1.5)
		if nextDelay > 320*time.Millisecond {
			nextDelay = 320 * time.Millisecond
		}
		delay = nextDelay
	}
}

func scopeEventSubject(scope string) string {
	if scope == ScopeAll {
		return "ops.event.>"
	}
	return "ops.event.*.tech." + scope
}

func cssAttrSelector(id, attr, value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return fmt.Sprintf("#%s[%s='%s']", id, attr, escaped)
}

var bucketOrder = []struct {
	key   string
	label string
	badge string
}{
	{"overdue", "Overdue", "badge-error"},
	{"today", "Today", "badge-warning"},
	{"tomorrow", "Tomorrow", "badge-info"},
	{"this_week", "This Week", "badge-ghost"},
	{"next_week", "Next Week", "badge-ghost"},
	{"later", "Later", "badge-ghost"},
}

func renderTaskBoard(tasks []query.TaskView, scope string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(`<div id="board" data-scope="`)
	sb.WriteString(html.EscapeString(scope))
	sb.WriteString(`" class="space-y-4">`)

	if len(tasks) == 0 {
		sb.WriteString(`<div class="text-sm text-base-content/60 px-2 py-3">No tasks on the board yet.</div></div>`)
		return sb.String()
	}

	scheduled := make([]schedule.Task, 0, len(tasks))
	byID := make(map[string]query.TaskView, len(tasks))
	for _, t := range tasks {
		scheduled = append(scheduled, t.ToSchedule())
		byID[t.TaskID] = t
	}
	buckets := schedule.GroupTasks(scheduled, now)
	grouped := map[string][]schedule.Task{
		"overdue":   buckets.Overdue,
		"today":     buckets.Today,
		"tomorrow":  buckets.Tomorrow,
		"this_week": buckets.ThisWeek,
		"next_week": buckets.NextWeek,
		"later":     buckets.Later,
	}

	for _, bucket := range bucketOrder {
		items := grouped[bucket.key]
		if len(items) == 0 {
			continue
		}
		sb.WriteString(`<div class="space-y-2"><div class="flex items-center gap-2"><span class="badge `)
		sb.WriteString(bucket.badge)
		sb.WriteString(` badge-sm">`)
		sb.WriteString(html.EscapeString(bucket.label))
		sb.WriteString(`</span><span class="text-xs text-base-content/60">`)
		sb.WriteString(strconv.Itoa(len(items)))
		sb.WriteString(`</span></div>`)
		for _, item := range items {
			sb.WriteString(renderTaskCard(byID[item.ID], item, now))
		}
		sb.WriteString(`</div>`)
	}

	sb.WriteString(`</div>`)
	return sb.String()
}

func renderTaskCard(view query.TaskView, task schedule.Task, now time.Time) string {
	status := schedule.Classify(task.DueDate, task.DueTime, task.Completed, now)

	var sb strings.Builder
	sb.WriteString(`<div class="card bg-base-100 border border-base-300/60 shadow"><div class="card-body p-4 gap-2">`)
	sb.WriteString(`<div class="flex items-start justify-between gap-3">`)
	sb.WriteString(`<div><div class="font-semibold text-base-content text-base">`)
	sb.WriteString(html.EscapeString(task.Description))
	sb.WriteString(`</div><div class="text-xs text-base-content/70 mt-1">Due `)
	sb.WriteString(html.EscapeString(strings.TrimSpace(task.DueDate + " " + task.DueTime)))
	if strings.TrimSpace(view.CreatedByName) != "" {
		sb.WriteString(` &middot; created by `)
		sb.WriteString(html.EscapeString(view.CreatedByName))
	}
	sb.WriteString(`</div></div>`)

	badgeClass := "badge-ghost"
	switch status {
	case schedule.StatusOverdue:
		badgeClass = "badge-error"
	case schedule.StatusDueToday:
		badgeClass = "badge-warning"
	case schedule.StatusCompleted:
		badgeClass = "badge-success"
	}
	sb.WriteString(`<span class="badge badge-sm `)
	sb.WriteString(badgeClass)
	sb.WriteString(`">`)
	sb.WriteString(html.EscapeString(string(status)))
	sb.WriteString(`</span></div>`)

	if task.Completed && task.CompletionStatus != "" {
		sb.WriteString(`<div class="text-xs text-base-content/70">`)
		sb.WriteString(html.EscapeString(task.CompletionStatus))
		if strings.TrimSpace(task.CompletionNotes) != "" {
			sb.WriteString(`: `)
			sb.WriteString(html.EscapeString(task.CompletionNotes))
		}
		sb.WriteString(`</div>`)
	}

	canFlip := !task.Completed
	actionLabel := "Complete"
	action := "complete-task"
	if task.Completed {
		canFlip = true
		actionLabel = "Reopen"
		action = "reopen-task"
	}
	if canFlip {
		sb.WriteString(`<div class="card-actions justify-end"><button class="btn btn-sm btn-outline" data-task-id="`)
		sb.WriteString(html.EscapeString(task.ID))
		sb.WriteString(`" data-on:click="@post($api_base + '/api/v1/command', {headers: {Authorization: 'Bearer ' + $access_token}, payload: {action: '`)
		sb.WriteString(action)
		sb.WriteString(`', task_id: evt.currentTarget.dataset.taskId}, filterSignals: {include: /^$/}})">`)
		sb.WriteString(actionLabel)
		sb.WriteString(`</button></div>`)
	}

	sb.WriteString(`</div></div>`)
	return sb.String()
}

func renderEventsContainer(scope string) string {
	var sb strings.Builder
	sb.WriteString(`<div id="events" data-scope="`)
	sb.WriteString(html.EscapeString(strings.TrimSpace(scope)))
	sb.WriteString(`" class="space-y-3 max-h-[24rem] overflow-auto pr-1"></div>`)
	return sb.String()
}
