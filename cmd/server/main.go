// Package main provides the unified gate server:
// - Scheduled gate runs over a watched drafts directory
// - Optional WebSocket draft intake with content-fingerprint dedup
// - HTTP endpoints for health, status, and Prometheus metrics
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/idhash"
	"strategy-draft-gate/internal/intake"
	"strategy-draft-gate/internal/observability"
	"strategy-draft-gate/internal/pipeline"
	"strategy-draft-gate/internal/reporting"
	"strategy-draft-gate/internal/storage"
	chstore "strategy-draft-gate/internal/storage/clickhouse"
	"strategy-draft-gate/internal/storage/memory"
	"strategy-draft-gate/internal/storage/migrations"
	pgstore "strategy-draft-gate/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	draftsDir      string
	wsEndpoint     string
	outputDir      string
	runInterval    time.Duration
	wsPollInterval time.Duration
	maxIterations  int
	workers        int

	// Stores
	stores *gateStores

	logger *log.Logger

	// State
	mu          sync.Mutex
	started     time.Time
	lastRun     time.Time
	lastRunID   string
	runRunning  bool
	gateRuns    int
	wsBatches   int
	lastSummary reporting.Summary

	// In-memory fingerprint cache, warmed from the progress store.
	seenMu sync.Mutex
	seen   map[string]bool
}

// gateStores holds all storage implementations.
type gateStores struct {
	runStore      storage.ReviewRunStore
	recordStore   storage.ReviewRecordStore
	outcomeStore  storage.CriterionOutcomeStore
	progressStore storage.IntakeProgressStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	draftsDir := flag.String("drafts-dir", os.Getenv("DRAFTS_DIR"), "Directory of draft YAML documents for scheduled runs")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("DRAFT_WS_ENDPOINT"), "WebSocket endpoint streaming draft documents")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	outputDir := flag.String("output-dir", "output", "Output directory for report files")
	runInterval := flag.Duration("run-interval", 1*time.Hour, "Scheduled gate run interval")
	wsPollInterval := flag.Duration("ws-poll-interval", 30*time.Second, "Stream drain interval")
	maxIterations := flag.Int("max-iterations", 0, "Revision loop budget (0 uses the default of 2)")
	workers := flag.Int("workers", 0, "Parallel evaluations per iteration (0 uses the default of 4)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for health/status/metrics")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *draftsDir == "" && *wsEndpoint == "" {
		logger.Fatal("--drafts-dir or --ws-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create server
	server := &Server{
		draftsDir:      *draftsDir,
		wsEndpoint:     *wsEndpoint,
		outputDir:      *outputDir,
		runInterval:    *runInterval,
		wsPollInterval: *wsPollInterval,
		maxIterations:  *maxIterations,
		workers:        *workers,
		stores:         stores,
		logger:         logger,
		seen:           make(map[string]bool),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*httpAddr)

	// Run the gate server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores, applying schema in database
// mode. Migrations are idempotent, so every startup applies them.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*gateStores, func(), error) {
	if useMemory {
		stores := &gateStores{
			runStore:      memory.NewReviewRunStore(),
			recordStore:   memory.NewReviewRecordStore(),
			outcomeStore:  memory.NewCriterionOutcomeStore(),
			progressStore: memory.NewIntakeProgressStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
	}

	stores := &gateStores{
		runStore:      pgstore.NewReviewRunStore(pool),
		recordStore:   pgstore.NewReviewRecordStore(pool),
		outcomeStore:  chstore.NewCriterionOutcomeStore(chConn),
		progressStore: pgstore.NewIntakeProgressStore(pool),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the gate server with all components.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting gate server...")

	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	s.warmFingerprintCache(ctx)

	// Create error channel for goroutines
	errCh := make(chan error, 2)

	// Start run scheduler in background
	if s.draftsDir != "" {
		go func() {
			err := s.runScheduler(ctx)
			if err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("run scheduler: %w", err)
			}
		}()
	}

	// Start stream intake in background
	if s.wsEndpoint != "" {
		go func() {
			err := s.runIntakeLoop(ctx)
			if err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("stream intake: %w", err)
			}
		}()
	}

	// Uptime heartbeat
	go s.runUptimeCounter(ctx)

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// warmFingerprintCache preloads seen draft fingerprints so stream dedup
// survives restarts.
func (s *Server) warmFingerprintCache(ctx context.Context) {
	fingerprints, err := s.stores.progressStore.LoadSeenFingerprints(ctx)
	if err != nil {
		s.logger.Printf("Failed to load seen fingerprints: %v", err)
		return
	}

	s.seenMu.Lock()
	for _, fp := range fingerprints {
		s.seen[fp] = true
	}
	s.seenMu.Unlock()

	if len(fingerprints) > 0 {
		s.logger.Printf("Loaded %d seen draft fingerprints", len(fingerprints))
	}
}

// runScheduler runs the gate over the drafts directory on schedule.
func (s *Server) runScheduler(ctx context.Context) error {
	s.logger.Printf("Starting run scheduler (interval: %v)...", s.runInterval)

	// Run immediately on start
	s.runGate(ctx)

	ticker := time.NewTicker(s.runInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runGate(ctx)
		}
	}
}

// runGate executes one scheduled gate run over the drafts directory.
func (s *Server) runGate(ctx context.Context) {
	s.mu.Lock()
	if s.runRunning {
		s.mu.Unlock()
		s.logger.Println("Gate run already in progress, skipping...")
		return
	}
	s.runRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.runRunning = false
		s.mu.Unlock()
	}()

	source := intake.NewDirSource(s.draftsDir)
	sourceInfo := reporting.Source{DraftsDir: s.draftsDir}
	s.executeGate(ctx, source, sourceInfo, "file")
}

// runIntakeLoop drains the draft stream on an interval and reviews every
// batch of unseen drafts.
func (s *Server) runIntakeLoop(ctx context.Context) error {
	s.logger.Printf("Connecting to draft stream %s...", s.wsEndpoint)

	source, err := intake.NewWSSource(ctx, s.wsEndpoint, nil, s.logger)
	if err != nil {
		return fmt.Errorf("connect draft stream: %w", err)
	}
	defer source.Close()

	s.logger.Printf("Draft stream connected (drain interval: %v)", s.wsPollInterval)

	ticker := time.NewTicker(s.wsPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.reviewStreamBatch(ctx, source); err != nil {
				return err
			}
		}
	}
}

// reviewStreamBatch drains the stream buffer, drops drafts whose content
// was already reviewed, and runs the gate on the remainder.
func (s *Server) reviewStreamBatch(ctx context.Context, source *intake.WSSource) error {
	drafts, malformed, err := source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("drain draft stream: %w", err)
	}

	var fresh []domain.ParsedDraft
	var fingerprints []string
	for _, d := range drafts {
		fp := idhash.ComputeDraftFingerprint(d.Draft)
		if s.fingerprintSeen(ctx, fp) {
			observability.RecordDuplicateDraft()
			continue
		}
		fresh = append(fresh, d)
		fingerprints = append(fingerprints, fp)
	}

	if len(fresh) == 0 && len(malformed) == 0 {
		return nil
	}

	// Wait briefly if a scheduled run holds the output directory. The
	// stream buffer is already drained, so this batch must run.
	s.mu.Lock()
	if s.runRunning {
		s.mu.Unlock()
		s.logger.Println("Scheduled run in progress, delaying stream batch...")
		time.Sleep(5 * time.Second)
	} else {
		s.mu.Unlock()
	}

	s.logger.Printf("Reviewing stream batch: %d drafts, %d malformed", len(fresh), len(malformed))

	batch := &staticSource{drafts: fresh, malformed: malformed}
	sourceInfo := reporting.Source{DraftsDir: s.wsEndpoint}
	result := s.executeGate(ctx, batch, sourceInfo, "ws")
	if result == nil {
		return nil
	}

	// Only mark content reviewed after the run lands, so a failed run
	// leaves the drafts eligible for a retry on the next connection.
	for _, fp := range fingerprints {
		s.markFingerprintSeen(ctx, fp)
	}
	progress := &storage.IntakeProgress{Sequence: source.Sequence(), RunID: result.Report.RunID}
	if err := s.stores.progressStore.SetLastProcessed(ctx, progress); err != nil {
		s.logger.Printf("Failed to save intake progress: %v", err)
	}

	s.mu.Lock()
	s.wsBatches++
	s.mu.Unlock()

	return nil
}

// executeGate runs the full pipeline for one batch and records metrics.
// Returns nil after logging when the run fails.
func (s *Server) executeGate(ctx context.Context, source intake.DraftSource, sourceInfo reporting.Source, intakeLabel string) *pipeline.RunResult {
	start := time.Now()

	p := pipeline.NewGatePipeline(source, sourceInfo, s.outputDir).
		WithMaxIterations(s.maxIterations).
		WithWorkers(s.workers).
		WithLogger(s.logger).
		WithPersistence(s.stores.runStore, s.stores.recordStore).
		WithAnalyticsStore(s.stores.outcomeStore)

	result, err := p.Run(ctx)
	if err != nil {
		s.logger.Printf("Gate run error: %v", err)
		observability.RecordGateRun("error", 0, time.Since(start).Seconds())
		return nil
	}

	s.recordRunMetrics(result, intakeLabel, time.Since(start).Seconds())

	if !result.Checks.Clean() {
		for _, c := range result.Checks.Checks {
			if !c.Pass {
				s.logger.Printf("invariant check %s failed: %s", c.Name, c.Detail)
			}
		}
	}

	sum := result.Report.Summary
	s.logger.Printf("Gate run %s completed in %v: %d drafts, %d PASS, %d REVISE, %d REJECT, %d export eligible",
		result.Report.RunID, time.Since(start), sum.Total, sum.Pass, sum.Revise, sum.Reject, sum.ExportEligible)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastRunID = result.Report.RunID
	s.lastSummary = sum
	s.gateRuns++
	s.mu.Unlock()

	return result
}

// recordRunMetrics publishes one run's counters and histograms.
func (s *Server) recordRunMetrics(result *pipeline.RunResult, intakeLabel string, seconds float64) {
	state := result.State

	observability.RecordDraftsFetched(result.Report.Summary.Total)
	for range result.Report.Malformed {
		observability.RecordMalformedInput(intakeLabel)
	}

	for _, r := range state.Passed {
		observability.RecordReview(string(r.Result.Verdict), r.Result.ConfidenceScore, false, r.Result.ExportEligible)
	}
	for _, r := range state.Rejected {
		observability.RecordReview(string(r.Result.Verdict), r.Result.ConfidenceScore, false, r.Result.ExportEligible)
	}
	for _, r := range state.Downgraded {
		observability.RecordReview(string(r.Result.Verdict), r.Result.ConfidenceScore, true, r.Result.ExportEligible)
	}
	for _, r := range state.Terminal() {
		for _, f := range r.Result.Findings {
			observability.RecordCriterionOutcome(string(f.CriterionID), string(f.Severity))
		}
	}

	observability.RecordGateRun("success", state.Iteration, seconds)
	observability.SetLastSuccessfulRun(time.Now())
}

// fingerprintSeen checks the cache first, then the progress store.
func (s *Server) fingerprintSeen(ctx context.Context, fp string) bool {
	s.seenMu.Lock()
	cached := s.seen[fp]
	s.seenMu.Unlock()
	if cached {
		return true
	}

	seen, err := s.stores.progressStore.IsFingerprintSeen(ctx, fp)
	if err != nil {
		s.logger.Printf("Fingerprint lookup failed: %v", err)
		return false
	}
	return seen
}

// markFingerprintSeen records a reviewed draft fingerprint.
func (s *Server) markFingerprintSeen(ctx context.Context, fp string) {
	s.seenMu.Lock()
	s.seen[fp] = true
	s.seenMu.Unlock()

	if err := s.stores.progressStore.MarkFingerprintSeen(ctx, fp); err != nil {
		s.logger.Printf("Failed to persist fingerprint: %v", err)
	}
}

// runUptimeCounter feeds the uptime metric.
func (s *Server) runUptimeCounter(ctx context.Context) {
	const step = 15 * time.Second
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.AddUptime(step.Seconds())
		}
	}
}

// staticSource serves one already-fetched stream batch.
type staticSource struct {
	drafts    []domain.ParsedDraft
	malformed []domain.MalformedDraft
}

func (s *staticSource) Fetch(ctx context.Context) ([]domain.ParsedDraft, []domain.MalformedDraft, error) {
	return s.drafts, s.malformed, nil
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string            `json:"status"`
	Uptime      string            `json:"uptime"`
	StartedAt   time.Time         `json:"started_at"`
	LastRun     time.Time         `json:"last_run,omitempty"`
	LastRunID   string            `json:"last_run_id,omitempty"`
	GateRuns    int               `json:"gate_runs"`
	StreamRuns  int               `json:"stream_runs"`
	RunRunning  bool              `json:"run_running"`
	LastSummary reporting.Summary `json:"last_summary"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		StartedAt:   s.started,
		LastRun:     s.lastRun,
		LastRunID:   s.lastRunID,
		GateRuns:    s.gateRuns,
		StreamRuns:  s.wsBatches,
		RunRunning:  s.runRunning,
		LastSummary: s.lastSummary,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
