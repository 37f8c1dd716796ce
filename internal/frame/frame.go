// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package frame builds and owns the Frame: the explicit service
// container every shard receives at startup instead of reaching for
// module globals. Grounded on cmd/hive-server/main.go's construction
// sequence (open sqlite, dial Qdrant with a mock fallback, connect
// Redis with a degraded fallback, build the embedder, start worker
// pools) generalized into a single struct that cmd/hive-server/main.go
// now only calls into.
package frame

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mantisfury/arkham-core/internal/anomaly"
	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/bus"
	"github.com/mantisfury/arkham-core/internal/chunk"
	"github.com/mantisfury/arkham-core/internal/classify"
	"github.com/mantisfury/arkham-core/internal/config"
	"github.com/mantisfury/arkham-core/internal/contradiction"
	"github.com/mantisfury/arkham-core/internal/database"
	"github.com/mantisfury/arkham-core/internal/dispatch"
	"github.com/mantisfury/arkham-core/internal/documents"
	"github.com/mantisfury/arkham-core/internal/embeddings"
	"github.com/mantisfury/arkham-core/internal/extract"
	"github.com/mantisfury/arkham-core/internal/ingest"
	"github.com/mantisfury/arkham-core/internal/jobs"
	"github.com/mantisfury/arkham-core/internal/llm"
	"github.com/mantisfury/arkham-core/internal/logger"
	"github.com/mantisfury/arkham-core/internal/queue"
	"github.com/mantisfury/arkham-core/internal/regexengine"
	"github.com/mantisfury/arkham-core/internal/search"
	"github.com/mantisfury/arkham-core/internal/vectordb"
	"github.com/mantisfury/arkham-core/internal/worker"
)

// Frame is the service container: every shard (HTTP handlers, gRPC
// service, worker pools) is constructed with a *Frame instead of
// reaching for package-level state.
type Frame struct {
	Config *config.Config

	DB  *sql.DB
	Bus *bus.Bus

	Queue      queue.Service
	Redis      *redis.Client
	redisConn  closer
	Pools      []*worker.Pool

	VectorDB  vectordb.VectorDB
	qdrantConn closer

	Embeddings     *embeddings.Manager
	EmbeddingBound embeddings.Bound
	Chunker        *chunk.Chunker
	ChunkMethod    chunk.Method

	Ingest     *ingest.Manager
	IngestStore *ingest.SQLStore
	Documents  *documents.Service
	DocStore   *documents.SQLStore
	Dispatcher *dispatch.Dispatcher

	Semantic *search.SemanticEngine
	Keyword  *search.KeywordEngine
	Hybrid   *search.HybridEngine

	Regex        *regexengine.Engine
	RegexPresets *regexengine.PresetStore

	AnomalyStore     *anomaly.Store
	AnomalyDetectors []anomaly.Detector
	CorpusStats      *jobs.CorpusStatsRecalculator

	Contradiction      *contradiction.Pipeline
	ContradictionStore *contradiction.Store

	LLM *llm.Client

	AuditLog *database.AuditLogStore
	Events   *database.EventLogger
	Meta     *database.SystemMetadataStore

	cancel context.CancelFunc
}

type closer interface {
	Close() error
}

// Build constructs every shard of the Frame from cfg, wiring graceful
// fallbacks the same way the teacher's main.go did for Qdrant: a
// degraded in-process substitute rather than a hard failure, logged as
// a warning so operators notice but the server still starts.
func Build(ctx context.Context, cfg *config.Config) (*Frame, error) {
	f := &Frame{Config: cfg, Bus: bus.New()}

	regexengine.RegisterDriver("sqlite3_regexp")
	db, err := sql.Open("sqlite3_regexp", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	f.DB = db

	if err := f.buildStores(); err != nil {
		return nil, err
	}
	f.buildQueue(ctx)
	f.buildVectorDB(ctx)
	f.buildEmbeddings()
	f.buildSearch()
	f.buildLLMAndContradiction()
	f.buildAnomaly(ctx)
	f.buildIngestAndDispatch()
	f.buildPools()

	return f, nil
}

func (f *Frame) buildStores() error {
	var err error
	if f.IngestStore, err = ingest.NewSQLStore(f.DB); err != nil {
		return err
	}
	if f.DocStore, err = documents.NewSQLStore(f.DB); err != nil {
		return err
	}
	f.Documents = documents.NewService(f.DocStore)
	if f.AnomalyStore, err = anomaly.NewStore(f.DB); err != nil {
		return err
	}
	if f.ContradictionStore, err = contradiction.NewStore(f.DB); err != nil {
		return err
	}
	if f.RegexPresets, err = regexengine.NewPresetStore(f.DB); err != nil {
		return err
	}
	f.Regex = regexengine.NewEngine(f.DB)
	if f.AuditLog, err = database.NewAuditLogStore(f.DB); err != nil {
		return err
	}
	if f.Events, err = database.NewEventLogger(f.DB); err != nil {
		return err
	}
	if f.Meta, err = database.NewSystemMetadataStore(f.DB); err != nil {
		return err
	}
	return nil
}

// buildQueue dials Redis for the durable queue.Service; when Redis is
// unreachable it falls back to an in-process MemoryQueue (single-node,
// non-durable) rather than refusing to start, mirroring the Qdrant
// fallback below.
func (f *Frame) buildQueue(ctx context.Context) {
	client, err := config.NewRedisClient(ctx, f.Config.RedisAddr, f.Config.RedisDB, f.Config.RedisPassword)
	if err != nil {
		logger.Warnf("frame: redis unavailable, falling back to in-process job queue (non-durable): %v", err)
		f.Queue = queue.NewMemoryQueue()
		return
	}
	f.redisConn = client
	f.Redis = client
	f.Queue = queue.NewRedisQueue(client)
}

func (f *Frame) buildVectorDB(ctx context.Context) {
	conn, err := grpc.DialContext(ctx, f.Config.QdrantAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.Warnf("frame: failed to dial qdrant at %s: %v, using mock vector db (UI-only mode)", f.Config.QdrantAddr, err)
		f.VectorDB = vectordb.NewMockVectorDB()
		return
	}
	vdb, err := vectordb.NewQdrantVectorDB(conn, resolveCollection)
	if err != nil {
		logger.Warnf("frame: failed to init qdrant vector db: %v, using mock vector db (UI-only mode)", err)
		conn.Close()
		f.VectorDB = vectordb.NewMockVectorDB()
		return
	}
	f.qdrantConn = conn
	f.VectorDB = vdb
	logger.Printf("frame: connected to qdrant at %s", f.Config.QdrantAddr)
}

// resolveCollection is the identity Resolver: this deployment runs a
// single project, so logical and physical collection names coincide.
// A multi-tenant build would resolve "documents" -> "org_<id>_documents"
// here instead.
func resolveCollection(logical string) string { return logical }

const (
	collectionDocuments = "documents"
)

func (f *Frame) buildEmbeddings() {
	base := map[string]string{
		"api_key":  os.Getenv("OPENAI_API_KEY"),
		"base_url": f.Config.EmbedBaseURL,
	}
	factory := embeddings.DefaultFactory(base)
	f.Embeddings = embeddings.NewManager(factory, f.Config.EmbedCacheSize, f.VectorDB, f.Bus, []string{collectionDocuments})

	model := f.Config.EmbedderModel
	if model == "" {
		model = f.Config.EmbedderType + ":"
	}
	f.EmbeddingBound = embeddings.Bound{Manager: f.Embeddings, DefaultModel: model}

	f.ChunkMethod = chunk.Method(f.Config.ChunkMethod)
	f.Chunker = chunk.New(f.Config.ChunkSize, f.Config.ChunkOverlap)
	f.Chunker.Embedder = f.EmbeddingBound

	if _, err := f.VectorDB.ListCollections(context.Background()); err == nil {
		dim := 0
		if info, err := f.Embeddings.Info(model); err == nil {
			dim = info.Dimensions
		}
		if dim > 0 {
			_ = f.VectorDB.CreateCollection(context.Background(), collectionDocuments, dim, vectordb.MetricCosine)
		}
	}
}

func (f *Frame) buildSearch() {
	f.Semantic = search.NewSemanticEngine(f.EmbeddingBound, f.VectorDB, collectionDocuments)
	f.Keyword = search.NewKeywordEngine(f.DB)
	f.Hybrid = search.NewHybridEngine(f.Semantic, f.Keyword)
}

// buildLLMAndContradiction wires the LLM client and the contradiction
// pipeline's verifier: an LLMVerifier when an API key is configured,
// falling back to the dependency-free HeuristicVerifier otherwise (the
// same graceful-degradation idiom as the vector DB and queue).
func (f *Frame) buildLLMAndContradiction() {
	apiKey := os.Getenv("OPENAI_API_KEY")
	f.LLM = llm.New(llm.Config{
		APIKey:  apiKey,
		BaseURL: f.Config.LLMBaseURL,
		Model:   f.Config.LLMModel,
		Timeout: 30 * time.Second,
	})

	var verifier contradiction.Verifier
	if apiKey != "" {
		verifier = contradiction.NewLLMVerifier(f.LLM)
	} else {
		logger.Printf("frame: no OPENAI_API_KEY set, contradiction verification uses the heuristic verifier")
		verifier = contradiction.HeuristicVerifier{}
	}
	f.Contradiction = contradiction.NewPipeline(f.EmbeddingBound, verifier)
	if f.Config.ContradictionThreshold > 0 {
		f.Contradiction.Threshold = f.Config.ContradictionThreshold
	}
}

// buildAnomaly assembles the detector set and seeds the Statistical
// detector from the last persisted corpus-stats recalculation, if any.
func (f *Frame) buildAnomaly(ctx context.Context) {
	corpus, err := jobs.LoadCorpusStats(f.Meta)
	if err != nil {
		logger.Warnf("frame: failed to load persisted corpus stats, starting with an empty baseline: %v", err)
		corpus = map[string]anomaly.CorpusStats{}
	}

	f.AnomalyDetectors = []anomaly.Detector{
		anomaly.NewRedFlagDetector(),
		anomaly.NewHiddenContentDetector(),
		anomaly.NewStatisticalDetector(corpus, f.Config.AnomalyZScoreThreshold),
	}
	f.CorpusStats = &jobs.CorpusStatsRecalculator{Documents: f.DocStore, Meta: f.Meta}
}

func (f *Frame) buildIngestAndDispatch() {
	f.Ingest = ingest.NewManager(f.Config.StorageRoot, f.IngestStore, classify.OCRAuto)
	f.Dispatcher = dispatch.New(f.Queue, f.IngestStore, f.Bus, f.Documents)
}

// buildPools constructs one worker.Pool per worker_route name
// classify.go can hand out. cpu-extract/cpu-light run the real
// extract+chunk pipeline; the GPU/OCR pools (no such backend exists
// anywhere in the reference corpus) run a degraded stub that still lets
// the dispatcher's state machine reach COMPLETED instead of stalling.
func (f *Frame) buildPools() {
	leaseTTL := time.Duration(f.Config.LeaseTTLSeconds) * time.Second

	newPool := func(name string, concurrency int, h worker.Handler) *worker.Pool {
		return &worker.Pool{
			Name:        name,
			Queue:       f.Queue,
			Handler:     f.wrapHandler(name, h),
			Concurrency: concurrency,
			LeaseTTL:    leaseTTL,
		}
	}

	f.Pools = []*worker.Pool{
		newPool("cpu-extract", f.Config.WorkerCount, f.extractHandler),
		newPool("cpu-light", f.Config.WorkerCount, f.extractHandler),
		newPool("cpu-archive", 1, f.archiveStubHandler),
		newPool("cpu-image", 1, f.degradedStubHandler("cpu-image: OCR preprocessing")),
		newPool("gpu-paddle", 1, f.degradedStubHandler("gpu-paddle: PaddleOCR")),
		newPool("gpu-qwen", 1, f.degradedStubHandler("gpu-qwen: Qwen-VL OCR")),
		newPool("gpu-whisper", 1, f.degradedStubHandler("gpu-whisper: Whisper ASR")),
		newPool(jobs.JobTypeRecalcCorpusStats, 1, jobs.NewCorpusStatsHandler(f.CorpusStats)),
	}
}

// wrapHandler adapts a plain worker.Handler into one that also emits the
// worker.job.completed / worker.job.failed events internal/dispatch
// subscribes to, since worker.Pool itself only talks to queue.Service
// and never touches the bus.
func (f *Frame) wrapHandler(pool string, h worker.Handler) worker.Handler {
	return func(ctx context.Context, rec *queue.Record) (map[string]interface{}, error) {
		result, err := h(ctx, rec)
		if err != nil {
			_ = f.Bus.Emit(ctx, "worker.job.failed", map[string]interface{}{
				"job_id": rec.JobID, "pool": pool, "error": err.Error(),
			}, pool)
			return nil, err
		}
		_ = f.Bus.Emit(ctx, "worker.job.completed", map[string]interface{}{
			"job_id": rec.JobID, "pool": pool, "result": result,
		}, pool)
		return result, nil
	}
}

// extractHandler extracts a file's text then splits it into
// internal/chunk segments, handing documents.RegisterFromJob the
// "pages" []interface{} shape its pagesFromResult already expects
// (each chunk becomes one page) instead of leaving chunking unwired.
func (f *Frame) extractHandler(ctx context.Context, rec *queue.Record) (map[string]interface{}, error) {
	path, _ := rec.Payload["file_path"].(string)
	if path == "" {
		path, _ = rec.Payload["path"].(string)
	}
	res, err := extractText(path)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{"text": res.Text, "page_count": res.Pages}
	if res.Text == "" {
		return result, nil
	}

	chunks, err := f.Chunker.Chunk(ctx, f.ChunkMethod, res.Text)
	if err != nil {
		logger.Warnf("chunking job %s failed, falling back to unchunked text: %v", rec.JobID, err)
		return result, nil
	}
	pages := make([]interface{}, 0, len(chunks))
	for _, c := range chunks {
		pages = append(pages, c.Text)
	}
	result["pages"] = pages
	return result, nil
}

// extractText routes to internal/extract's decoder table, falling back
// to a raw read for the plain-text formats (.json, .csv) that extract
// has no dedicated decoder for but classify.go still routes to
// cpu-light.
func extractText(path string) (extract.Result, error) {
	if path == "" {
		return extract.Result{}, apperr.Validation("empty file path")
	}
	if extract.IsSupported(path) {
		return extract.Extract(path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return extract.Result{}, apperr.DependencyUnavailable(err, "read %s", path)
	}
	return extract.Result{Text: string(raw), Pages: 1}, nil
}

// archiveStubHandler acknowledges an archive-route job without
// recursing into it: expanding and re-ingesting each member file is a
// genuinely separate intake operation (each member needs its own
// classify+route+dispatch cycle), not a single worker step, and is
// tracked as follow-on scope rather than implemented as a stub that
// would silently skip content.
func (f *Frame) archiveStubHandler(ctx context.Context, rec *queue.Record) (map[string]interface{}, error) {
	logger.Warnf("cpu-archive: job %s acknowledged without expansion; archive recursion is not yet wired", rec.JobID)
	return map[string]interface{}{"text": "", "archive_expanded": false}, nil
}

// degradedStubHandler builds a Handler for a worker_route step with no
// real backend in this build (no OCR/ASR library anywhere in the
// reference corpus). It completes the step so the dispatcher can still
// advance the job to COMPLETED, recording that the content was not
// actually extracted.
func (f *Frame) degradedStubHandler(label string) worker.Handler {
	return func(ctx context.Context, rec *queue.Record) (map[string]interface{}, error) {
		logger.Warnf("%s: job %s completed in degraded mode (no backend configured)", label, rec.JobID)
		return map[string]interface{}{"text": "", "degraded": true, "backend": label}, nil
	}
}

// Start runs every worker pool and a curated set of bus subscriptions
// that persist events to database.EventLogger (bus.Bus has no wildcard
// subscribe, so the topic list is explicit).
func (f *Frame) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	for _, topic := range []string{
		"ingest.job.completed", "ingest.job.failed",
		"embed.model.switched",
	} {
		f.Bus.Subscribe(topic, f.logEvent)
	}

	return worker.RunPools(ctx, f.Pools)
}

func (f *Frame) logEvent(ctx context.Context, ev bus.Event) error {
	name, _ := ev.Payload["filename"].(string)
	details := fmt.Sprintf("%v", ev.Payload)
	return f.Events.LogEvent(ev.Type, name, details)
}

// Close releases every external connection the Frame opened.
func (f *Frame) Close() error {
	if f.cancel != nil {
		f.cancel()
	}
	if f.redisConn != nil {
		_ = f.redisConn.Close()
	}
	if f.qdrantConn != nil {
		_ = f.qdrantConn.Close()
	}
	return f.DB.Close()
}
