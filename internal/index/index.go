// Package index implements the retrieval index (C3): per-session
// chunking, embedding, an on-disk content-addressed cache, and
// inner-product nearest-neighbour lookup, with async rebuilds and a
// building/ready status readers can observe.
package index

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adhocore/gronx"

	"github.com/agentrt/agentrt/internal/store"
)

// Config holds the index's tunables (SPEC_FULL.md §6 env vars).
type Config struct {
	DataRoot           string
	DefaultTopK        int
	MaxEmbedWorkers    int
	EmbedRatePerSecond float64
	CacheGCCron        string
	CacheRetentionDays int
}

type snapshot struct {
	rulesHash string
	chunks    []Chunk
	vecs      [][]float32
}

// sessionSlot holds one session's (or the no-session slot's, keyed by
// "") rebuild state. The snapshot pointer is the sole piece of state a
// build swaps; readers load it without ever observing a half-built
// index, per spec.md §4.3's concurrency guarantee.
type sessionSlot struct {
	snapshot atomic.Pointer[snapshot]
	building atomic.Bool
	reqSeq   atomic.Uint64
	pending  atomic.Bool
}

type rebuildJob struct {
	sessionID string
}

// Status reports a session's retrieval readiness.
type Status struct {
	Ready     bool
	Building  bool
	NChunks   int
	RulesHash string
}

// Index implements C3.
type Index struct {
	rules    *store.RuleContextRepo
	embedder Embedder
	cfg      Config
	limiter  *embedLimiter

	slots sync.Map // sessionID -> *sessionSlot
	jobs  chan rebuildJob
	stop  chan struct{}
	wg    sync.WaitGroup
}

// New constructs an Index and starts its rebuild worker pool and cache
// GC scheduler. Call Close to stop both.
func New(cfg Config, rules *store.RuleContextRepo, embedder Embedder) *Index {
	ix := &Index{
		rules:    rules,
		embedder: embedder,
		cfg:      cfg,
		limiter:  newEmbedLimiter(cfg.EmbedRatePerSecond, 4),
		jobs:     make(chan rebuildJob, 256),
		stop:     make(chan struct{}),
	}

	workers := rebuildWorkerCount(cfg.MaxEmbedWorkers)
	for i := 0; i < workers; i++ {
		ix.wg.Add(1)
		go ix.rebuildWorker()
	}

	ix.wg.Add(1)
	go ix.gcScheduler()

	return ix
}

// Close stops the rebuild workers and GC scheduler.
func (ix *Index) Close() {
	close(ix.stop)
	close(ix.jobs)
	ix.wg.Wait()
}

func (ix *Index) rebuildWorker() {
	defer ix.wg.Done()
	for job := range ix.jobs {
		ix.rebuildSession(job.sessionID)
	}
}

func (ix *Index) loadOrCreateSlot(sessionID string) *sessionSlot {
	v, _ := ix.slots.LoadOrStore(sessionID, &sessionSlot{})
	return v.(*sessionSlot)
}

// Invalidate requests an async rebuild for sessionID. Repeated
// invalidations while a rebuild is already queued coalesce into a single
// pending job (last-writer-wins via the monotonic reqSeq counter), per
// spec.md §4.3 and the "retrieval rebuild under a session switch" design
// note in spec.md §9. sessionID == "" addresses the shared/no-session
// slot.
func (ix *Index) Invalidate(sessionID string) {
	slot := ix.loadOrCreateSlot(sessionID)
	slot.reqSeq.Add(1)
	if slot.pending.CompareAndSwap(false, true) {
		select {
		case ix.jobs <- rebuildJob{sessionID: sessionID}:
		default:
			// Queue full; drop. The next Invalidate will retry, and
			// the in-progress build (if any) will pick up the newer
			// reqSeq at completion and be superseded correctly.
			slot.pending.Store(false)
		}
	}
}

// rebuildSession does one rebuild pass: fetch active rows, chunk, embed
// (from cache when available), and atomically swap the snapshot unless
// a newer rebuild was requested while this one was in flight.
func (ix *Index) rebuildSession(sessionID string) {
	slot := ix.loadOrCreateSlot(sessionID)
	mySeq := slot.reqSeq.Load()
	slot.pending.Store(false)
	slot.building.Store(true)
	defer slot.building.Store(false)

	var sessKey *string
	if sessionID != "" {
		sessKey = &sessionID
	}
	rows, err := ix.rules.ListActive(sessKey)
	if err != nil {
		return
	}

	var allChunks []Chunk
	contents := make([]string, 0, len(rows))
	for _, row := range rows {
		contents = append(contents, row.Content)
		allChunks = append(allChunks, chunkText(row.Content, row.ID)...)
	}
	for i := range allChunks {
		allChunks[i].ChunkID = i
	}
	hash := rulesHash(contents)

	if len(allChunks) == 0 {
		if slot.reqSeq.Load() == mySeq {
			slot.snapshot.Store(&snapshot{rulesHash: hash})
		}
		return
	}

	dim := ix.embedder.Dimension()
	if cachedChunks, cachedVecs, _, ok := loadCache(ix.cfg.DataRoot, hash, dim); ok && len(cachedChunks) == len(allChunks) {
		if slot.reqSeq.Load() != mySeq {
			return
		}
		slot.snapshot.Store(&snapshot{rulesHash: hash, chunks: cachedChunks, vecs: cachedVecs})
		return
	}

	texts := make([]string, len(allChunks))
	for i, c := range allChunks {
		texts[i] = c.Text
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := ix.limiter.wait(ctx); err != nil {
		return
	}
	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vecs) != len(allChunks) {
		return
	}
	normalizeAll(vecs)

	if slot.reqSeq.Load() != mySeq {
		// Superseded by a newer request; discard this in-flight result.
		return
	}

	_ = writeCache(ix.cfg.DataRoot, hash, allChunks, vecs, ix.embedder.Name())
	slot.snapshot.Store(&snapshot{rulesHash: hash, chunks: allChunks, vecs: vecs})
}

// Retrieve embeds queryText and returns the top-k chunks for sessionID.
// The second return is false (with a nil slice) when the session has no
// ready snapshot yet, letting the orchestrator decide whether to proceed
// without retrieved context or wait.
func (ix *Index) Retrieve(ctx context.Context, sessionID, queryText string, k int) ([]Hit, bool) {
	v, ok := ix.slots.Load(sessionID)
	if !ok {
		return nil, false
	}
	slot := v.(*sessionSlot)
	snap := slot.snapshot.Load()
	if snap == nil || len(snap.chunks) == 0 {
		return nil, false
	}
	if k <= 0 {
		k = ix.cfg.DefaultTopK
	}
	if k <= 0 {
		k = 5
	}

	vecs, err := ix.embedder.EmbedBatch(ctx, []string{queryText})
	if err != nil || len(vecs) == 0 {
		return nil, false
	}
	q := vecs[0]
	normalize(q)
	return searchTopK(q, snap.chunks, snap.vecs, k), true
}

// StatusOf reports sessionID's current index state.
func (ix *Index) StatusOf(sessionID string) Status {
	v, ok := ix.slots.Load(sessionID)
	if !ok {
		return Status{}
	}
	slot := v.(*sessionSlot)
	st := Status{Building: slot.building.Load()}
	if snap := slot.snapshot.Load(); snap != nil {
		st.Ready = true
		st.NChunks = len(snap.chunks)
		st.RulesHash = snap.rulesHash
	}
	return st
}

// gcScheduler sweeps stale rag_cache directories on the configured cron
// schedule, skipping hashes currently live for any session. Grounded on
// the teacher's adhocore/gronx dependency, unused in the copied tree
// (there it was wired for scheduled channel messages, a feature dropped
// per DESIGN.md); this is gronx's new, concrete home.
func (ix *Index) gcScheduler() {
	defer ix.wg.Done()

	expr := ix.cfg.CacheGCCron
	if expr == "" {
		expr = "0 * * * *" // hourly
	}
	g := gronx.New()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ix.stop:
			return
		case now := <-ticker.C:
			due, err := g.IsDue(expr, now)
			if err != nil || !due {
				continue
			}
			ix.runCacheGC()
		}
	}
}

func (ix *Index) runCacheGC() {
	retention := ix.cfg.CacheRetentionDays
	if retention <= 0 {
		retention = 7
	}
	cutoff := time.Now().Add(-time.Duration(retention) * 24 * time.Hour)

	keep := map[string]bool{}
	ix.slots.Range(func(_, value any) bool {
		slot := value.(*sessionSlot)
		if snap := slot.snapshot.Load(); snap != nil && snap.rulesHash != "" {
			keep[snap.rulesHash] = true
		}
		return true
	})

	_, _ = gcCacheOlderThan(ix.cfg.DataRoot, cutoff, keep)
}
