// Package archive holds the outbound sync queue: a FIFO buffer of minimal
// item envelopes destined for an external durable archive outside the
// primary backing store.
package archive

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/stratum/internal/knowledge"
	"go.uber.org/zap"
)

// Envelope is the minimal record written to the external archive.
type Envelope struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Kind      string            `json:"kind"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Archiver writes one discrete record per envelope, named by item id.
type Archiver interface {
	Store(env Envelope) error
}

// DeadLetterArchiver optionally persists envelopes that exhausted their
// retry budget, grouped under a drain batch id.
type DeadLetterArchiver interface {
	Archiver
	StoreDeadLetter(env Envelope, batch string) error
}

// DefaultMaxAttempts bounds sync retries before an envelope is dead-lettered.
const DefaultMaxAttempts = 5

// ShouldSync reports whether an item qualifies for the external archive:
// high importance, academic kind, or frequently accessed.
func ShouldSync(it *knowledge.Item) bool {
	if it.Importance >= knowledge.ImportanceHigh {
		return true
	}
	if it.Kind == knowledge.KindAcademic {
		return true
	}
	return it.AccessCount > 5
}

type pendingEnvelope struct {
	env      Envelope
	attempts int
}

// Queue is an in-memory FIFO of envelopes awaiting drain. Delivery is
// at-least-once: failed writes requeue at the tail until the attempt budget
// runs out, then the envelope moves to the dead-letter list.
type Queue struct {
	mu          sync.Mutex
	pending     []pendingEnvelope
	pendingIDs  map[string]bool
	synced      map[string]bool
	dead        []Envelope
	maxAttempts int
	log         *zap.SugaredLogger
}

// NewQueue creates a queue with the given retry budget (0 means the default).
func NewQueue(maxAttempts int, logger *zap.SugaredLogger) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Queue{
		pendingIDs:  make(map[string]bool),
		synced:      make(map[string]bool),
		maxAttempts: maxAttempts,
		log:         logger,
	}
}

// Enqueue appends an envelope for the item. Items already pending or already
// synced are skipped; returns whether the envelope was queued.
func (q *Queue) Enqueue(it *knowledge.Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pendingIDs[it.ID] || q.synced[it.ID] {
		return false
	}

	env := Envelope{
		ID:        it.ID,
		Content:   it.Content,
		Kind:      string(it.Kind),
		Metadata:  it.Metadata,
		Timestamp: it.CreatedAt,
	}
	q.pending = append(q.pending, pendingEnvelope{env: env})
	q.pendingIDs[it.ID] = true
	return true
}

// Drain writes every queued envelope through the archiver. Failures requeue
// at the tail; envelopes that exhaust the attempt budget are dead-lettered.
// Returns the number synced and the number requeued for retry.
func (q *Queue) Drain(a Archiver) (synced, requeued int) {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	batchID := uuid.NewString()
	var retry []pendingEnvelope
	var dead []pendingEnvelope

	for _, p := range batch {
		if err := a.Store(p.env); err != nil {
			p.attempts++
			if p.attempts >= q.maxAttempts {
				q.log.Warnw("sync envelope dead-lettered",
					"id", p.env.ID, "attempts", p.attempts, "batch", batchID, "error", err)
				dead = append(dead, p)
				continue
			}
			q.log.Debugw("sync write failed, requeued",
				"id", p.env.ID, "attempts", p.attempts, "error", err)
			retry = append(retry, p)
			continue
		}
		synced++
		q.mu.Lock()
		q.synced[p.env.ID] = true
		delete(q.pendingIDs, p.env.ID)
		q.mu.Unlock()
	}

	if dla, ok := a.(DeadLetterArchiver); ok {
		for _, p := range dead {
			if err := dla.StoreDeadLetter(p.env, batchID); err != nil {
				q.log.Warnw("dead-letter write failed", "id", p.env.ID, "error", err)
			}
		}
	}

	q.mu.Lock()
	q.pending = append(q.pending, retry...)
	for _, p := range dead {
		delete(q.pendingIDs, p.env.ID)
		q.dead = append(q.dead, p.env)
	}
	q.mu.Unlock()

	return synced, len(retry)
}

// Depth returns the number of envelopes awaiting drain.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// SyncedCount returns how many distinct items have been archived.
func (q *Queue) SyncedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.synced)
}

// DeadLetters returns envelopes that exhausted their retry budget.
func (q *Queue) DeadLetters() []Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Envelope, len(q.dead))
	copy(out, q.dead)
	return out
}
