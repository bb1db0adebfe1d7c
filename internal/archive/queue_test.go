package archive

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lazypower/stratum/internal/knowledge"
)

func syncItem(id string) *knowledge.Item {
	return &knowledge.Item{
		ID:         id,
		Content:    "content " + id,
		Kind:       knowledge.KindAcademic,
		Importance: knowledge.ImportanceHigh,
		CreatedAt:  time.Now().Truncate(time.Millisecond),
		Metadata:   map[string]string{"origin": "test"},
	}
}

// flakyArchiver fails the first failUntil Store calls, then succeeds.
type flakyArchiver struct {
	failUntil int
	calls     int
	stored    []Envelope
	dead      []Envelope
}

func (f *flakyArchiver) Store(env Envelope) error {
	f.calls++
	if f.calls <= f.failUntil {
		return errors.New("archive unavailable")
	}
	f.stored = append(f.stored, env)
	return nil
}

func (f *flakyArchiver) StoreDeadLetter(env Envelope, batch string) error {
	f.dead = append(f.dead, env)
	return nil
}

func TestShouldSync(t *testing.T) {
	tests := []struct {
		name string
		item knowledge.Item
		want bool
	}{
		{"high importance", knowledge.Item{Kind: knowledge.KindFactual, Importance: knowledge.ImportanceHigh}, true},
		{"critical importance", knowledge.Item{Kind: knowledge.KindFactual, Importance: knowledge.ImportanceCritical}, true},
		{"academic kind", knowledge.Item{Kind: knowledge.KindAcademic, Importance: knowledge.ImportanceLow}, true},
		{"frequently accessed", knowledge.Item{Kind: knowledge.KindConversational, Importance: knowledge.ImportanceLow, AccessCount: 6}, true},
		{"five accesses is not enough", knowledge.Item{Kind: knowledge.KindConversational, Importance: knowledge.ImportanceLow, AccessCount: 5}, false},
		{"ordinary item", knowledge.Item{Kind: knowledge.KindFactual, Importance: knowledge.ImportanceStandard}, false},
	}

	for _, tt := range tests {
		if got := ShouldSync(&tt.item); got != tt.want {
			t.Errorf("%s: ShouldSync = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEnqueueDedup(t *testing.T) {
	q := NewQueue(0, nil)
	it := syncItem("a")

	if !q.Enqueue(it) {
		t.Error("first enqueue should succeed")
	}
	if q.Enqueue(it) {
		t.Error("duplicate enqueue while pending should be skipped")
	}
	if q.Depth() != 1 {
		t.Errorf("depth = %d, want 1", q.Depth())
	}
}

func TestDrainWritesEnvelopes(t *testing.T) {
	q := NewQueue(0, nil)
	it := syncItem("a")
	q.Enqueue(it)
	q.Enqueue(syncItem("b"))

	a := &flakyArchiver{}
	synced, requeued := q.Drain(a)

	if synced != 2 || requeued != 0 {
		t.Errorf("drain = (%d, %d), want (2, 0)", synced, requeued)
	}
	if q.Depth() != 0 {
		t.Errorf("depth = %d after drain, want 0", q.Depth())
	}
	if q.SyncedCount() != 2 {
		t.Errorf("synced count = %d, want 2", q.SyncedCount())
	}

	if len(a.stored) != 2 {
		t.Fatalf("stored %d envelopes, want 2", len(a.stored))
	}
	env := a.stored[0]
	if env.ID != it.ID || env.Content != it.Content || env.Kind != string(it.Kind) {
		t.Errorf("envelope = %+v, want fields copied from item", env)
	}
	if env.Metadata["origin"] != "test" {
		t.Errorf("envelope metadata = %v, want origin=test", env.Metadata)
	}

	// Already-synced items must not re-enter the queue
	if q.Enqueue(it) {
		t.Error("enqueue after successful sync should be skipped")
	}
}

func TestDrainRequeuesFailures(t *testing.T) {
	q := NewQueue(0, nil)
	q.Enqueue(syncItem("a"))

	a := &flakyArchiver{failUntil: 1}
	synced, requeued := q.Drain(a)
	if synced != 0 || requeued != 1 {
		t.Errorf("first drain = (%d, %d), want (0, 1)", synced, requeued)
	}
	if q.Depth() != 1 {
		t.Errorf("depth = %d, want 1 after requeue", q.Depth())
	}

	synced, requeued = q.Drain(a)
	if synced != 1 || requeued != 0 {
		t.Errorf("second drain = (%d, %d), want (1, 0)", synced, requeued)
	}
}

func TestDrainDeadLettersAfterMaxAttempts(t *testing.T) {
	q := NewQueue(2, nil)
	q.Enqueue(syncItem("a"))

	a := &flakyArchiver{failUntil: 100}
	q.Drain(a) // attempt 1, requeued
	q.Drain(a) // attempt 2, dead-lettered

	if q.Depth() != 0 {
		t.Errorf("depth = %d, want 0 after dead-lettering", q.Depth())
	}
	dead := q.DeadLetters()
	if len(dead) != 1 || dead[0].ID != syncItem("a").ID {
		t.Errorf("dead letters = %v, want the exhausted envelope", dead)
	}
	if len(a.dead) != 1 {
		t.Errorf("archiver recorded %d dead letters, want 1", len(a.dead))
	}
}

func TestDirArchiverRoundtrip(t *testing.T) {
	dir := t.TempDir()
	a, err := NewDirArchiver(filepath.Join(dir, "archive"))
	if err != nil {
		t.Fatalf("new dir archiver: %v", err)
	}

	env := Envelope{
		ID:        "item-1",
		Content:   "archived content",
		Kind:      "academic",
		Timestamp: time.Now().Truncate(time.Millisecond),
	}
	if err := a.Store(env); err != nil {
		t.Fatalf("store: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(a.Dir(), "item-1.json"))
	if err != nil {
		t.Fatalf("read archive file: %v", err)
	}
	var got Envelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != env.ID || got.Content != env.Content || got.Kind != env.Kind {
		t.Errorf("roundtrip = %+v, want %+v", got, env)
	}
}

func TestDirArchiverDeadLetter(t *testing.T) {
	a, err := NewDirArchiver(t.TempDir())
	if err != nil {
		t.Fatalf("new dir archiver: %v", err)
	}

	env := Envelope{ID: "item-1", Content: "x", Kind: "factual"}
	if err := a.StoreDeadLetter(env, "batch-7"); err != nil {
		t.Fatalf("store dead letter: %v", err)
	}

	path := filepath.Join(a.Dir(), "deadletter", "batch-7-item-1.json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("dead letter file missing: %v", err)
	}
}
