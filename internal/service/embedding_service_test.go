package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/duolog/internal/db"
	"github.com/duolog/internal/vector"
)

type fakeEmbedder struct {
	vec      []float32
	failures int
	calls    int
	texts    []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	f.texts = append(f.texts, text)
	if f.calls <= f.failures {
		return nil, errors.New("embedding backend unavailable")
	}
	return f.vec, nil
}

type fakeStore struct {
	items   map[string]vector.Item
	matches []vector.Match
	upserts []vector.Item
	deleted []string

	upsertErr   error
	upsertFails int
	upsertCalls int
	fetchErr    error
	queryErr    error
	deleteErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]vector.Item)}
}

func (f *fakeStore) Upsert(ctx context.Context, item vector.Item) error {
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.upsertCalls <= f.upsertFails {
		return errors.New("upsert rejected")
	}
	f.upserts = append(f.upserts, item)
	f.items[item.ID] = item
	return nil
}

func (f *fakeStore) Fetch(ctx context.Context, id string) (*vector.Item, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeStore) Query(ctx context.Context, values []float32, topK int) ([]vector.Match, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if topK < len(f.matches) {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

func (f *fakeStore) Delete(ctx context.Context, ids ...string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

func TestEmbeddingServiceIndexPostWritesIdentityVector(t *testing.T) {
	gdb := setupServiceTestDB(t)

	identity := createTestPost(t, gdb, db.Post{Slug: "vector-post", Language: "zh", Title: "向量", Content: "正文"})
	translation := createTestTranslation(t, gdb, identity, "en")

	embedder := &fakeEmbedder{vec: []float32{0.5, 0.25}}
	store := newFakeStore()
	svc := NewEmbeddingService(gdb, embedder, store)
	svc.sleep = func(time.Duration) {}

	// 传入译文 ID 也应当归一到原文向量
	if err := svc.IndexPost(context.Background(), translation.ID); err != nil {
		t.Fatalf("index post: %v", err)
	}

	if len(store.upserts) != 1 {
		t.Fatalf("expected one upsert, got %d", len(store.upserts))
	}
	item := store.upserts[0]
	if item.ID != VectorID(identity.ID) {
		t.Fatalf("expected identity vector id, got %q", item.ID)
	}
	if item.Metadata.Slug != "vector-post" || item.Metadata.Status != db.PostStatusPublished {
		t.Fatalf("unexpected metadata %+v", item.Metadata)
	}
	if item.Metadata.PublishedAt != identity.CreatedAt.Unix() {
		t.Fatalf("expected publishedAt %d, got %d", identity.CreatedAt.Unix(), item.Metadata.PublishedAt)
	}
	if len(embedder.texts) != 1 || !strings.HasPrefix(embedder.texts[0], "向量\n\n") {
		t.Fatalf("embedded text should combine identity title and content, got %q", embedder.texts)
	}
}

func TestEmbeddingServiceRetriesWithBackoff(t *testing.T) {
	gdb := setupServiceTestDB(t)
	post := createTestPost(t, gdb, db.Post{Slug: "retry-post", Language: "zh"})

	embedder := &fakeEmbedder{vec: []float32{1}, failures: 2}
	store := newFakeStore()
	svc := NewEmbeddingService(gdb, embedder, store)

	var delays []time.Duration
	svc.sleep = func(d time.Duration) { delays = append(delays, d) }

	if err := svc.IndexPost(context.Background(), post.ID); err != nil {
		t.Fatalf("index post should recover after retries: %v", err)
	}
	if embedder.calls != 3 {
		t.Fatalf("expected 3 embed attempts, got %d", embedder.calls)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("unexpected backoff delays %v", delays)
	}
}

func TestEmbeddingServiceGivesUpAfterMaxRetries(t *testing.T) {
	gdb := setupServiceTestDB(t)
	post := createTestPost(t, gdb, db.Post{Slug: "give-up", Language: "zh"})

	embedder := &fakeEmbedder{vec: []float32{1}, failures: 10}
	store := newFakeStore()
	svc := NewEmbeddingService(gdb, embedder, store)

	var delays []time.Duration
	svc.sleep = func(d time.Duration) { delays = append(delays, d) }

	if err := svc.IndexPost(context.Background(), post.ID); err == nil {
		t.Fatal("expected error once retries are exhausted")
	}
	if embedder.calls != 4 {
		t.Fatalf("expected 1 attempt + 3 retries, got %d", embedder.calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("unexpected delays %v", delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: want %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestEmbeddingServiceIndexMissingPost(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewEmbeddingService(gdb, &fakeEmbedder{vec: []float32{1}}, newFakeStore())
	svc.sleep = func(time.Duration) {}

	if err := svc.IndexPost(context.Background(), 999); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestEmbeddingServiceFindRelatedFiltersMatches(t *testing.T) {
	gdb := setupServiceTestDB(t)
	store := newFakeStore()
	svc := NewEmbeddingService(gdb, &fakeEmbedder{vec: []float32{1}}, store)
	svc.sleep = func(time.Duration) {}

	now := time.Now().Unix()
	store.items["post-1"] = vector.Item{ID: "post-1", Values: []float32{1, 0}}
	store.matches = []vector.Match{
		{ID: "post-1", Score: 1.0, Metadata: vector.Metadata{PostID: 1, Status: db.PostStatusPublished, PublishedAt: now - 10}},
		{ID: "post-2", Score: 0.9, Metadata: vector.Metadata{PostID: 2, Title: "邻居", Slug: "neighbour", Status: db.PostStatusPublished, PublishedAt: now - 10}},
		{ID: "post-3", Score: 0.8, Metadata: vector.Metadata{PostID: 3, Status: db.PostStatusDraft, PublishedAt: now - 10}},
		{ID: "post-4", Score: 0.7, Metadata: vector.Metadata{PostID: 4, Status: db.PostStatusPublished, PublishedAt: now + 3600}},
		{ID: "post-5", Score: 0.6, Metadata: vector.Metadata{PostID: 5, Title: "第二邻居", Slug: "second", Status: db.PostStatusPublished, PublishedAt: now - 10}},
	}

	related := svc.FindRelated(context.Background(), 1, 4)
	if len(related) != 2 {
		t.Fatalf("expected 2 related posts, got %d: %+v", len(related), related)
	}
	if related[0].PostID != 2 || related[1].PostID != 5 {
		t.Fatalf("unexpected related order %+v", related)
	}
	if related[0].Score != 0.9 {
		t.Fatalf("score should pass through, got %v", related[0].Score)
	}
}

func TestEmbeddingServiceFindRelatedDegradesToEmpty(t *testing.T) {
	gdb := setupServiceTestDB(t)

	// 向量缺失
	store := newFakeStore()
	svc := NewEmbeddingService(gdb, &fakeEmbedder{vec: []float32{1}}, store)
	if got := svc.FindRelated(context.Background(), 7, 4); len(got) != 0 {
		t.Fatalf("missing vector should yield empty result, got %+v", got)
	}

	// 索引读失败
	store.fetchErr = errors.New("index offline")
	if got := svc.FindRelated(context.Background(), 7, 4); len(got) != 0 {
		t.Fatalf("fetch failure should degrade to empty, got %+v", got)
	}

	// 查询失败
	store = newFakeStore()
	store.items["post-7"] = vector.Item{ID: "post-7", Values: []float32{1}}
	store.queryErr = errors.New("query timeout")
	svc = NewEmbeddingService(gdb, &fakeEmbedder{vec: []float32{1}}, store)
	if got := svc.FindRelated(context.Background(), 7, 4); len(got) != 0 {
		t.Fatalf("query failure should degrade to empty, got %+v", got)
	}
}

func TestEmbeddingServiceDeleteEmbedding(t *testing.T) {
	gdb := setupServiceTestDB(t)
	store := newFakeStore()
	svc := NewEmbeddingService(gdb, &fakeEmbedder{vec: []float32{1}}, store)
	svc.sleep = func(time.Duration) {}

	if err := svc.DeleteEmbedding(context.Background(), 3); err != nil {
		t.Fatalf("delete embedding: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "post-3" {
		t.Fatalf("unexpected deleted ids %v", store.deleted)
	}
}
