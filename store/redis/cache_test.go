package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbxark/tallyentry/store"
)

func newTestCache(t *testing.T) *Cache[store.Entry] {
	t.Helper()
	addr := os.Getenv("TALLYENTRY_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TALLYENTRY_REDIS_ADDR to run redis tests")
	}
	c, err := New[store.Entry](addr, WithPrefix("tally-test-"+uuid.NewString()), WithTTL(time.Minute))
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	entry := store.Entry{RecordID: "7", Owner: "typist", Status: store.EntryInProgress, Data: json.RawMessage(`{"n":1}`)}
	if err := c.Set(ctx, "7", entry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "7")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Owner != "typist" || string(got.Data) != `{"n":1}` {
		t.Errorf("entry = %+v", got)
	}
	if err := c.Del(ctx, "7"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if ok, _ := c.Exists(ctx, "7"); ok {
		t.Errorf("entry survived Del")
	}
}

func TestNewRequiresAddr(t *testing.T) {
	if _, err := New[store.Entry](""); err == nil {
		t.Errorf("empty addr accepted")
	}
}
