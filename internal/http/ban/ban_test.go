package ban

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PeterGeers/myadmin/internal/redissvc"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
	sent     chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan struct{}, 10)}
}

func (f *fakeNotifier) Send(subject, html string) error {
	f.mu.Lock()
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, html)
	f.mu.Unlock()
	f.sent <- struct{}{}
	return nil
}

func quietLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetOutput(io.Discard)
	return log, hook
}

func TestGuard_BansAfterStrikes(t *testing.T) {
	log, hook := quietLogger()
	notifier := newFakeNotifier()
	store := NewMemoryStore()
	g := NewGuard(store, 3, time.Minute, 15*time.Minute, notifier, log)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if g.Strike(ctx, "10.0.0.1", "/api/transactions") {
			t.Fatalf("strike %d should not ban", i+1)
		}
	}
	if !g.Strike(ctx, "10.0.0.1", "/api/transactions") {
		t.Fatal("third strike should ban")
	}
	if !g.IsBanned(ctx, "10.0.0.1") {
		t.Error("expected client to be banned")
	}
	if g.IsBanned(ctx, "10.0.0.2") {
		t.Error("other client must not be banned")
	}

	select {
	case <-notifier.sent:
	case <-time.After(time.Second):
		t.Fatal("expected ban alert email")
	}
	if !strings.Contains(notifier.subjects[0], "10.0.0.1") {
		t.Errorf("unexpected alert subject %q", notifier.subjects[0])
	}
	if hook.LastEntry() == nil || hook.LastEntry().Message != "client banned" {
		t.Errorf("expected ban log entry, got %+v", hook.LastEntry())
	}
}

func TestGuard_ScopedLogger(t *testing.T) {
	log, hook := quietLogger()
	g := NewGuard(NewMemoryStore(), 1, time.Minute, time.Minute, nil, log.WithField("component", "ban"))

	if !g.Strike(context.Background(), "10.0.0.9", "/login") {
		t.Fatal("expected ban on first strike")
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Message != "client banned" {
		t.Fatalf("expected ban log entry, got %+v", entry)
	}
	if entry.Data["component"] != "ban" || entry.Data["target"] != "10.0.0.9" {
		t.Errorf("expected scoped fields on the entry, got %v", entry.Data)
	}
}

func TestMemoryStore_BanExpires(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	ctx := context.Background()

	store.Strike(ctx, "a", time.Minute)
	now = now.Add(2 * time.Minute)
	if n, _ := store.Strike(ctx, "a", time.Minute); n != 1 {
		t.Errorf("expected strike window to restart, got %d", n)
	}

	store.Ban(ctx, "a", 10*time.Minute)
	if banned, _ := store.IsBanned(ctx, "a"); !banned {
		t.Error("expected ban")
	}
	now = now.Add(11 * time.Minute)
	if banned, _ := store.IsBanned(ctx, "a"); banned {
		t.Error("expected ban to expire")
	}
}

func TestRedisStore_StrikesAndSummary(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := NewRedisStore(redissvc.NewRedisService(rdb, context.Background()))

	log, _ := quietLogger()
	notifier := newFakeNotifier()
	g := NewGuard(store, 2, time.Minute, time.Hour, notifier, log)
	ctx := context.Background()

	g.Strike(ctx, "1.2.3.4", "/login")
	if ttl := mr.TTL("ratelimit:strikes:1.2.3.4"); ttl != time.Minute {
		t.Errorf("expected strike window TTL, got %v", ttl)
	}
	if !g.Strike(ctx, "1.2.3.4", "/login") {
		t.Fatal("expected ban on second strike")
	}
	<-notifier.sent
	if ttl := mr.TTL("ratelimit:banned:1.2.3.4"); ttl != time.Hour {
		t.Errorf("expected ban TTL of 1h, got %v", ttl)
	}
	if mr.Exists("ratelimit:strikes:1.2.3.4") {
		t.Error("strikes should reset after a ban")
	}

	n, err := g.SendDailySummary(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one summarised ban, got %d (%v)", n, err)
	}
	<-notifier.sent
	body := notifier.bodies[len(notifier.bodies)-1]
	if !strings.Contains(body, "Total bans: <strong>1</strong>") || !strings.Contains(body, "<code>/login</code>: 1") {
		t.Errorf("unexpected summary body %s", body)
	}
	if mr.Exists(DailyBanLogKey) {
		t.Error("ban log should be cleared after the summary")
	}
	if n, _ := g.SendDailySummary(ctx); n != 0 {
		t.Errorf("expected empty second summary, got %d", n)
	}
}
