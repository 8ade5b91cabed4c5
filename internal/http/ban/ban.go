package ban

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PeterGeers/myadmin/internal/redissvc"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type LogEntry struct {
	Target  string    `json:"target"`
	Route   string    `json:"route"`
	Strikes int       `json:"strikes"`
	Time    time.Time `json:"time"`
}

// Store counts strikes, remembers bans and keeps the ban log until drained.
type Store interface {
	Strike(ctx context.Context, target string, window time.Duration) (int, error)
	Ban(ctx context.Context, target string, d time.Duration) error
	IsBanned(ctx context.Context, target string) (bool, error)
	Log(ctx context.Context, e LogEntry) error
	// Drain returns the logged entries and clears the log.
	Drain(ctx context.Context) ([]LogEntry, error)
}

const DailyBanLogKey = "ratelimit:banlog:daily"

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rs *redissvc.RedisService) *RedisStore {
	return &RedisStore{rdb: rs.Rdb()}
}

func (s *RedisStore) Strike(ctx context.Context, target string, window time.Duration) (int, error) {
	key := "ratelimit:strikes:" + target
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

func (s *RedisStore) Ban(ctx context.Context, target string, d time.Duration) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, "ratelimit:banned:"+target, "1", d)
	pipe.Del(ctx, "ratelimit:strikes:"+target)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) IsBanned(ctx context.Context, target string) (bool, error) {
	n, err := s.rdb.Exists(ctx, "ratelimit:banned:"+target).Result()
	return n > 0, err
}

func (s *RedisStore) Log(ctx context.Context, e LogEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, DailyBanLogKey, data).Err()
}

func (s *RedisStore) Drain(ctx context.Context) ([]LogEntry, error) {
	pipe := s.rdb.TxPipeline()
	items := pipe.LRange(ctx, DailyBanLogKey, 0, -1)
	pipe.Del(ctx, DailyBanLogKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	var entries []LogEntry
	for _, item := range items.Val() {
		var e LogEntry
		if err := json.Unmarshal([]byte(item), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

type strikeWindow struct {
	count   int
	expires time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	strikes map[string]strikeWindow
	banned  map[string]time.Time
	log     []LogEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		strikes: map[string]strikeWindow{},
		banned:  map[string]time.Time{},
	}
}

func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

func (s *MemoryStore) Strike(_ context.Context, target string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	w := s.strikes[target]
	if now.After(w.expires) {
		w = strikeWindow{expires: now.Add(window)}
	}
	w.count++
	s.strikes[target] = w
	return w.count, nil
}

func (s *MemoryStore) Ban(_ context.Context, target string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banned[target] = s.now().Add(d)
	delete(s.strikes, target)
	return nil
}

func (s *MemoryStore) IsBanned(_ context.Context, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.banned[target]
	if ok && s.now().After(until) {
		delete(s.banned, target)
		return false, nil
	}
	return ok, nil
}

func (s *MemoryStore) Log(_ context.Context, e LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, e)
	return nil
}

func (s *MemoryStore) Drain(context.Context) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.log
	s.log = nil
	return entries, nil
}

// Notifier sends ban alerts. A nil Notifier disables mail.
type Notifier interface {
	Send(subject, html string) error
}

// Guard turns repeated rate-limit violations into temporary bans.
type Guard struct {
	store    Store
	strikes  int
	window   time.Duration
	duration time.Duration
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewGuard(store Store, strikes int, window, duration time.Duration, notifier Notifier, log logrus.FieldLogger) *Guard {
	return &Guard{
		store:    store,
		strikes:  strikes,
		window:   window,
		duration: duration,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func (g *Guard) IsBanned(ctx context.Context, target string) bool {
	banned, err := g.store.IsBanned(ctx, target)
	if err != nil {
		g.log.WithError(err).Warn("ban lookup failed")
		return false
	}
	return banned
}

// Strike records a violation by target on route and reports whether it
// resulted in a ban.
func (g *Guard) Strike(ctx context.Context, target, route string) bool {
	n, err := g.store.Strike(ctx, target, g.window)
	if err != nil {
		g.log.WithError(err).Warn("strike count failed")
		return false
	}
	if n < g.strikes {
		return false
	}
	if err := g.store.Ban(ctx, target, g.duration); err != nil {
		g.log.WithError(err).Error("ban failed")
		return false
	}
	entry := LogEntry{Target: target, Route: route, Strikes: n, Time: g.now()}
	if err := g.store.Log(ctx, entry); err != nil {
		g.log.WithError(err).Warn("ban log failed")
	}
	g.log.WithFields(logrus.Fields{"target": target, "route": route, "strikes": n, "duration": g.duration.String()}).Warn("client banned")

	if g.notifier != nil {
		subject := fmt.Sprintf("BAN ALERT: %s blocked", target)
		body := fmt.Sprintf("<p>Target: %s<br>Route: <code>%s</code><br>Strikes: %d<br>Time: %s</p>",
			target, route, n, entry.Time.Format(time.RFC3339))
		go func() {
			if err := g.notifier.Send(subject, body); err != nil {
				g.log.WithError(err).Warn("ban alert email failed")
			}
		}()
	}
	return true
}

// SendDailySummary mails the aggregated ban log and clears it. It returns
// the number of entries reported.
func (g *Guard) SendDailySummary(ctx context.Context) (int, error) {
	entries, err := g.store.Drain(ctx)
	if err != nil || len(entries) == 0 {
		return 0, err
	}
	g.log.WithField("bans", len(entries)).Info("daily ban summary")
	if g.notifier == nil {
		return len(entries), nil
	}
	if err := g.notifier.Send("Daily Ban Report", Summary(entries)); err != nil {
		return 0, fmt.Errorf("send ban summary: %w", err)
	}
	return len(entries), nil
}

// Summary renders entries as an HTML report grouped by route and target.
func Summary(entries []LogEntry) string {
	routeCounts := map[string]int{}
	targetCounts := map[string]int{}
	for _, e := range entries {
		routeCounts[e.Route]++
		targetCounts[e.Target]++
	}

	var sb strings.Builder
	sb.WriteString("<h2>Daily Ban Summary</h2>")
	fmt.Fprintf(&sb, "<p>Total bans: <strong>%d</strong></p>", len(entries))

	sb.WriteString("<h3>By Route</h3><ul>")
	for _, route := range sortedKeys(routeCounts) {
		fmt.Fprintf(&sb, "<li><code>%s</code>: %d</li>", route, routeCounts[route])
	}
	sb.WriteString("</ul>")

	sb.WriteString("<h3>By Client</h3><ul>")
	for _, target := range sortedKeys(targetCounts) {
		fmt.Fprintf(&sb, "<li>%s: %d</li>", target, targetCounts[target])
	}
	sb.WriteString("</ul>")

	sb.WriteString("<h3>Full Log</h3><ul>")
	for _, e := range entries {
		fmt.Fprintf(&sb, "<li><b>%s</b> on <code>%s</code> (%d strikes) at %s</li>",
			e.Target, e.Route, e.Strikes, e.Time.Format(time.RFC822))
	}
	sb.WriteString("</ul>")
	return sb.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
