// Command otp-loadtest drives the OTP request, verify and rate-limit paths
// of a goOTP engine against Redis (or miniredis) and prints latency
// percentiles per phase.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/directory"
	"github.com/MrEthical07/goOTP/jwt"
	"github.com/MrEthical07/goOTP/mail"
	"github.com/MrEthical07/goOTP/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		users       = flag.Int("users", 20000, "distinct emails used by the request and verify phases")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations in the rate-limit phase")
		ips         = flag.Int("ips", 512, "distinct client IPs in the rate-limit phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *ips <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops and ips must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := connect(*redisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	engine, err := newEngine(client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	emails := make([]string, *users)
	for i := range emails {
		emails[i] = fmt.Sprintf("load-%d@example.com", i)
	}

	requestStats := runRequestPhase(ctx, engine, emails, *concurrency)

	codes, err := collectCodes(ctx, client, emails)
	if err != nil {
		fmt.Fprintf(os.Stderr, "collect codes: %v\n", err)
		os.Exit(1)
	}
	verifyStats := runVerifyPhase(ctx, engine, emails, codes, *concurrency)
	limitStats, limited := runRateLimitPhase(ctx, engine, *ips, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("otp_request", requestStats)
	printStats("otp_verify", verifyStats)
	printStats("rate_limit", limitStats)
	fmt.Printf("rate_limit: rejected=%d\n", limited)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: otp_requested=%d otp_verified=%d rate_limited=%d\n",
		snap.Counters[goOTP.MetricOTPRequested],
		snap.Counters[goOTP.MetricOTPVerified],
		snap.Counters[goOTP.MetricRateLimitHit],
	)
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func newEngine(client redis.UniversalClient) (*goOTP.Engine, error) {
	hasher, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		return nil, err
	}
	users, err := directory.NewMemory(hasher)
	if err != nil {
		return nil, err
	}
	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("otp-loadtest"),
	})
	if err != nil {
		return nil, err
	}

	cfg := goOTP.DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Mail.BufferSize = 4096
	cfg.Mail.Workers = 4

	return goOTP.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserDirectory(users).
		WithTokenIssuer(tokens).
		WithEmailSender(mail.NewWriterSender(io.Discard)).
		WithLogger(zap.NewNop()).
		Build()
}

// collectCodes reads the outstanding challenges back out of Redis so the
// verify phase measures only the engine path.
func collectCodes(ctx context.Context, client redis.UniversalClient, emails []string) ([]string, error) {
	codes := make([]string, len(emails))
	pipe := client.Pipeline()
	cmds := make([]*redis.StringCmd, len(emails))
	for i, email := range emails {
		cmds[i] = pipe.Get(ctx, "otp:{"+email+"}")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i, cmd := range cmds {
		codes[i], _ = cmd.Result()
	}
	return codes, nil
}

// recorder accumulates latencies from concurrent workers.
type recorder struct {
	mu        sync.Mutex
	latencies []time.Duration
	failures  int64
}

func newRecorder(capacity int) *recorder {
	return &recorder{latencies: make([]time.Duration, 0, capacity)}
}

func (r *recorder) observe(d time.Duration, err error) {
	if err != nil {
		atomic.AddInt64(&r.failures, 1)
	}
	r.mu.Lock()
	r.latencies = append(r.latencies, d)
	r.mu.Unlock()
}

// fanOut runs fn for indexes [0, n) across workers.
func fanOut(n, concurrency int, fn func(worker, i int)) time.Duration {
	var (
		g      errgroup.Group
		cursor int64
	)
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		worker := w
		g.Go(func() error {
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= n {
					return nil
				}
				fn(worker, i)
			}
		})
	}
	_ = g.Wait()
	return time.Since(start)
}

func runRequestPhase(ctx context.Context, engine *goOTP.Engine, emails []string, concurrency int) phaseStats {
	rec := newRecorder(len(emails))
	total := fanOut(len(emails), concurrency, func(_, i int) {
		t0 := time.Now()
		_, err := engine.RequestOTP(ctx, emails[i])
		rec.observe(time.Since(t0), err)
	})
	return computeStats(total, rec.latencies, rec.failures)
}

func runVerifyPhase(ctx context.Context, engine *goOTP.Engine, emails, codes []string, concurrency int) phaseStats {
	rec := newRecorder(len(emails))
	total := fanOut(len(emails), concurrency, func(_, i int) {
		t0 := time.Now()
		_, err := engine.VerifyOTP(ctx, emails[i], codes[i])
		rec.observe(time.Since(t0), err)
	})
	return computeStats(total, rec.latencies, rec.failures)
}

// runRateLimitPhase hits the per-IP OTP budget from a fixed pool of
// addresses. Rejections are expected once a budget is spent and are
// reported separately from failures.
func runRateLimitPhase(ctx context.Context, engine *goOTP.Engine, ips, ops, concurrency int) (phaseStats, int64) {
	var limited int64
	rec := newRecorder(ops)
	rngs := make([]*rand.Rand, concurrency)
	for w := range rngs {
		rngs[w] = rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)*7919))
	}

	total := fanOut(ops, concurrency, func(worker, _ int) {
		n := rngs[worker].Intn(ips)
		ip := fmt.Sprintf("10.%d.%d.%d", n>>16&0xFF, n>>8&0xFF, n&0xFF)
		t0 := time.Now()
		err := engine.CheckRateLimit(ctx, goOTP.ScopeOTPRequestIP, goOTP.LimitTypeIP, ip)
		d := time.Since(t0)

		var rl *goOTP.RateLimitError
		if errors.As(err, &rl) {
			atomic.AddInt64(&limited, 1)
			err = nil
		}
		rec.observe(d, err)
	})
	return computeStats(total, rec.latencies, rec.failures), limited
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
