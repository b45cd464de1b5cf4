// Command handleauth-loadtest drives sign-in, authenticate, refresh and
// sign-out concurrently against an Engine backed by Redis (or miniredis) and
// in-memory principals, and prints latency percentiles per phase.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	handleAuth "github.com/MrEthical07/handleAuth"
	"github.com/MrEthical07/handleAuth/internal/devstack"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const loadPassword = "load-test-password"

type principalState struct {
	id    string
	email string

	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		principals  = flag.Int("principals", 2000, "number of principals to seed and sign in")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (authenticate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		timeout     = flag.Duration("timeout", 5*time.Minute, "abort the run after this long")
	)
	flag.Parse()

	if *principals <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "principals, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	cfg := devstack.Config()
	cfg.Metrics.EnableLatencyHistograms = true

	var (
		stack *devstack.Stack
		err   error
	)
	if addr == "" {
		stack, err = devstack.New(cfg, bcrypt.MinCost)
		if err == nil {
			fmt.Printf("using miniredis at %s\n", stack.Redis.Addr())
		}
	} else {
		stack, err = devstack.NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), cfg, bcrypt.MinCost)
		if err == nil {
			fmt.Printf("using redis at %s\n", addr)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine setup failed: %v\n", err)
		os.Exit(1)
	}
	defer stack.Close()

	scope := handleAuth.GlobalScope(handleAuth.RoleUser)
	states := make([]principalState, *principals)
	for i := range states {
		email := fmt.Sprintf("load-%d@example.com", i)
		p, err := stack.Seed(scope, email, loadPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		states[i].id, states[i].email = p.ID, email
	}

	signInStats := runSignInPhase(ctx, stack.Engine, scope, states, *concurrency)
	authStats := runPhase(ctx, *ops, *concurrency, func(r *rand.Rand) bool {
		st := &states[r.IntN(len(states))]
		st.mu.Lock()
		handle := st.access
		st.mu.Unlock()
		_, err := stack.Engine.Authenticate(ctx, scope.Role.Access(), "Bearer "+handle, "")
		return err == nil
	})
	refreshStats := runPhase(ctx, *ops, *concurrency, func(r *rand.Rand) bool {
		st := &states[r.IntN(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()
		res, err := stack.Engine.Authenticate(ctx, scope.Role.Refresh(), "Bearer "+st.refresh, "")
		if err != nil {
			return false
		}
		sess, err := stack.Engine.Refresh(ctx, res.Scope(), res.PrincipalID)
		if err != nil {
			return false
		}
		st.access, st.refresh = sess.AccessToken, sess.RefreshToken
		return true
	})

	signOutStats := runSignOutPhase(ctx, stack.Engine, scope, states, *concurrency)

	fmt.Println("---- results ----")
	printStats("sign-in", signInStats)
	printStats("authenticate", authStats)
	printStats("refresh", refreshStats)
	printStats("sign-out", signOutStats)

	snap := stack.Engine.MetricsSnapshot()
	fmt.Printf("records written=%d revoked=%d store failures=%d\n",
		snap.Counters[handleAuth.MetricRecordsWritten],
		snap.Counters[handleAuth.MetricTokensRevoked],
		snap.Counters[handleAuth.MetricStoreFailure],
	)
}

func runSignInPhase(ctx context.Context, engine *handleAuth.Engine, scope handleAuth.Scope, states []principalState, concurrency int) phaseStats {
	var next atomic.Int64
	return runPhase(ctx, len(states), concurrency, func(*rand.Rand) bool {
		st := &states[next.Add(1)-1]
		sess, err := engine.SignIn(ctx, scope, st.email, loadPassword)
		if err != nil {
			return false
		}
		st.mu.Lock()
		st.access, st.refresh = sess.AccessToken, sess.RefreshToken
		st.mu.Unlock()
		return true
	})
}

func runSignOutPhase(ctx context.Context, engine *handleAuth.Engine, scope handleAuth.Scope, states []principalState, concurrency int) phaseStats {
	var next atomic.Int64
	return runPhase(ctx, len(states), concurrency, func(*rand.Rand) bool {
		st := &states[next.Add(1)-1]
		_, err := engine.SignOut(ctx, scope, st.id)
		return err == nil
	})
}

// runPhase spreads ops calls of op over concurrency workers. Each worker keeps
// its own samples, merged once the phase ends.
func runPhase(ctx context.Context, ops, concurrency int, op func(r *rand.Rand) bool) phaseStats {
	var (
		claimed  atomic.Int64
		failures atomic.Int64
		perWork  = make([][]time.Duration, concurrency)
	)

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := range concurrency {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(w)))
			for ctx.Err() == nil && claimed.Add(1) <= int64(ops) {
				t0 := time.Now()
				if !op(r) {
					failures.Add(1)
				}
				perWork[w] = append(perWork[w], time.Since(t0))
			}
			return nil
		})
	}
	_ = g.Wait()
	return computeStats(time.Since(start), slices.Concat(perWork...), failures.Load())
}

type phaseStats struct {
	total         time.Duration
	ops           int
	failures      int64
	p50, p95, p99 time.Duration
	max           time.Duration
}

func (s phaseStats) rate() float64 {
	if s.total <= 0 {
		return 0
	}
	return float64(s.ops) / s.total.Seconds()
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	s := phaseStats{total: total, ops: len(samples), failures: failures}
	if len(samples) == 0 {
		return s
	}
	slices.Sort(samples)
	rank := func(p int) time.Duration { return samples[(len(samples)-1)*p/100] }
	s.p50, s.p95, s.p99 = rank(50), rank(95), rank(99)
	s.max = samples[len(samples)-1]
	return s
}

func printStats(name string, s phaseStats) {
	us := func(d time.Duration) time.Duration { return d.Round(time.Microsecond) }
	fmt.Printf("%-12s ops=%-7d fail=%-5d %8.0f ops/s  p50=%-10s p95=%-10s p99=%-10s max=%s\n",
		name, s.ops, s.failures, s.rate(), us(s.p50), us(s.p95), us(s.p99), us(s.max))
}
