package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
)

type loadtestOptions struct {
	sessions    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

type sessionState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func loadtestCmd() *cobra.Command {
	var opts loadtestOptions

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Benchmark create, verify and refresh against Redis",
		Long:  "Seeds sessions, then runs concurrent GetSession and RefreshSession phases. Without --redis-addr an in-process miniredis is used.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.sessions <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return oops.In("loadtest").Errorf("sessions, concurrency and ops must be > 0")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.sessions, "sessions", 10000, "number of sessions to seed")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 50000, "operations per phase")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; miniredis when empty")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "gs-load", "session key prefix")

	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, opts loadtestOptions) error {
	addr := opts.redisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return oops.In("loadtest").Wrapf(err, "starting miniredis")
		}
		defer mr.Close()
		addr = mr.Addr()
		_, _ = fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		_, _ = fmt.Fprintf(out, "using redis at %s\n", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer func() { _ = client.Close() }()

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return oops.In("loadtest").Wrapf(err, "generating signing key")
	}
	cfg := goSession.HighThroughputConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = key
	cfg.Revocation.Mode = goSession.RevocationStoreBacked
	cfg.Session.RedisPrefix = opts.prefix

	engine, err := goSession.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		return oops.In("loadtest").Wrapf(err, "building engine")
	}
	defer engine.Close()

	states := make([]sessionState, opts.sessions)
	_, _ = fmt.Fprintf(out, "seeding %d sessions...\n", opts.sessions)
	seedStart := time.Now()
	for i := range states {
		s, err := engine.CreateNewSession(ctx, fmt.Sprintf("user-%d", i%1000), goSession.Payload{"seq": i}, nil)
		if err != nil {
			return oops.In("loadtest").Wrapf(err, "seeding session %d", i)
		}
		states[i].access = s.AccessToken().Value
		states[i].refresh = s.RefreshToken().Value
	}
	_, _ = fmt.Fprintf(out, "seeded in %s\n", time.Since(seedStart).Round(time.Millisecond))

	verify := runPhase(opts, func(r *mathrand.Rand) error {
		state := &states[r.IntN(len(states))]
		state.mu.Lock()
		token := state.access
		state.mu.Unlock()
		_, err := engine.GetSession(ctx, token, goSession.GetSessionOptions{})
		return err
	})

	refresh := runPhase(opts, func(r *mathrand.Rand) error {
		state := &states[r.IntN(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()
		s, err := engine.RefreshSession(ctx, state.refresh, goSession.RefreshOptions{})
		if err != nil {
			return err
		}
		state.access = s.AccessToken().Value
		state.refresh = s.RefreshToken().Value
		return nil
	})

	_, _ = fmt.Fprintln(out, "---- results ----")
	printStats(out, "verify", verify)
	printStats(out, "refresh", refresh)
	return nil
}

// runPhase runs opts.ops calls of op across opts.concurrency workers.
func runPhase(opts loadtestOptions, op func(r *mathrand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mathrand.New(mathrand.NewPCG(uint64(time.Now().UnixNano()), uint64(worker)))
			for {
				if int(cursor.Add(1)) > opts.ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					failures.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures.Load())
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
	slices.Sort(samples)
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

// percentile expects sorted samples.
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	_, _ = fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
