// Command pagestress drives the allocator with a mixed workload from many
// goroutines, releases every block on a different goroutine than the one that
// allocated it, and fails when pages are still mapped afterwards.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/pagealloc"
	"github.com/hupe1980/pagealloc/testutil"
)

type config struct {
	n           int
	workers     int
	seed        int64
	maxLarge    int
	memoryLimit int64
	metricsAddr string
	logLevel    string
}

type report struct {
	Allocs        int64
	Frees         int64
	LargeBlocks   int64
	ArenasCreated int64
	Reclaimed     int64
	DistinctPages uint64
	Elapsed       time.Duration
}

var errLeak = errors.New("pages still mapped after run")

func main() {
	var cfg config
	flag.IntVar(&cfg.n, "n", 10_000, "allocations per worker")
	flag.IntVar(&cfg.workers, "workers", 4, "allocating goroutines")
	flag.Int64Var(&cfg.seed, "seed", 42, "workload seed")
	flag.IntVar(&cfg.maxLarge, "max-large", 1<<20, "largest request size in bytes")
	flag.Int64Var(&cfg.memoryLimit, "memory-limit", 0, "cap on mapped bytes (0 = unlimited)")
	flag.StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :2112")
	flag.StringVar(&cfg.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.logLevel)); err != nil {
		log.Fatalf("invalid -log-level: %v", err)
	}
	logger := pagealloc.NewTextLogger(level)

	reg := prometheus.NewRegistry()
	metrics := newPromMetrics(reg)

	if cfg.metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			fmt.Printf("Prometheus metrics available at http://%s/metrics\n", cfg.metricsAddr)
			if err := http.ListenAndServe(cfg.metricsAddr, mux); err != nil {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := run(ctx, cfg, logger, metrics)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("allocs=%d frees=%d large=%d arenas=%d reclaimed=%d distinct_pages=%d elapsed=%s\n",
		r.Allocs, r.Frees, r.LargeBlocks, r.ArenasCreated, r.Reclaimed, r.DistinctPages, r.Elapsed)
}

// run allocates cfg.n blocks on each of cfg.workers heaps. Blocks travel over
// a channel to releasing goroutines, which verify their contents and free
// them. run fails when any page is still mapped once all heaps are closed.
func run(ctx context.Context, cfg config, logger *pagealloc.Logger, collector pagealloc.MetricsCollector) (report, error) {
	if cfg.workers <= 0 {
		return report{}, fmt.Errorf("workers must be positive, got %d", cfg.workers)
	}
	if cfg.memoryLimit > 0 {
		if err := pagealloc.SetMemoryLimit(cfg.memoryLimit); err != nil {
			return report{}, err
		}
		defer func() { _ = pagealloc.SetMemoryLimit(0) }()
	}

	basic := &pagealloc.BasicMetricsCollector{}
	collectors := fanout{basic}
	if collector != nil {
		collectors = append(collectors, collector)
	}
	opts := []pagealloc.Option{
		pagealloc.WithLogger(logger),
		pagealloc.WithMetricsCollector(collectors),
	}

	// Releases go through the package-level Free, which reports to the
	// default options.
	pagealloc.SetDefaultOptions(opts...)
	defer pagealloc.SetDefaultOptions()

	baseline := pagealloc.OutstandingPages()
	pages := newPageSet()
	start := time.Now()

	type block struct {
		p    unsafe.Pointer
		size uintptr
		tag  byte
	}
	blocks := make(chan block, 1024)

	producers, pctx := errgroup.WithContext(ctx)
	for w := range cfg.workers {
		producers.Go(func() error {
			h := pagealloc.NewHeap(opts...)
			defer h.Close()

			rng := testutil.NewRNG(cfg.seed + int64(w))
			for i, size := range rng.Sizes(cfg.n, cfg.maxLarge) {
				if err := pctx.Err(); err != nil {
					return err
				}

				p, err := h.Alloc(size)
				if err != nil {
					return err
				}
				tag := byte(w + i)
				buf := unsafe.Slice((*byte)(p), size)
				for j := range buf {
					buf[j] = tag
				}
				pages.Add(p)

				blocks <- block{p: p, size: size, tag: tag}
			}
			return nil
		})
	}

	var consumers errgroup.Group
	for range cfg.workers {
		consumers.Go(func() error {
			var err error
			for b := range blocks {
				for j, v := range unsafe.Slice((*byte)(b.p), b.size) {
					if v != b.tag && err == nil {
						err = fmt.Errorf("block %p corrupted at byte %d: got %#x, want %#x", b.p, j, v, b.tag)
					}
				}
				pagealloc.Free(b.p)
			}
			return err
		})
	}

	perr := producers.Wait()
	close(blocks)
	cerr := consumers.Wait()
	if err := errors.Join(perr, cerr); err != nil {
		return report{}, err
	}

	stats := basic.GetStats()
	r := report{
		Allocs:        stats.AllocCount,
		Frees:         stats.FreeCount,
		LargeBlocks:   stats.LargeCount,
		ArenasCreated: stats.ArenasCreated,
		Reclaimed:     stats.PagesReclaimed,
		DistinctPages: pages.Cardinality(),
		Elapsed:       time.Since(start),
	}

	if n := pagealloc.OutstandingPages(); n != baseline {
		return r, fmt.Errorf("%w: %d outstanding, %d at start", errLeak, n, baseline)
	}
	return r, nil
}
