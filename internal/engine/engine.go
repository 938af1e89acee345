package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mauri870/pulsar/internal/output"
	"github.com/mauri870/pulsar/pkg/pulsar"
)

// defaultInFlightFactor scales the worker count into the in-flight task
// bound M. Workers stay busy without the line reader racing far ahead of
// them and buffering the whole input.
const defaultInFlightFactor = 2

// Config holds engine configuration.
type Config struct {
	Sort           bool           // force buffered output through the script sort
	InFlightFactor int            // M = workers * InFlightFactor
	Encoder        output.Encoder // output record encoder
	Verbose        bool
}

// Stats describes a completed run.
type Stats struct {
	Lines      int64
	Pairs      int64
	Keys       int
	Reductions int
	Elapsed    time.Duration
}

// Engine drives the map, shuffle, reduce and output stages over a worker
// pool.
type Engine struct {
	pool     *Pool
	cfg      Config
	inFlight int
}

// New creates an engine on top of a pool.
func New(pool *Pool, cfg Config) *Engine {
	factor := cfg.InFlightFactor
	if factor < 1 {
		factor = defaultInFlightFactor
	}

	return &Engine{pool: pool, cfg: cfg, inFlight: pool.Size() * factor}
}

// Run executes one complete map-shuffle-reduce pass from r to w. Output is
// streamed as reductions complete unless a sort is in play, in which case
// all reductions are buffered, passed through sort once, and written in the
// order sort returns.
func (e *Engine) Run(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats
	start := time.Now()

	if e.cfg.Sort && !e.pool.HasSort() {
		return stats, fmt.Errorf("%w: -sort requires the script to define a sort function", pulsar.ErrUsage)
	}
	buffered := e.cfg.Sort || e.pool.HasSort()

	shuffle, err := e.mapStage(ctx, r, &stats)
	if err != nil {
		return stats, err
	}
	stats.Keys = shuffle.Len()

	out := bufio.NewWriter(w)

	if buffered {
		err = e.reduceBuffered(ctx, shuffle, out, &stats)
	} else {
		err = e.reduceStreaming(ctx, shuffle, out, &stats)
	}
	if err != nil {
		return stats, err
	}

	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("%w: %v", pulsar.ErrOutputIO, err)
	}

	stats.Elapsed = time.Since(start)
	if e.cfg.Verbose {
		log.Printf("[ENGINE] %d lines -> %d pairs -> %d keys -> %d reductions in %v",
			stats.Lines, stats.Pairs, stats.Keys, stats.Reductions, stats.Elapsed)
	}

	return stats, nil
}

// mapStage pulls lines, fans them out to the pool with at most M tasks in
// flight, and collects emitted pairs into the shuffle buffer. The buffer is
// touched only by the collector goroutine.
func (e *Engine) mapStage(ctx context.Context, r io.Reader, stats *Stats) (*Shuffle, error) {
	shuffle := NewShuffle()

	g, gctx := errgroup.WithContext(ctx)

	lines := make(chan string, e.inFlight)
	readErr := make(chan error, 1)
	go func() {
		readErr <- ReadLines(gctx, r, lines)
	}()

	pairs := make(chan []pulsar.KeyValue, e.inFlight)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for batch := range pairs {
			for _, kv := range batch {
				shuffle.Add(kv)
			}
			stats.Pairs += int64(len(batch))
		}
	}()

	// g.Go blocks once the limit is reached: submission pace is bound to
	// task completion pace.
	g.SetLimit(e.inFlight)
	for line := range lines {
		stats.Lines++
		g.Go(func() error {
			out, err := e.pool.MapLine(gctx, line)
			if err != nil {
				return err
			}
			if len(out) == 0 {
				return nil
			}
			select {
			case pairs <- out:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err := g.Wait()
	close(pairs)
	<-collected

	if rerr := <-readErr; err == nil && rerr != nil {
		err = rerr
	}

	return shuffle, err
}

// dispatchReduces submits one reduce task per key in insertion order with
// at most M in flight, sending each reduction to out as it completes, then
// closes out. Groups are released as they are dispatched.
func (e *Engine) dispatchReduces(ctx context.Context, shuffle *Shuffle, out chan<- pulsar.KeyValue) error {
	defer close(out)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.inFlight)
	for _, key := range shuffle.Keys() {
		values := shuffle.Take(key)
		g.Go(func() error {
			value, err := e.pool.Reduce(gctx, key, values)
			if err != nil {
				return err
			}
			select {
			case out <- pulsar.KeyValue{Key: key, Value: value}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	return g.Wait()
}

// reduceStreaming writes each reduction as soon as it is available. The
// pool does not guarantee completion order, so output order is unspecified.
func (e *Engine) reduceStreaming(ctx context.Context, shuffle *Shuffle, out *bufio.Writer, stats *Stats) error {
	g, gctx := errgroup.WithContext(ctx)
	results := make(chan pulsar.KeyValue, e.inFlight)

	g.Go(func() error {
		return e.dispatchReduces(gctx, shuffle, results)
	})

	g.Go(func() error {
		for kv := range results {
			if err := e.emit(out, kv); err != nil {
				return err
			}
			stats.Reductions++
		}
		return nil
	})

	return g.Wait()
}

// reduceBuffered collects all reductions, runs the script sort once over
// the complete set, and writes records in the order sort returned.
func (e *Engine) reduceBuffered(ctx context.Context, shuffle *Shuffle, out *bufio.Writer, stats *Stats) error {
	reductions := make([]pulsar.KeyValue, 0, shuffle.Len())

	g, gctx := errgroup.WithContext(ctx)
	results := make(chan pulsar.KeyValue, e.inFlight)

	g.Go(func() error {
		return e.dispatchReduces(gctx, shuffle, results)
	})

	g.Go(func() error {
		for kv := range results {
			reductions = append(reductions, kv)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	sorted, err := e.pool.Sort(ctx, reductions)
	if err != nil {
		return err
	}

	for _, kv := range sorted {
		if err := e.emit(out, kv); err != nil {
			return err
		}
		stats.Reductions++
	}

	return nil
}

// emit writes one record. Serialization failures keep their shape error;
// anything else is a write failure.
func (e *Engine) emit(out *bufio.Writer, kv pulsar.KeyValue) error {
	if err := e.cfg.Encoder.Encode(out, kv); err != nil {
		if errors.Is(err, pulsar.ErrResultShape) {
			return err
		}
		return fmt.Errorf("%w: %v", pulsar.ErrOutputIO, err)
	}
	return nil
}
