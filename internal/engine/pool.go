package engine

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mauri870/pulsar/pkg/pulsar"
)

// Factory builds one isolated runtime for a worker slot.
type Factory func() (pulsar.Runtime, error)

type taskType int

const (
	taskMap taskType = iota
	taskReduce
	taskSort
)

// task is one unit of work routed to exactly one worker.
type task struct {
	typ     taskType
	line    string
	key     string
	values  []pulsar.Value
	results []pulsar.KeyValue
	done    chan taskResult
}

type taskResult struct {
	pairs  []pulsar.KeyValue
	value  pulsar.Value
	sorted []pulsar.KeyValue
	err    error
}

// Pool is a fixed set of workers. Each worker goroutine owns one runtime
// for the lifetime of the pool and never runs two tasks concurrently.
type Pool struct {
	tasks   chan *task
	wg      sync.WaitGroup
	size    int
	hasSort bool
	verbose bool

	closeOnce sync.Once
}

// PoolConfig holds pool construction options.
type PoolConfig struct {
	Size    int  // number of workers, at least 1
	Verbose bool // log worker lifecycle and task failures
}

// NewPool builds the runtimes for every worker slot in parallel and starts
// the workers. If any runtime fails to build the pool reports the error
// before a single task runs, so no input is consumed on a broken script.
func NewPool(cfg PoolConfig, factory Factory) (*Pool, error) {
	if cfg.Size < 1 {
		cfg.Size = 1
	}

	runtimes := make([]pulsar.Runtime, cfg.Size)

	var g errgroup.Group
	for i := range runtimes {
		g.Go(func() error {
			r, err := factory()
			if err != nil {
				return err
			}
			runtimes[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := &Pool{
		tasks:   make(chan *task),
		size:    cfg.Size,
		hasSort: runtimes[0].HasSort(),
		verbose: cfg.Verbose,
	}

	for _, r := range runtimes {
		p.wg.Add(1)
		go p.worker(uuid.New().String(), r)
	}

	return p, nil
}

// worker runs tasks against its runtime until the pool closes.
func (p *Pool) worker(id string, rt pulsar.Runtime) {
	defer p.wg.Done()

	if p.verbose {
		log.Printf("[WORKER:%s] ready", id)
	}

	for t := range p.tasks {
		var res taskResult
		switch t.typ {
		case taskMap:
			res.pairs, res.err = rt.Map(t.line)
		case taskReduce:
			res.value, res.err = rt.Reduce(t.key, t.values)
		case taskSort:
			res.sorted, res.err = rt.Sort(t.results)
		}

		if res.err != nil && p.verbose {
			log.Printf("[WORKER:%s] task failed: %v", id, res.err)
		}

		t.done <- res
	}

	if p.verbose {
		log.Printf("[WORKER:%s] shutting down", id)
	}
}

// exec routes a task to any idle worker and waits for its result.
func (p *Pool) exec(ctx context.Context, t *task) (taskResult, error) {
	t.done = make(chan taskResult, 1)

	if err := ctx.Err(); err != nil {
		return taskResult{}, err
	}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return taskResult{}, ctx.Err()
	}

	select {
	case res := <-t.done:
		return res, res.err
	case <-ctx.Done():
		return taskResult{}, ctx.Err()
	}
}

// MapLine runs map over one line.
func (p *Pool) MapLine(ctx context.Context, line string) ([]pulsar.KeyValue, error) {
	res, err := p.exec(ctx, &task{typ: taskMap, line: line})
	return res.pairs, err
}

// Reduce runs reduce over one key group.
func (p *Pool) Reduce(ctx context.Context, key string, values []pulsar.Value) (pulsar.Value, error) {
	res, err := p.exec(ctx, &task{typ: taskReduce, key: key, values: values})
	return res.value, err
}

// Sort runs sort over the complete reduction set.
func (p *Pool) Sort(ctx context.Context, results []pulsar.KeyValue) ([]pulsar.KeyValue, error) {
	res, err := p.exec(ctx, &task{typ: taskSort, results: results})
	return res.sorted, err
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// HasSort reports whether the pooled runtimes define a sort function.
func (p *Pool) HasSort() bool { return p.hasSort }

// Close stops task intake and waits for in-flight tasks to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
