package prover

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zkcreds/membership/internal/apperrors"
	"github.com/zkcreds/membership/internal/merkle"
	"github.com/zkcreds/membership/internal/proof"
)

// Task is one proof-generation request submitted to the pool.
type Task struct {
	ID         string
	SetID      string
	Witness    *merkle.Witness
	Credential string

	// Ctx bounds the Generate call this task drives. If nil, the pool's
	// own lifecycle context is used instead.
	Ctx context.Context
}

// Result is the outcome of processing a Task.
type Result struct {
	TaskID   string
	Proof    *proof.Proof
	Err      error
	Duration time.Duration
}

// Pool bounds concurrent proof generation to a fixed number of
// goroutines, so a burst of generate requests cannot spawn unbounded
// Groth16 provers competing for CPU, mirroring the teacher's WorkerPool.
type Pool struct {
	prover      *Groth16Prover
	concurrency int
	logger      *zap.Logger

	tasks   chan Task
	results chan Result

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool builds a pool of concurrency goroutines feeding prover.
// concurrency <= 0 defaults to 1.
func NewPool(prover *Groth16Prover, concurrency int, logger *zap.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		prover:      prover,
		concurrency: concurrency,
		logger:      logger,
		tasks:       make(chan Task, concurrency*2),
		results:     make(chan Result, concurrency*2),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the pool's worker goroutines.
func (p *Pool) Start() {
	p.logger.Info("starting proof generation pool", zap.Int("concurrency", p.concurrency))
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains queued tasks and shuts the pool down gracefully.
func (p *Pool) Stop() {
	close(p.tasks)
	p.wg.Wait()
	close(p.results)
	p.cancel()
}

// Submit enqueues a task, respecting ctx's deadline. A submission that
// cannot be enqueued before ctx is done or the pool is shutting down
// fails with PROOF_GENERATION_FAILED; the ctx case carries a "timeout"
// detail.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return apperrors.New(apperrors.KindProofGenerationFailed, "timed out submitting proof task", "timeout")
	case <-p.ctx.Done():
		return apperrors.New(apperrors.KindProofGenerationFailed, "proof pool is shutting down")
	}
}

// Results returns the channel of completed task outcomes.
func (p *Pool) Results() <-chan Result {
	return p.results
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		taskCtx := task.Ctx
		if taskCtx == nil {
			taskCtx = p.ctx
		}

		start := time.Now()
		pr, err := p.prover.Generate(taskCtx, task.SetID, task.Witness, task.Credential)
		result := Result{TaskID: task.ID, Proof: pr, Err: err, Duration: time.Since(start)}

		select {
		case p.results <- result:
		case <-p.ctx.Done():
			p.logger.Warn("dropped proof result on shutdown", zap.String("task_id", task.ID))
		}
	}
}
