package migration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/errs"
)

// Executor drives a Plan's keys through the migration state machine (spec
// §4.9), the central state machine of the whole library. It is grounded on
// torua/internal/coordinator.HealthMonitor's cancellation-context
// discipline, generalized from a single polling loop into copy/verify
// worker pools plus a swap batcher, all supervised by
// golang.org/x/sync/errgroup.
type Executor[K comparable] struct {
	mover    DataMover[K]
	verifier VerificationStrategy[K]
	swapper  MapSwapper[K]
	store    CheckpointStore[K]
}

// NewExecutor constructs an Executor over the supplied collaborators.
func NewExecutor[K comparable](mover DataMover[K], verifier VerificationStrategy[K], swapper MapSwapper[K], store CheckpointStore[K]) *Executor[K] {
	return &Executor[K]{mover: mover, verifier: verifier, swapper: swapper, store: store}
}

// runState is the mutex-protected mutable state shared across an Executor
// run's goroutines: the in-memory checkpoint, flush/progress throttles, and
// the retry counter.
type runState[K comparable] struct {
	planID uuid.UUID

	mu                    sync.Mutex
	cp                    Checkpoint[K]
	transitionsSinceFlush int
	lastFlush             time.Time
	lastProgress          time.Time
	retries               int
}

func (r *runState[K]) setState(key shardcore.ShardKey[K], state KeyMoveState) {
	r.mu.Lock()
	r.cp.States[key] = state
	r.cp.Version++
	r.cp.UpdatedAt = time.Now()
	r.transitionsSinceFlush++
	r.mu.Unlock()
}

func (r *runState[K]) stateOf(key shardcore.ShardKey[K]) KeyMoveState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cp.States[key]
}

func (r *runState[K]) incRetries() {
	r.mu.Lock()
	r.retries++
	r.mu.Unlock()
}

func (r *runState[K]) snapshot() Checkpoint[K] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cp.Clone()
}

func (r *runState[K]) counts() (map[KeyMoveState]int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[KeyMoveState]int, 8)
	for _, s := range r.cp.States {
		counts[s]++
	}
	return counts, r.retries
}

func (r *runState[K]) shouldFlush(opts ExecutorOptions) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionsSinceFlush >= opts.CheckpointFlushEveryTransitions ||
		time.Since(r.lastFlush) >= opts.CheckpointFlushInterval
}

func (r *runState[K]) markFlushed() {
	r.mu.Lock()
	r.transitionsSinceFlush = 0
	r.lastFlush = time.Now()
	r.mu.Unlock()
}

func (e *Executor[K]) flushIfDue(ctx context.Context, r *runState[K], opts ExecutorOptions) error {
	if !r.shouldFlush(opts) {
		return nil
	}
	if err := e.store.Persist(ctx, r.snapshot()); err != nil {
		return err
	}
	r.markFlushed()
	return nil
}

func (e *Executor[K]) emitProgress(r *runState[K], opts ExecutorOptions, start time.Time, final bool) {
	if opts.Progress == nil {
		return
	}
	r.mu.Lock()
	due := final || time.Since(r.lastProgress) >= opts.ProgressInterval
	if due {
		r.lastProgress = time.Now()
	}
	r.mu.Unlock()
	if !due {
		return
	}
	counts, retries := r.counts()
	opts.Progress(Progress{
		PlanID:  r.planID,
		Counts:  counts,
		Retries: retries,
		Elapsed: time.Since(start),
		Final:   final,
	})
}

// Run executes plan to completion (or cancellation), resuming from a prior
// checkpoint when one exists under plan.PlanID. It returns the final
// checkpoint and the first unrecoverable error encountered, if any;
// per-key permanent failures do not themselves fail Run, since their
// Failed state is recorded in the returned checkpoint.
func (e *Executor[K]) Run(ctx context.Context, plan Plan[K], opts ExecutorOptions) (Checkpoint[K], error) {
	opts = opts.withDefaults()
	start := time.Now()

	cp, found, err := e.store.Load(ctx, plan.PlanID)
	if err != nil {
		return Checkpoint[K]{}, err
	}
	if !found {
		states := make(map[shardcore.ShardKey[K]]KeyMoveState, len(plan.Moves))
		for _, m := range plan.Moves {
			states[m.Key] = Planned
		}
		cp = Checkpoint[K]{PlanID: plan.PlanID, UpdatedAt: time.Now(), States: states}
		opts.Sink.Planned(len(plan.Moves))
	}

	r := &runState[K]{planID: plan.PlanID, cp: cp, lastFlush: time.Now(), lastProgress: time.Now()}

	flusherDone := make(chan struct{})
	var flusherWG sync.WaitGroup
	flusherWG.Add(1)
	go func() {
		defer flusherWG.Done()
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = e.flushIfDue(ctx, r, opts)
				e.emitProgress(r, opts, start, false)
			case <-flusherDone:
				return
			}
		}
	}()

	eg, egCtx := errgroup.WithContext(ctx)
	copySem := make(chan struct{}, opts.CopyConcurrency)
	verifySem := make(chan struct{}, opts.VerifyConcurrency)
	verifiedCh := make(chan shardcore.KeyMove[K], len(plan.Moves)+1)

	var pendingVerifyMu sync.Mutex
	var pendingVerify []shardcore.KeyMove[K]

	swapErrCh := make(chan error, 1)
	go func() {
		swapErrCh <- e.runSwapBatcher(ctx, r, verifiedCh, opts)
	}()

	verifyGroup, verifyCtx := errgroup.WithContext(egCtx)
	dispatchVerify := func(move shardcore.KeyMove[K]) {
		verifyGroup.Go(func() error {
			return e.runVerify(verifyCtx, r, move, verifySem, verifiedCh, opts)
		})
	}

	for _, move := range plan.Moves {
		move := move
		switch r.stateOf(move.Key) {
		case Done, Failed:
			// terminal; nothing to do.
		case Verified, Swapping:
			verifiedCh <- move
		case Copied, Verifying:
			dispatchVerify(move)
		default: // Planned, Copying
			eg.Go(func() error {
				onCopied := func(completed shardcore.KeyMove[K]) {
					if opts.interleaved() {
						dispatchVerify(completed)
					} else {
						pendingVerifyMu.Lock()
						pendingVerify = append(pendingVerify, completed)
						pendingVerifyMu.Unlock()
					}
				}
				return e.runCopy(egCtx, r, move, copySem, opts, onCopied)
			})
		}
	}

	copyErr := eg.Wait()

	if !opts.interleaved() {
		pendingVerifyMu.Lock()
		for _, move := range pendingVerify {
			dispatchVerify(move)
		}
		pendingVerifyMu.Unlock()
	}

	verifyErr := verifyGroup.Wait()
	close(verifiedCh)
	swapErr := <-swapErrCh

	close(flusherDone)
	flusherWG.Wait()

	// Final flush is unconditional regardless of the throttle (spec §4.9
	// checkpoint flush triggers: "terminal completion" and "cancellation").
	if persistErr := e.store.Persist(context.WithoutCancel(ctx), r.snapshot()); persistErr != nil && swapErr == nil {
		swapErr = persistErr
	}
	e.emitProgress(r, opts, start, true)
	opts.Sink.TotalElapsedSeconds(time.Since(start).Seconds())

	final := r.snapshot()
	switch {
	case copyErr != nil:
		return final, copyErr
	case verifyErr != nil:
		return final, verifyErr
	default:
		return final, swapErr
	}
}

func (e *Executor[K]) runCopy(
	ctx context.Context,
	r *runState[K],
	move shardcore.KeyMove[K],
	sem chan struct{},
	opts ExecutorOptions,
	onCopied func(shardcore.KeyMove[K]),
) error {
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	r.setState(move.Key, Copying)

	started := time.Now()
	err := withRetry(ctx, newBackoff(opts.RetryBaseDelay), opts.MaxRetries, func() {
		r.incRetries()
		opts.Sink.Retries(1)
	}, func() error {
		return e.mover.Copy(ctx, move)
	})
	opts.Sink.CopyDurationSeconds(time.Since(started).Seconds())
	<-sem

	if err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-flight: leave the key at Copying so a later run
			// retries the copy from scratch, rather than marking it Failed.
			return ctx.Err()
		}
		r.setState(move.Key, Failed)
		opts.Sink.Failed()
		return nil
	}
	r.setState(move.Key, Copied)
	opts.Sink.Copied()
	onCopied(move)
	return nil
}

func (e *Executor[K]) runVerify(
	ctx context.Context,
	r *runState[K],
	move shardcore.KeyMove[K],
	sem chan struct{},
	verifiedCh chan<- shardcore.KeyMove[K],
	opts ExecutorOptions,
) error {
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	r.setState(move.Key, Verifying)

	started := time.Now()
	err := withRetry(ctx, newBackoff(opts.RetryBaseDelay), opts.MaxRetries, func() {
		r.incRetries()
		opts.Sink.Retries(1)
	}, func() error {
		return e.verifier.Verify(ctx, move)
	})
	opts.Sink.VerifyDurationSeconds(time.Since(started).Seconds())
	<-sem

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if opts.ForceSwapOnVerificationFailure {
			r.setState(move.Key, Verified)
			opts.Sink.Verified()
			opts.Sink.ForcedSwaps()
			select {
			case verifiedCh <- move:
			case <-ctx.Done():
			}
			return nil
		}
		r.setState(move.Key, Failed)
		opts.Sink.Failed()
		return nil
	}
	r.setState(move.Key, Verified)
	opts.Sink.Verified()
	select {
	case verifiedCh <- move:
	case <-ctx.Done():
	}
	return nil
}

func (e *Executor[K]) runSwapBatcher(ctx context.Context, r *runState[K], verifiedCh <-chan shardcore.KeyMove[K], opts ExecutorOptions) error {
	batch := make([]shardcore.KeyMove[K], 0, opts.SwapBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		for _, m := range batch {
			r.setState(m.Key, Swapping)
		}
		started := time.Now()
		var applied []shardcore.KeyMove[K]
		swapErr := withRetry(ctx, newBackoff(opts.RetryBaseDelay), opts.MaxRetries, func() {
			r.incRetries()
			opts.Sink.Retries(1)
		}, func() error {
			var err error
			applied, err = e.swapper.Swap(ctx, batch)
			return err
		})
		opts.Sink.SwapBatchDurationSeconds(time.Since(started).Seconds())

		appliedSet := make(map[shardcore.ShardKey[K]]struct{}, len(applied))
		for _, m := range applied {
			appliedSet[m.Key] = struct{}{}
			r.setState(m.Key, Done)
			opts.Sink.Swapped()
		}
		unapplied := 0
		for _, m := range batch {
			if _, ok := appliedSet[m.Key]; !ok {
				unapplied++
				// Not rewound: left at Verified so a later run retries it
				// (spec §4.9 step 4, "do not rewind earlier states").
				r.setState(m.Key, Verified)
			}
		}
		batch = batch[:0]
		if swapErr != nil && unapplied > 0 {
			return errs.ShardMigrationError("swap", "", "", 1, r.planID.String(), swapErr)
		}
		return nil
	}

	var firstErr error
	for move := range verifiedCh {
		batch = append(batch, move)
		if len(batch) >= opts.SwapBatchSize {
			if err := flush(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
