package cluster

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hpcbench/picalc/internal/bignum"
	apperrors "github.com/hpcbench/picalc/internal/errors"
	"github.com/hpcbench/picalc/internal/logging"
	"github.com/hpcbench/picalc/internal/parallel"
)

const (
	defaultRequestTimeout = 2 * time.Second
	defaultRetryBackoff   = 100 * time.Millisecond
)

var ackPayload = []byte("ack")

// NATSReducer performs the cross-process reduction over a NATS broker.
//
// Peers deliver their marshaled partial sum with a request so the
// coordinator's reply confirms receipt; undelivered requests are retried
// until the context expires, which makes the protocol indifferent to
// startup order. Retries can deliver the same partial twice, so the
// coordinator keys buffers by sender rank and an overwrite is a no-op.
// Every peer subscribes to the completion subject before sending its
// partial, and the completion broadcast happens after every partial has
// arrived, so no peer can miss it.
type NATSReducer struct {
	nc      *nats.Conn
	backend bignum.Backend
	topo    Topology
	runID   string
	logger  logging.Logger

	requestTimeout time.Duration
	retryBackoff   time.Duration
}

// NewNATSReducer creates a reducer for one process of a run. The backend
// must be the one the partial sum was computed on: buffer sizes are a
// function of backend and working precision, and the coordinator rejects
// partials of any other size.
func NewNATSReducer(nc *nats.Conn, backend bignum.Backend, topo Topology, runID string, logger logging.Logger) *NATSReducer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &NATSReducer{
		nc:             nc,
		backend:        backend,
		topo:           topo,
		runID:          runID,
		logger:         logger,
		requestTimeout: defaultRequestTimeout,
		retryBackoff:   defaultRetryBackoff,
	}
}

// Reduce implements the engine's collective reduction contract. The
// coordinator returns the global sum; every other rank returns nil after
// the coordinator has confirmed completion.
func (r *NATSReducer) Reduce(ctx context.Context, local bignum.Value) (bignum.Value, error) {
	if r.topo.IsCoordinator() {
		return r.collect(ctx, local)
	}
	if err := r.contribute(ctx, local); err != nil {
		return nil, err
	}
	return nil, nil
}

// collect gathers one partial per peer, folds them into local and
// broadcasts completion.
func (r *NATSReducer) collect(ctx context.Context, local bignum.Value) (bignum.Value, error) {
	want := r.topo.Peers()
	size := r.backend.BufferSize()

	var (
		mu           sync.Mutex
		buffers      = make(map[int][]byte, want)
		handlerErrs  parallel.ErrorCollector
		abortOnce    sync.Once
		completeOnce sync.Once
	)
	abort := make(chan struct{})
	complete := make(chan struct{})
	fail := func(err error) {
		handlerErrs.SetError(err)
		abortOnce.Do(func() { close(abort) })
	}

	sub, err := r.nc.Subscribe(partialWildcard(r.runID), func(msg *nats.Msg) {
		rank, err := rankFromSubject(msg.Subject)
		if err != nil {
			fail(err)
			return
		}
		if rank <= 0 || rank >= r.topo.NumProcs {
			fail(apperrors.NewClusterError(
				fmt.Sprintf("partial from rank %d does not belong to a %d-process run", rank, r.topo.NumProcs), nil))
			return
		}
		if len(msg.Data) != size {
			fail(apperrors.NewClusterError(
				fmt.Sprintf("partial from rank %d is %d bytes, want %d", rank, len(msg.Data), size), nil))
			return
		}

		mu.Lock()
		_, dup := buffers[rank]
		buffers[rank] = msg.Data
		ready := len(buffers) == want
		mu.Unlock()

		_ = msg.Respond(ackPayload)
		if dup {
			r.logger.Debug("replaced duplicate partial", logging.Int("rank", rank))
		}
		if ready {
			completeOnce.Do(func() { close(complete) })
		}
	})
	if err != nil {
		return nil, apperrors.NewClusterError("subscribing for partial sums failed", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	if want > 0 {
		r.logger.Debug("collecting partial sums",
			logging.Int("peers", want), logging.String("run_id", r.runID))
		select {
		case <-complete:
		case <-abort:
			return nil, handlerErrs.Err()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	mu.Lock()
	ranks := make([]int, 0, len(buffers))
	for rank := range buffers {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	combined := make([][]byte, len(ranks))
	for i, rank := range ranks {
		combined[i] = buffers[rank]
	}
	mu.Unlock()

	if len(combined) > 0 {
		folded := combined[0]
		for _, buf := range combined[1:] {
			folded, err = bignum.AddBuffers(r.backend, folded, buf)
			if err != nil {
				return nil, apperrors.NewClusterError("folding partial sums failed", err)
			}
		}
		peers, err := r.backend.Unmarshal(folded)
		if err != nil {
			return nil, apperrors.NewClusterError("decoding the folded partial failed", err)
		}
		local.Add(local, peers)
	}

	if err := r.nc.Publish(doneSubject(r.runID), []byte("done")); err != nil {
		return nil, apperrors.NewClusterError("broadcasting completion failed", err)
	}
	if err := r.nc.Flush(); err != nil {
		return nil, apperrors.NewClusterError("flushing the completion broadcast failed", err)
	}
	return local, nil
}

// contribute delivers this rank's partial to the coordinator and waits
// for the completion broadcast.
func (r *NATSReducer) contribute(ctx context.Context, local bignum.Value) error {
	done, err := r.nc.SubscribeSync(doneSubject(r.runID))
	if err != nil {
		return apperrors.NewClusterError("subscribing for completion failed", err)
	}
	defer func() { _ = done.Unsubscribe() }()

	buf, err := r.backend.Marshal(local)
	if err != nil {
		return apperrors.WrapError(err, "encoding the partial sum of rank %d", r.topo.Rank)
	}

	subject := partialSubject(r.runID, r.topo.Rank)
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
		_, err = r.nc.RequestWithContext(attemptCtx, subject, buf)
		cancel()
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, nats.ErrNoResponders) {
			return apperrors.NewClusterError("delivering the partial sum failed", err)
		}
		r.logger.Debug("partial not yet deliverable, retrying",
			logging.String("subject", subject), logging.Err(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryBackoff):
		}
	}

	if _, err := done.NextMsgWithContext(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.NewClusterError("waiting for run completion failed", err)
	}
	return nil
}
