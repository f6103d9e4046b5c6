package cluster

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/hpcbench/picalc/internal/bignum"
	apperrors "github.com/hpcbench/picalc/internal/errors"
	"github.com/hpcbench/picalc/internal/logging"
)

func startBroker(t *testing.T) *server.Server {
	t.Helper()
	ns, err := StartEmbeddedAt("127.0.0.1", -1, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns
}

func connectBroker(t *testing.T, ns *server.Server, name string) *nats.Conn {
	t.Helper()
	nc, err := Connect(ns.ClientURL(), name)
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func newBackend(t testing.TB, precision int) bignum.Backend {
	t.Helper()
	b, err := bignum.GlobalFactory().Create("big")
	require.NoError(t, err)
	b.SetWorkingPrecision(uint(precision) * 8)
	return b
}

type reduceOutcome struct {
	value bignum.Value
	err   error
}

func runReduce(ctx context.Context, r *NATSReducer, local bignum.Value) <-chan reduceOutcome {
	ch := make(chan reduceOutcome, 1)
	go func() {
		v, err := r.Reduce(ctx, local)
		ch <- reduceOutcome{value: v, err: err}
	}()
	return ch
}

func TestDeriveRunID(t *testing.T) {
	t.Parallel()

	a := DeriveRunID("big", "bbp", 1000, 4, 8)
	b := DeriveRunID("big", "bbp", 1000, 4, 8)
	require.Equal(t, a, b, "identical parameters must derive identical IDs")
	require.Len(t, a, 16)

	variations := []string{
		DeriveRunID("apd", "bbp", 1000, 4, 8),
		DeriveRunID("big", "bellard", 1000, 4, 8),
		DeriveRunID("big", "bbp", 1001, 4, 8),
		DeriveRunID("big", "bbp", 1000, 2, 8),
		DeriveRunID("big", "bbp", 1000, 4, 2),
	}
	for _, v := range variations {
		require.NotEqual(t, a, v)
	}
}

func TestTopology(t *testing.T) {
	t.Parallel()

	coordinator := Topology{NumProcs: 4, Rank: 0}
	require.True(t, coordinator.IsCoordinator())
	require.Equal(t, 3, coordinator.Peers())

	peer := Topology{NumProcs: 4, Rank: 3}
	require.False(t, peer.IsCoordinator())
}

func TestRankFromSubject(t *testing.T) {
	t.Parallel()

	rank, err := rankFromSubject("picalc.abc123.partial.7")
	require.NoError(t, err)
	require.Equal(t, 7, rank)

	for _, subject := range []string{"", "nodots", "picalc.abc123.partial.", "picalc.abc123.partial.seven"} {
		_, err := rankFromSubject(subject)
		require.Error(t, err, "subject %q", subject)
	}
}

func TestHostPortFromURL(t *testing.T) {
	t.Parallel()

	host, port, err := hostPortFromURL("nats://10.0.0.5:4333")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", host)
	require.Equal(t, 4333, port)

	host, port, err = hostPortFromURL("nats://broker.internal")
	require.NoError(t, err)
	require.Equal(t, "broker.internal", host)
	require.Equal(t, 4222, port)

	host, port, err = hostPortFromURL("nats://")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", host)
	require.Equal(t, 4222, port)

	_, _, err = hostPortFromURL("://nonsense")
	require.Error(t, err)
}

func TestNATSReducerTwoProcesses(t *testing.T) {
	t.Parallel()

	ns := startBroker(t)
	runID := DeriveRunID("big", "bbp", 64, 2, 1)
	const precision = 64

	coordBackend := newBackend(t, precision)
	peerBackend := newBackend(t, precision)
	coord := NewNATSReducer(connectBroker(t, ns, "rank-0"), coordBackend,
		Topology{NumProcs: 2, Rank: 0}, runID, logging.NewNopLogger())
	peer := NewNATSReducer(connectBroker(t, ns, "rank-1"), peerBackend,
		Topology{NumProcs: 2, Rank: 1}, runID, logging.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	local0 := coordBackend.New().SetRatio(big.NewInt(5), big.NewInt(4))
	local1 := peerBackend.New().SetRatio(big.NewInt(5), big.NewInt(2))

	coordCh := runReduce(ctx, coord, local0)
	peerCh := runReduce(ctx, peer, local1)

	peerOut := <-peerCh
	require.NoError(t, peerOut.err)
	require.Nil(t, peerOut.value, "peers must not receive the global sum")

	coordOut := <-coordCh
	require.NoError(t, coordOut.err)
	require.NotNil(t, coordOut.value)

	want := coordBackend.New().SetRatio(big.NewInt(15), big.NewInt(4))
	require.Zero(t, coordOut.value.Cmp(want), "global sum = %s, want %s",
		coordOut.value.Text(10), want.Text(10))
}

// The peers publish before the coordinator subscribes; the request retry
// loop has to carry the partials across that gap.
func TestNATSReducerPeersFirst(t *testing.T) {
	t.Parallel()

	ns := startBroker(t)
	runID := DeriveRunID("big", "bellard", 64, 3, 1)
	const precision = 64

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	peerChs := make([]<-chan reduceOutcome, 0, 2)
	for rank := 1; rank <= 2; rank++ {
		b := newBackend(t, precision)
		r := NewNATSReducer(connectBroker(t, ns, "peer"), b,
			Topology{NumProcs: 3, Rank: rank}, runID, logging.NewNopLogger())
		local := b.New().SetUint64(uint64(rank))
		peerChs = append(peerChs, runReduce(ctx, r, local))
	}

	time.Sleep(300 * time.Millisecond)

	coordBackend := newBackend(t, precision)
	coord := NewNATSReducer(connectBroker(t, ns, "rank-0"), coordBackend,
		Topology{NumProcs: 3, Rank: 0}, runID, logging.NewNopLogger())
	coordCh := runReduce(ctx, coord, coordBackend.New().SetUint64(4))

	for _, ch := range peerChs {
		out := <-ch
		require.NoError(t, out.err)
		require.Nil(t, out.value)
	}
	coordOut := <-coordCh
	require.NoError(t, coordOut.err)

	want := coordBackend.New().SetUint64(7)
	require.Zero(t, coordOut.value.Cmp(want), "global sum = %s, want 7", coordOut.value.Text(4))
}

func TestNATSReducerRejectsWrongBufferSize(t *testing.T) {
	t.Parallel()

	ns := startBroker(t)
	runID := DeriveRunID("big", "bbp", 128, 2, 1)

	coordBackend := newBackend(t, 128)
	peerBackend := newBackend(t, 64)
	coord := NewNATSReducer(connectBroker(t, ns, "rank-0"), coordBackend,
		Topology{NumProcs: 2, Rank: 0}, runID, logging.NewNopLogger())
	peer := NewNATSReducer(connectBroker(t, ns, "rank-1"), peerBackend,
		Topology{NumProcs: 2, Rank: 1}, runID, logging.NewNopLogger())
	peer.requestTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	coordCh := runReduce(ctx, coord, coordBackend.New().SetUint64(1))
	peerCh := runReduce(ctx, peer, peerBackend.New().SetUint64(2))

	coordOut := <-coordCh
	require.Error(t, coordOut.err)
	var clusterErr apperrors.ClusterError
	require.ErrorAs(t, coordOut.err, &clusterErr)
	require.Contains(t, clusterErr.Message, "bytes")

	// The rejected partial is never acknowledged, so the peer runs into
	// its context deadline.
	peerOut := <-peerCh
	require.Error(t, peerOut.err)
	require.True(t, apperrors.IsContextError(peerOut.err))
}

func TestNATSReducerCoordinatorTimeout(t *testing.T) {
	t.Parallel()

	ns := startBroker(t)
	runID := DeriveRunID("big", "chudnovsky", 64, 2, 1)

	b := newBackend(t, 64)
	coord := NewNATSReducer(connectBroker(t, ns, "rank-0"), b,
		Topology{NumProcs: 2, Rank: 0}, runID, logging.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := coord.Reduce(ctx, b.New().SetUint64(1))
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Equal(t, apperrors.ExitErrorTimeout, apperrors.ExitCodeFor(err))
}

func TestNATSReducerDuplicateDelivery(t *testing.T) {
	t.Parallel()

	ns := startBroker(t)
	runID := DeriveRunID("big", "bbp", 64, 2, 2)
	const precision = 64

	coordBackend := newBackend(t, precision)
	coord := NewNATSReducer(connectBroker(t, ns, "rank-0"), coordBackend,
		Topology{NumProcs: 2, Rank: 0}, runID, logging.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	coordCh := runReduce(ctx, coord, coordBackend.New().SetUint64(10))

	// Deliver the same partial twice by hand, as a retry after a lost
	// acknowledgment would. The second copy must replace, not add.
	peerBackend := newBackend(t, precision)
	buf, err := peerBackend.Marshal(peerBackend.New().SetUint64(5))
	require.NoError(t, err)

	nc := connectBroker(t, ns, "flaky-peer")
	subject := partialSubject(runID, 1)
	deadline := time.Now().Add(5 * time.Second)
	for {
		_, err = nc.Request(subject, buf, 500*time.Millisecond)
		if err == nil {
			break
		}
		require.False(t, time.Now().After(deadline), "partial never acknowledged: %v", err)
		time.Sleep(50 * time.Millisecond)
	}
	// The collector already has everything it needs; a late duplicate
	// must not corrupt the sum. Its acknowledgment may or may not arrive
	// before the subscription is torn down, so fire and forget.
	_ = nc.Publish(subject, buf)
	_ = nc.Flush()

	coordOut := <-coordCh
	require.NoError(t, coordOut.err)
	want := coordBackend.New().SetUint64(15)
	require.Zero(t, coordOut.value.Cmp(want), "global sum = %s, want 15", coordOut.value.Text(4))
}
