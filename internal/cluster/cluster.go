// Package cluster connects the processes of a multi-process run. The
// coordinator (rank 0) collects one partial sum per peer over a NATS
// broker, folds them into its own, and broadcasts a completion signal that
// releases the peers. Processes agree on broker subjects without talking
// to each other: every subject is derived from the run ID, which every
// process derives from the same launch parameters.
package cluster

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/zeebo/xxh3"

	apperrors "github.com/hpcbench/picalc/internal/errors"
)

// Topology describes one process's place in a run.
type Topology struct {
	// NumProcs is the total number of processes, P.
	NumProcs int
	// Rank identifies this process, 0 through P-1.
	Rank int
}

// IsCoordinator reports whether this process collects the partial sums
// and reports the result.
func (t Topology) IsCoordinator() bool { return t.Rank == 0 }

// Peers returns the number of processes the coordinator waits for.
func (t Topology) Peers() int { return t.NumProcs - 1 }

// DeriveRunID produces the broker namespace shared by every process of a
// run. Processes launched with identical parameters derive identical IDs,
// so concurrent runs on a shared broker stay isolated without handshakes.
func DeriveRunID(library, algorithm string, precision, procs, threads int) string {
	key := fmt.Sprintf("%s|%s|%d|%d|%d", library, algorithm, precision, procs, threads)
	return fmt.Sprintf("%016x", xxh3.HashString(key))
}

// Subject layout for one run:
//
//	picalc.<runID>.partial.<rank>   one publisher per peer rank
//	picalc.<runID>.done             broadcast by the coordinator
func partialSubject(runID string, rank int) string {
	return fmt.Sprintf("picalc.%s.partial.%d", runID, rank)
}

func partialWildcard(runID string) string {
	return "picalc." + runID + ".partial.*"
}

func doneSubject(runID string) string {
	return "picalc." + runID + ".done"
}

func rankFromSubject(subject string) (int, error) {
	idx := strings.LastIndex(subject, ".")
	if idx < 0 || idx == len(subject)-1 {
		return 0, apperrors.NewClusterError(fmt.Sprintf("malformed partial subject %q", subject), nil)
	}
	rank, err := strconv.Atoi(subject[idx+1:])
	if err != nil {
		return 0, apperrors.NewClusterError(fmt.Sprintf("malformed partial subject %q", subject), err)
	}
	return rank, nil
}

// Connect dials the broker with the retry profile a benchmark launch
// needs: peers may start before the coordinator's embedded broker is
// listening, so the initial connect keeps retrying in the background.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(250*time.Millisecond),
	)
	if err != nil {
		return nil, apperrors.NewClusterError("broker connection failed", err)
	}
	return nc, nil
}
