package cluster

import (
	"net/url"
	"strconv"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	apperrors "github.com/hpcbench/picalc/internal/errors"
)

// DefaultReadyTimeout bounds how long an embedded broker may take to
// start accepting connections.
const DefaultReadyTimeout = 5 * time.Second

// StartEmbedded runs a broker inside this process, listening where
// clientURL points. Single-machine benchmarks embed the broker in rank 0
// and hand every rank the same URL, so no external infrastructure is
// needed. The caller owns the returned server and must Shutdown it.
func StartEmbedded(clientURL string, readyTimeout time.Duration) (*server.Server, error) {
	host, port, err := hostPortFromURL(clientURL)
	if err != nil {
		return nil, err
	}
	return StartEmbeddedAt(host, port, readyTimeout)
}

// StartEmbeddedAt is StartEmbedded with an explicit listen address. Port
// -1 asks the broker for a random free port; the actual address is then
// available from the server's ClientURL.
func StartEmbeddedAt(host string, port int, readyTimeout time.Duration) (*server.Server, error) {
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadyTimeout
	}
	opts := &server.Options{
		Host:   host,
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}
	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, apperrors.NewClusterError("embedded broker setup failed", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, apperrors.NewClusterError("embedded broker did not become ready", nil)
	}
	return ns, nil
}

func hostPortFromURL(raw string) (host string, port int, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, apperrors.NewClusterError("invalid broker URL", err)
	}
	host = u.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port = 4222
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, apperrors.NewClusterError("invalid broker port", err)
		}
	}
	return host, port, nil
}
