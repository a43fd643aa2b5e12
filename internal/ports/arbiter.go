// Package ports hands out loopback TCP ports that are both currently
// bindable and exclusively reserved through a cross-process lock file. The
// OS only guarantees a port is unique for the instant a probe socket is
// bound; the lock extends that guarantee until the spawned node binds the
// port itself.
package ports

import (
	"fmt"
	"net"
	"strconv"

	"github.com/AlexKushnir1/near-sandbox-go/internal/portlock"
	"github.com/AlexKushnir1/near-sandbox-go/internal/sanderr"
	"github.com/AlexKushnir1/near-sandbox-go/pkg/logger"
)

// DefaultHost is the interface sandbox nodes bind on.
const DefaultHost = "127.0.0.1"

// maxEphemeralAttempts bounds the retry loop for OS-assigned ports.
// Collisions with other concurrent test runs are expected, not fatal.
const maxEphemeralAttempts = 10

// Lease is an exclusive claim on one port, backed by a lock file. It stays
// valid until Release is called.
type Lease struct {
	Port     int
	LockPath string

	locks *portlock.Registrar
}

// Release gives the port back. The lock may only be released once.
func (l *Lease) Release() error {
	return l.locks.Unlock(l.LockPath)
}

// Pair packages the two leases a sandbox session needs.
type Pair struct {
	RPCAddr string
	NetAddr string
	RPC     *Lease
	Net     *Lease
}

// Arbiter acquires ports by probing the loopback interface and locking the
// port's lock file before handing it to the caller.
type Arbiter struct {
	host  string
	locks *portlock.Registrar
}

// NewArbiter creates an Arbiter using the given lock registrar.
func NewArbiter(locks *portlock.Registrar) *Arbiter {
	return &Arbiter{host: DefaultHost, locks: locks}
}

// Acquire leases a port. A non-zero port is probed and locked exactly as
// requested; port 0 asks the OS for an ephemeral port, retrying on lock
// contention up to the attempt budget.
func (a *Arbiter) Acquire(port int) (*Lease, error) {
	if port != 0 {
		return a.acquireExplicit(port)
	}
	return a.acquireEphemeral()
}

func (a *Arbiter) acquireExplicit(port int) (*Lease, error) {
	assigned, err := a.probe(port)
	if err != nil {
		return nil, sanderr.Wrap(sanderr.PortNotAvailable, err, "port %d is not available", port)
	}
	// A successful bind should always report the requested port back.
	if assigned != port {
		return nil, sanderr.New(sanderr.PortNotAvailable, "port %d is not available: OS assigned %d instead", port, assigned)
	}
	lease, err := a.lockPort(port)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("port", port).Str("lock", lease.LockPath).Msg("acquired explicit port")
	return lease, nil
}

func (a *Arbiter) acquireEphemeral() (*Lease, error) {
	var attempts []error
	for i := 0; i < maxEphemeralAttempts; i++ {
		port, err := a.probe(0)
		if err != nil {
			attempts = append(attempts, fmt.Errorf("attempt %d: %w", i+1, err))
			continue
		}
		lease, err := a.lockPort(port)
		if err != nil {
			attempts = append(attempts, fmt.Errorf("attempt %d: port %d: %w", i+1, port, err))
			continue
		}
		logger.Debug().Int("port", port).Int("attempts", i+1).Msg("acquired ephemeral port")
		return lease, nil
	}
	return nil, sanderr.Aggregate(sanderr.PortAcquisitionFailed,
		fmt.Sprintf("no free port after %d attempts", maxEphemeralAttempts), attempts)
}

// probe binds port on the loopback interface, reads back the OS-assigned
// port, and closes the socket. The socket is released immediately; the lock
// file is what keeps the port reserved afterwards.
func (a *Arbiter) probe(port int) (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(a.host, strconv.Itoa(port)))
	if err != nil {
		return 0, err
	}
	assigned := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		return 0, err
	}
	return assigned, nil
}

func (a *Arbiter) lockPort(port int) (*Lease, error) {
	path, err := a.locks.EnsureLockFile(port)
	if err != nil {
		return nil, err
	}
	if err := a.locks.Lock(path); err != nil {
		return nil, err
	}
	return &Lease{Port: port, LockPath: path, locks: a.locks}, nil
}

// GetPorts acquires the RPC lease first, then the network lease, and
// packages both with their host:port addresses. Pass 0 to let the OS pick.
// Requesting the same explicit port twice is rejected up front.
func (a *Arbiter) GetPorts(rpcPort, netPort int) (*Pair, error) {
	if rpcPort != 0 && rpcPort == netPort {
		return nil, sanderr.New(sanderr.PortNotAvailable, "port %d requested for both RPC and network addresses", rpcPort)
	}

	rpc, err := a.Acquire(rpcPort)
	if err != nil {
		return nil, err
	}
	netLease, err := a.Acquire(netPort)
	if err != nil {
		if relErr := rpc.Release(); relErr != nil {
			logger.Warnf("release RPC port %d after failed network acquisition: %v", rpc.Port, relErr)
		}
		return nil, err
	}

	return &Pair{
		RPCAddr: net.JoinHostPort(a.host, strconv.Itoa(rpc.Port)),
		NetAddr: net.JoinHostPort(a.host, strconv.Itoa(netLease.Port)),
		RPC:     rpc,
		Net:     netLease,
	}, nil
}
