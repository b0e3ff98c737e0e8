// Package gossip implements the flood/gossip propagator of spec.md §4.6:
// given a canonical AT line and an exclude-set of peer names, it opens a
// short-lived outbound connection to every remaining adjacent peer,
// writes the line once, and closes. It is adapted from the teacher's
// client/client.go dial-and-write pattern, generalized from a single
// fixed address to the herd's full adjacency list.
package gossip

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/herdwatch/proxyherd/internal/metrics"
)

// dialTimeout bounds outbound connection establishment so a wedged peer
// can't block the propagator indefinitely; spec.md §5 recommends (but
// does not require) a bounded write timeout for the same reason.
const dialTimeout = 2 * time.Second

// Propagator sends an AT line to every adjacent peer not in an
// exclude-set. IAMAT and AT verb handlers each dispatch a Propagate
// call as an independent goroutine so the ingestion path never blocks
// on it.
type Propagator interface {
	Propagate(ctx context.Context, line string, exclude map[string]struct{})
}

// PeerLister resolves a server's current adjacency to dial addresses;
// *config.Config satisfies it via PeerAddrs.
type PeerLister interface {
	PeerAddrs(server string) map[string]string
}

// Client is the concrete Propagator used by the daemon.
type Client struct {
	ServerName string
	Peers      PeerLister
	Log        *logrus.Logger
	Metrics    *metrics.Metrics
	dedup      *seenSet
}

// New builds a gossip Client for serverName, resolving peers through
// peers at send time (so topology stays a frozen, load-time-only value
// per spec.md §3, read fresh from the same map on every send).
func New(serverName string, peers PeerLister, log *logrus.Logger, m *metrics.Metrics) *Client {
	return &Client{
		ServerName: serverName,
		Peers:      peers,
		Log:        log,
		Metrics:    m,
		dedup:      newSeenSet(),
	}
}

// Propagate sends line to every peer adjacent to ServerName except
// those named in exclude. Sends to distinct peers are sequential within
// one Propagate call, as spec.md §4.6 and §9 require; distinct
// Propagate calls (separate ingestion events) run concurrently because
// callers invoke Propagate in its own goroutine.
func (c *Client) Propagate(ctx context.Context, line string, exclude map[string]struct{}) {
	for peer, addr := range c.Peers.PeerAddrs(c.ServerName) {
		if _, skip := exclude[peer]; skip {
			continue
		}

		if err := c.send(ctx, addr, line); err != nil {
			c.Log.WithFields(logrus.Fields{
				"server": c.ServerName,
				"peer":   peer,
				"addr":   addr,
			}).WithError(err).Warn("gossip: peer send failed")
			if c.Metrics != nil {
				c.Metrics.GossipFailed.Inc()
			}
			continue
		}

		if c.Metrics != nil {
			c.Metrics.GossipSent.Inc()
		}
	}
}

// send opens one short-lived connection to addr, writes line with its
// trailing newline, and closes. PeerSendFailure (spec.md §7) is
// reported to the caller, which logs and moves on to the next peer.
func (c *Client) send(ctx context.Context, addr, line string) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	}

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write to %s: %w", addr, err)
	}

	return nil
}

// AlreadySeen reports whether (clientID, clientTimeRaw) has already been
// observed by this daemon, the seen-set strengthening of spec.md §9, and
// records the pair on its first observation. handleAT consults it before
// the store update, so a hit skips both the store and the re-flood.
func (c *Client) AlreadySeen(clientID, clientTimeRaw string) bool {
	return c.dedup.observe(clientID + "@" + clientTimeRaw)
}
