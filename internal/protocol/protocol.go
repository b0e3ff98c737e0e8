// Package protocol implements the three-verb line protocol of spec.md
// §4: tokenizing inbound lines and dispatching them to the IAMAT,
// WHATSAT and AT verb handlers. It is generalized from the teacher's
// proto.go command parser, which tokenized a single verb (SET) for a
// binary RESP stream; here the wire form is a plain newline-terminated
// text line and dispatch covers all three verbs plus the catch-all
// error reply.
package protocol

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/herdwatch/proxyherd/internal/metrics"
	"github.com/herdwatch/proxyherd/internal/store"
)

// locationPattern matches the ISO-6709 short form of spec.md §6:
// signed latitude immediately followed by signed longitude, each with
// a fractional part.
var locationPattern = regexp.MustCompile(`^([+-]\d+\.\d+)([+-]\d+\.\d+)$`)

// Propagator is the subset of gossip.Client the protocol handlers need.
type Propagator interface {
	Propagate(ctx context.Context, line string, exclude map[string]struct{})
	AlreadySeen(clientID, clientTimeRaw string) bool
}

// PlacesClient is the subset of places.Client the WHATSAT handler needs.
type PlacesClient interface {
	Search(ctx context.Context, lat, lng, radiusMeters float64, bound int) ([]byte, error)
}

// Handler dispatches inbound protocol lines for one daemon instance. It
// holds no per-connection state: every field is shared, process-scoped
// collaborator, matching spec.md §9's "pass it explicitly to handlers"
// guidance for the store.
type Handler struct {
	ServerName string
	Store      *store.Store
	Gossip     Propagator
	Places     PlacesClient
	Log        *logrus.Logger
	Metrics    *metrics.Metrics

	// Now returns the current wall-clock time; overridable in tests so
	// skew assertions don't race real time.
	Now func() time.Time
}

// New builds a Handler with Now defaulting to time.Now.
func New(serverName string, st *store.Store, g Propagator, pl PlacesClient, log *logrus.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		ServerName: serverName,
		Store:      st,
		Gossip:     g,
		Places:     pl,
		Log:        log,
		Metrics:    m,
		Now:        time.Now,
	}
}

// HandleLine processes one already newline-stripped protocol line and
// returns the reply to write back on the same socket, if any. An empty
// line is silently skipped (ok is false), matching spec.md §4.2 and the
// original source's "if not tokens: continue".
func (h *Handler) HandleLine(ctx context.Context, line string) (reply string, ok bool) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return "", false
	}

	switch tokens[0] {
	case "IAMAT":
		reply, ok = h.handleIAMAT(tokens)
	case "WHATSAT":
		reply, ok = h.handleWHATSAT(ctx, tokens)
	case "AT":
		reply, ok = h.handleAT(tokens)
	default:
		h.count("unknown", "malformed")
		reply, ok = errorReply(tokens), true
	}

	if ok && strings.HasPrefix(reply, "? ") && h.Log != nil {
		h.Log.WithField("line", strings.Join(tokens, " ")).Debug("protocol: rejected message")
	}
	return reply, ok
}

// errorReply builds the "? <line>" reply of spec.md §4.2, with the raw
// line's internal whitespace normalized to single spaces (strings.Fields
// followed by Join does exactly that).
func errorReply(tokens []string) string {
	return "? " + strings.Join(tokens, " ") + "\n"
}

func (h *Handler) count(verb, outcome string) {
	if h.Metrics != nil {
		h.Metrics.VerbsTotal.WithLabelValues(verb, outcome).Inc()
	}
}

// parseLocation extracts (latitude, longitude) from a verbatim location
// token, or reports failure for SemanticReject handling.
func parseLocation(loc string) (lat, lng float64, ok bool) {
	m := locationPattern.FindStringSubmatch(loc)
	if m == nil {
		return 0, 0, false
	}

	latF, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lngF, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	return latF, lngF, true
}

// parseFiniteFloat parses s as a finite float64, rejecting NaN/Inf which
// strconv.ParseFloat otherwise happily returns for "nan"/"inf" literals.
func parseFiniteFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
