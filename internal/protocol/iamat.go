package protocol

import (
	"context"
	"fmt"

	"github.com/herdwatch/proxyherd/internal/store"
)

// handleIAMAT implements spec.md §4.3: exactly four tokens, a
// well-formed location and a parseable client_time. On success it
// echoes the canonical AT line to the client and, if this update is
// newer than what's stored, updates the store and gossips with an
// empty exclude-set.
func (h *Handler) handleIAMAT(tokens []string) (string, bool) {
	if len(tokens) != 4 {
		h.count("IAMAT", "malformed")
		return errorReply(tokens), true
	}

	clientID, location, clientTimeRaw := tokens[1], tokens[2], tokens[3]

	if !locationPattern.MatchString(location) {
		h.count("IAMAT", "malformed")
		return errorReply(tokens), true
	}

	clientTime, ok := parseFiniteFloat(clientTimeRaw)
	if !ok {
		h.count("IAMAT", "malformed")
		return errorReply(tokens), true
	}

	now := h.Now()
	skew := float64(now.UnixNano())/1e9 - clientTime
	skewStr := fmt.Sprintf("%+.6f", skew)

	canonical := fmt.Sprintf("AT %s %s %s %s %s", h.ServerName, skewStr, clientID, location, clientTimeRaw)

	rec := store.Record{
		Origin:        h.ServerName,
		Skew:          skewStr,
		ClientID:      clientID,
		Location:      location,
		ClientTimeRaw: clientTimeRaw,
		ClientTime:    clientTime,
		Line:          canonical,
	}

	if h.Store.Upsert(rec) {
		h.count("IAMAT", "accepted")
		go h.Gossip.Propagate(context.Background(), canonical, map[string]struct{}{})
	} else {
		h.count("IAMAT", "stale")
	}

	return canonical + "\n", true
}
