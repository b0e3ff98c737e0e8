package protocol

import (
	"context"
	"strings"

	"github.com/herdwatch/proxyherd/internal/store"
)

// handleAT implements spec.md §4.4: peer-to-peer gossip ingestion.
// Exactly six tokens, origin_server in tokens[1], client_time in
// tokens[5]. On success the incoming line is stored verbatim (subject
// to the same last-writer-wins test as IAMAT) and propagated onward to
// every peer except the one named in tokens[1] — the loop-prevention
// exclude-set. AT never replies on the ingesting socket.
func (h *Handler) handleAT(tokens []string) (string, bool) {
	if len(tokens) != 6 {
		h.count("AT", "malformed")
		return errorReply(tokens), true
	}

	origin := tokens[1]
	clientID := tokens[3]
	location := tokens[4]
	clientTimeRaw := tokens[5]

	clientTime, ok := parseFiniteFloat(clientTimeRaw)
	if !ok {
		h.count("AT", "malformed")
		return errorReply(tokens), true
	}

	// Gate on the seen-set before touching the store: two peers flooding
	// the identical (client_id, client_time) pair in at the same moment
	// land here as distinct goroutines, and only the first should pay
	// for the Upsert/gossip path. Checked here rather than after Upsert,
	// whose own strict-inequality check only ever reports success once
	// per pair for the life of the process and so would never observe a
	// duplicate.
	if h.Gossip.AlreadySeen(clientID, clientTimeRaw) {
		h.count("AT", "duplicate")
		return "", false
	}

	canonical := strings.Join(tokens, " ")

	rec := store.Record{
		Origin:        origin,
		Skew:          tokens[2],
		ClientID:      clientID,
		Location:      location,
		ClientTimeRaw: clientTimeRaw,
		ClientTime:    clientTime,
		Line:          canonical,
	}

	if !h.Store.Upsert(rec) {
		h.count("AT", "stale")
		return "", false
	}

	h.count("AT", "accepted")

	exclude := map[string]struct{}{origin: {}}
	go h.Gossip.Propagate(context.Background(), canonical, exclude)

	// AT is fire-and-forget: no reply on the ingesting socket, ever.
	return "", false
}
