package protocol

import (
	"context"
	"strconv"
)

// handleWHATSAT implements spec.md §4.5: look up the client's stored
// location, query the Places adapter, and frame the reply as the
// canonical AT line, a newline, the pretty-printed JSON body, and a
// trailing blank line. Any precondition failure (bad shape, radius >
// 50, bound > 20, unknown client, unparseable stored location, or a
// failed/non-success Places call) yields the "? <line>" SemanticReject
// reply instead.
func (h *Handler) handleWHATSAT(ctx context.Context, tokens []string) (string, bool) {
	if len(tokens) != 4 {
		h.count("WHATSAT", "malformed")
		return errorReply(tokens), true
	}

	clientID := tokens[1]

	radiusKM, err := strconv.ParseFloat(tokens[2], 64)
	if err != nil || radiusKM > 50 {
		h.count("WHATSAT", "rejected")
		return errorReply(tokens), true
	}

	bound, err := strconv.Atoi(tokens[3])
	if err != nil || bound < 0 || bound > 20 {
		h.count("WHATSAT", "rejected")
		return errorReply(tokens), true
	}

	rec, ok := h.Store.Get(clientID)
	if !ok {
		h.count("WHATSAT", "unknown_client")
		return errorReply(tokens), true
	}

	lat, lng, ok := parseLocation(rec.Location)
	if !ok {
		h.count("WHATSAT", "bad_stored_location")
		return errorReply(tokens), true
	}

	body, err := h.Places.Search(ctx, lat, lng, radiusKM*1000, bound)
	if err != nil {
		h.Log.WithError(err).WithField("client_id", clientID).Warn("whatsat: places call failed")
		h.count("WHATSAT", "places_failed")
		if h.Metrics != nil {
			h.Metrics.PlacesCalls.WithLabelValues("failed").Inc()
		}
		return errorReply(tokens), true
	}

	if h.Metrics != nil {
		h.Metrics.PlacesCalls.WithLabelValues("ok").Inc()
	}
	h.count("WHATSAT", "ok")

	return rec.Line + "\n" + string(body) + "\n\n", true
}
