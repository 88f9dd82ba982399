package track

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"clipforge/internal/renderapi"
)

// Guard deduplicates job submissions while an identical request is in
// flight. Its critical section spans an asynchronous network call, so
// acquire and release are explicit: Release must run exactly once per
// successful TryAcquire, on success and failure paths alike.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{inFlight: make(map[string]struct{})}
}

// TryAcquire registers a fingerprint. It returns false when an identical
// submission is already in flight.
func (g *Guard) TryAcquire(fingerprint string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inFlight[fingerprint]; ok {
		return false
	}
	g.inFlight[fingerprint] = struct{}{}
	return true
}

// Release removes a fingerprint once the guarded request settles. Releasing
// a fingerprint that is not held is a no-op.
func (g *Guard) Release(fingerprint string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, fingerprint)
}

type fingerprintPayload struct {
	ProductID string   `json:"product_id"`
	MediaIDs  []string `json:"media_ids"`
	Template  string   `json:"template"`
	Title     string   `json:"title"`
}

// Fingerprint derives a stable hash of a submission's semantic fields. Media
// ids are sorted and whitespace trimmed so two logically identical requests
// collapse to the same value regardless of input order.
func Fingerprint(req renderapi.CreateJobRequest) string {
	media := make([]string, 0, len(req.MediaIDs))
	for _, id := range req.MediaIDs {
		media = append(media, strings.TrimSpace(id))
	}
	sort.Strings(media)

	payload := fingerprintPayload{
		ProductID: strings.TrimSpace(req.ProductID),
		MediaIDs:  media,
		Template:  strings.TrimSpace(req.Template),
		Title:     strings.TrimSpace(req.Title),
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
