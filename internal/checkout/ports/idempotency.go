package ports

import "context"

// StoredResponse contains the response data to replay for a reused key. A
// zero StatusCode marks a claim whose first request has not finished yet.
type StoredResponse struct {
	StatusCode int
	Body       []byte
	BatchToken string
}

// Pending reports whether the claim is still awaiting its response.
func (r StoredResponse) Pending() bool {
	return r.StatusCode == 0
}

// IdempotencyStore lets payment initiation be retried safely. The key is
// claimed atomically before any side effect runs, so two concurrent requests
// with the same key cannot both open a gateway session: the loser observes
// the winner's claim and replays the stored response, or is told the first
// request is still in flight.
type IdempotencyStore interface {
	// Claim registers the key for a checkout. claimed reports whether this
	// caller inserted the claim; when false, existing holds the prior record.
	Claim(ctx context.Context, key, batchToken string) (existing *StoredResponse, claimed bool, err error)

	// Complete records the response to replay for the claimed key.
	Complete(ctx context.Context, key string, response StoredResponse) error

	// Release abandons a claim whose request failed, so the same key can be
	// retried.
	Release(ctx context.Context, key string) error
}
