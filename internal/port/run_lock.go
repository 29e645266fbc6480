package port

import "context"

// RunLock keeps two update runs from reconciling the same store at once.
type RunLock interface {
	// TryAcquire returns domain.ErrRunInProgress when another holder exists.
	// The returned release func must be called once the run is over.
	TryAcquire(ctx context.Context) (release func(), err error)
}
