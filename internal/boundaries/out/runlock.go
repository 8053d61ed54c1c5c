package out

// RunLock serializes runs across processes.
type RunLock interface {
	// TryLock acquires the lock without blocking. It returns
	// domain.ErrRunInProgress when another holder exists.
	TryLock() (release func(), err error)
}
