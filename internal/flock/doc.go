// Package flock provides cross-platform advisory file locking.
//
// Exclusive and Unlock are thin non-blocking primitives over flock(2) and
// LockFileEx. Acquire layers a bounded retry loop on top so stores can
// serialize writers across processes:
//
//	lock, err := flock.Acquire(ctx, path+".lock", flock.DefaultTimeout)
//	if err != nil {
//	    return err
//	}
//	defer lock.Release()
package flock
