package utils

// Guard runs a cleanup when a constructor returns early with an error. Construct it once the
// resource exists, defer OnFail, and call Success just before the successful return:
//
//	guard := NewGuard(registry.Close)
//	defer guard.OnFail()
//	if err := wire(); err != nil {
//		return nil, err
//	}
//	guard.Success()
type Guard struct {
	cleanup func()
	done    bool
}

// NewGuard returns a Guard that calls cleanup from OnFail unless Success was called first.
func NewGuard(cleanup func()) *Guard {
	return &Guard{cleanup: cleanup}
}

// OnFail runs the cleanup if the guarded function did not succeed.
func (g *Guard) OnFail() {
	if !g.done && g.cleanup != nil {
		g.cleanup()
	}
}

// Success marks the guarded function as succeeded.
func (g *Guard) Success() {
	g.done = true
}
