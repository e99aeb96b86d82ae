package memory

import (
	"sync"

	"gocv.io/x/gocv"

	"cutout/internal/opencv/safe"
)

// Scope is a linear owner of Mats: adopt on creation, release once superseded,
// Close on every exit path.
type Scope struct {
	name    string
	manager *Manager
	mu      sync.Mutex
	mats    []*safe.Mat
	closed  bool
}

// Tracker returns the tracker Mats created for this scope should report to.
func (s *Scope) Tracker() safe.MemoryTracker {
	return s.manager
}

func (s *Scope) Name() string {
	return s.name
}

// NewMat allocates an uninitialised Mat owned by the scope.
func (s *Scope) NewMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	mat, err := safe.NewMatWithTracker(rows, cols, matType, s.manager, s.name+"/"+tag)
	if err != nil {
		return nil, err
	}
	return s.Adopt(mat), nil
}

// NewZeroMat allocates a zero-filled Mat owned by the scope.
func (s *Scope) NewZeroMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	mat, err := safe.NewZeroMatWithTracker(rows, cols, matType, s.manager, s.name+"/"+tag)
	if err != nil {
		return nil, err
	}
	return s.Adopt(mat), nil
}

// Adopt transfers ownership of mat to the scope. Adopting into a closed scope
// closes mat immediately.
func (s *Scope) Adopt(mat *safe.Mat) *safe.Mat {
	if mat == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		mat.Close()
		return mat
	}

	for _, owned := range s.mats {
		if owned == mat {
			return mat
		}
	}

	s.mats = append(s.mats, mat)
	return mat
}

// Release closes mat ahead of the scope and forgets it.
func (s *Scope) Release(mat *safe.Mat) {
	if mat == nil {
		return
	}

	s.mu.Lock()
	for i, owned := range s.mats {
		if owned == mat {
			s.mats = append(s.mats[:i], s.mats[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	mat.Close()
}

// Live reports how many Mats the scope still owns.
func (s *Scope) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mats)
}

// Close releases everything still owned, newest first.
func (s *Scope) Close() {
	s.mu.Lock()
	mats := s.mats
	s.mats = nil
	s.closed = true
	s.mu.Unlock()

	for i := len(mats) - 1; i >= 0; i-- {
		mats[i].Close()
	}

	if len(mats) > 0 {
		s.manager.logger.Debug("MemoryManager", "scope closed", map[string]interface{}{
			"scope":    s.name,
			"released": len(mats),
		})
	}
}
