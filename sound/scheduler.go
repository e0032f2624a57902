package sound

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d1nch8g/phonics/audio"
)

// Scheduler plays decoded segments back to back on an Output without gaps.
// Each segment starts at max(now, end of the previous segment).
type Scheduler struct {
	out    Output
	logger *zap.Logger

	mu        sync.Mutex
	nextStart time.Duration
	epoch     uint64
	active    map[Node]struct{}
}

func NewScheduler(out Output, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		out:    out,
		logger: logger,
		active: make(map[Node]struct{}),
	}
}

// Enqueue schedules seg right after everything already queued and returns
// the clock position it was scheduled at. Empty segments are skipped.
func (s *Scheduler) Enqueue(seg audio.Segment) (time.Duration, error) {
	if seg.Empty() {
		return 0, nil
	}
	if s.out == nil {
		return 0, errors.New("no audio output configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.out.Now()
	if s.nextStart > start {
		start = s.nextStart
	}

	node, err := s.out.Start(seg, start)
	if err != nil {
		return 0, err
	}
	// The output may resample, so the node knows its real end better
	// than seg.Duration does.
	s.nextStart = node.End()
	s.active[node] = struct{}{}

	go s.watch(node, s.epoch)

	s.logger.Debug("segment scheduled",
		zap.Duration("start", start),
		zap.Duration("duration", seg.Duration()),
		zap.Int("active", len(s.active)))
	return start, nil
}

func (s *Scheduler) watch(node Node, epoch uint64) {
	<-node.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	delete(s.active, node)
}

// Busy reports whether any scheduled segment has not finished yet.
func (s *Scheduler) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active) > 0
}

// Cursor returns the clock position where the next segment would start.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// Stop halts every scheduled segment and resets the cursor. Nodes that had
// already finished are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	nodes := make([]Node, 0, len(s.active))
	for node := range s.active {
		nodes = append(nodes, node)
	}
	s.active = make(map[Node]struct{})
	s.nextStart = 0
	s.epoch++
	s.mu.Unlock()

	for _, node := range nodes {
		if err := node.Stop(); err != nil && !errors.Is(err, ErrNodeStopped) {
			s.logger.Debug("failed to stop node", zap.Error(err))
		}
	}
}
