package pg

import "sync"

// statsAvgWindow bounds the number of samples the rolling averages weigh.
const statsAvgWindow = 16

// Stats are the counters of one controller.
type Stats struct {
	EntryCount             uint32
	ExitCount              uint32
	AbortCount             uint32
	EntryFailCount         uint32
	ExitFailCount          uint32
	ResetFailCount         uint32
	DuplicateDisallowCount uint32
	IdleSnapCount          uint32
	StaleIdleSnapCount     uint32
	ThrashingCount         uint32

	AvgEntryLatencyUs   uint64
	AvgExitLatencyUs    uint64
	LastResidentTimeUs  uint64
	TotalResidentTimeUs uint64
	PoweredDownAtUs     uint64
}

// statsRecorder guards the stats so that they can be read outside the task.
type statsRecorder struct {
	lock  sync.Mutex
	stats Stats
}

func (s *statsRecorder) update(f func(st *Stats)) {
	s.lock.Lock()
	f(&s.stats)
	s.lock.Unlock()
}

func (s *statsRecorder) get() Stats {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.stats
}

func rollingAverage(avg, sample uint64, count uint32) uint64 {
	n := uint64(count)
	if n > statsAvgWindow {
		n = statsAvgWindow
	}

	if n <= 1 {
		return sample
	}

	return (avg*(n-1) + sample) / n
}
