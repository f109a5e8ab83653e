package hdlutils

// Statistics is a point-in-time count of the slots in a handle table
type Statistics struct {
	Capacity     int
	ActiveCount  int
	SessionCount int
	DeviceCount  int
	LinkCount    int
}

func (s *Statistics) Clear() {
	s.Capacity = 0
	s.ActiveCount = 0
	s.SessionCount = 0
	s.DeviceCount = 0
	s.LinkCount = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.Capacity += other.Capacity
	s.ActiveCount += other.ActiveCount
	s.SessionCount += other.SessionCount
	s.DeviceCount += other.DeviceCount
	s.LinkCount += other.LinkCount
}

// FreeCount is the number of slots that could still be handed out
func (s *Statistics) FreeCount() int {
	return s.Capacity - s.ActiveCount
}

// DetailedStatistics extends Statistics with lifetime counters
type DetailedStatistics struct {
	Statistics
	CreatedCount       int
	DestroyedCount     int
	SweptCount         int
	TableFullCount     int
	InvalidHandleCount int
	HighWaterMark      int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.CreatedCount = 0
	s.DestroyedCount = 0
	s.SweptCount = 0
	s.TableFullCount = 0
	s.InvalidHandleCount = 0
	s.HighWaterMark = 0
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.CreatedCount += other.CreatedCount
	s.DestroyedCount += other.DestroyedCount
	s.SweptCount += other.SweptCount
	s.TableFullCount += other.TableFullCount
	s.InvalidHandleCount += other.InvalidHandleCount

	if other.HighWaterMark > s.HighWaterMark {
		s.HighWaterMark = other.HighWaterMark
	}
}
