package hdltable

import (
	"github.com/camreq/hdltable/hdlutils"
	"github.com/camreq/hdltable/hdlutils/codec"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// AddStatistics sums the table's current slot counts into the provided statistics
func (t *Table) AddStatistics(stats *hdlutils.Statistics) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	t.addStatistics(stats)
}

// AddDetailedStatistics sums the table's current slot counts and lifetime counters into the
// provided statistics
func (t *Table) AddDetailedStatistics(stats *hdlutils.DetailedStatistics) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	t.addDetailedStatistics(stats)
}

func (t *Table) addStatistics(stats *hdlutils.Statistics) {
	if !t.initialized() {
		return
	}

	stats.Capacity += len(t.records)
	t.bitmap.VisitSet(func(index int) bool {
		stats.ActiveCount++
		switch t.records[index].hdlType {
		case codec.TypeSession:
			stats.SessionCount++
		case codec.TypeDevice:
			stats.DeviceCount++
		case codec.TypeLink:
			stats.LinkCount++
		}
		return true
	})
}

func (t *Table) addDetailedStatistics(stats *hdlutils.DetailedStatistics) {
	t.addStatistics(&stats.Statistics)

	stats.CreatedCount += t.createdCount
	stats.DestroyedCount += t.destroyedCount
	stats.SweptCount += t.sweptCount
	stats.TableFullCount += t.tableFullCount
	stats.InvalidHandleCount += int(t.invalidHandleCount.Load())
	if t.highWaterMark > stats.HighWaterMark {
		stats.HighWaterMark = t.highWaterMark
	}
}

// BuildStatsString returns a JSON document describing the table. When detailed is true, every
// active handle is listed.
func (t *Table) BuildStatsString(detailed bool) string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	writer := jwriter.NewWriter()
	obj := writer.Object()

	var stats hdlutils.DetailedStatistics
	stats.Clear()
	t.addDetailedStatistics(&stats)

	total := obj.Name("Total").Object()
	total.Name("Capacity").Int(stats.Capacity)
	total.Name("Active").Int(stats.ActiveCount)
	total.Name("Free").Int(stats.FreeCount())
	total.Name("Sessions").Int(stats.SessionCount)
	total.Name("Devices").Int(stats.DeviceCount)
	total.Name("Links").Int(stats.LinkCount)
	total.Name("HighWaterMark").Int(stats.HighWaterMark)
	total.End()

	lifetime := obj.Name("Lifetime").Object()
	lifetime.Name("Created").Int(stats.CreatedCount)
	lifetime.Name("Destroyed").Int(stats.DestroyedCount)
	lifetime.Name("Swept").Int(stats.SweptCount)
	lifetime.Name("TableFull").Int(stats.TableFullCount)
	lifetime.Name("InvalidHandle").Int(stats.InvalidHandleCount)
	lifetime.End()

	if detailed && t.initialized() {
		t.printDetailedHandles(&obj)
	}

	obj.End()
	return string(writer.Bytes())
}

func (t *Table) printDetailedHandles(json *jwriter.ObjectState) {
	handles := json.Name("Handles").Array()
	defer handles.End()

	t.bitmap.VisitSet(func(index int) bool {
		obj := handles.Object()
		defer obj.End()

		obj.Name("Index").Int(index)
		t.records[index].printParameters(&obj)
		return true
	})
}
