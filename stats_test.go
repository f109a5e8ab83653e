package hdltable

import (
	"encoding/json"
	"testing"

	"github.com/camreq/hdltable/hdlutils"
	"github.com/stretchr/testify/require"
)

type statsDocument struct {
	Total struct {
		Capacity      int
		Active        int
		Free          int
		Sessions      int
		Devices       int
		Links         int
		HighWaterMark int
	}
	Lifetime struct {
		Created       int
		Destroyed     int
		Swept         int
		TableFull     int
		InvalidHandle int
	}
	Handles []map[string]any
}

func parseStats(t *testing.T, table *Table, detailed bool) statsDocument {
	var doc statsDocument
	require.NoError(t, json.Unmarshal([]byte(table.BuildStatsString(detailed)), &doc))
	return doc
}

func TestAddStatistics(t *testing.T) {
	table := readyTable(t, CreateOptions{MaxHandles: 16})

	session, err := table.CreateSession(nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = table.CreateDevice(DeviceCreateInfo{SessionHandle: session})
		require.NoError(t, err)
	}
	_, err = table.CreateLink(DeviceCreateInfo{SessionHandle: session})
	require.NoError(t, err)

	var stats hdlutils.Statistics
	stats.Clear()
	table.AddStatistics(&stats)
	table.AddStatistics(&stats)

	require.Equal(t, hdlutils.Statistics{
		Capacity:     32,
		ActiveCount:  10,
		SessionCount: 2,
		DeviceCount:  6,
		LinkCount:    2,
	}, stats)
	require.Equal(t, 22, stats.FreeCount())
}

func TestBuildStatsString(t *testing.T) {
	table := readyTable(t, CreateOptions{MaxHandles: 8})

	session, err := table.CreateSession(nil)
	require.NoError(t, err)
	device, err := table.CreateDevice(DeviceCreateInfo{
		SessionHandle:  session,
		DomainTag:      0xAB,
		V4L2SubDevFlag: 1,
		Ops:            &fakeOps{},
		Priv:           &fakePriv{},
	})
	require.NoError(t, err)
	_, err = table.CreateLink(DeviceCreateInfo{SessionHandle: session})
	require.NoError(t, err)
	require.NoError(t, table.DestroyDevice(device))

	_, err = table.Ops(device)
	requireInvalid(t, err)

	doc := parseStats(t, table, false)
	require.Equal(t, 8, doc.Total.Capacity)
	require.Equal(t, 2, doc.Total.Active)
	require.Equal(t, 6, doc.Total.Free)
	require.Equal(t, 1, doc.Total.Sessions)
	require.Equal(t, 0, doc.Total.Devices)
	require.Equal(t, 1, doc.Total.Links)
	require.Equal(t, 3, doc.Total.HighWaterMark)
	require.Equal(t, 3, doc.Lifetime.Created)
	require.Equal(t, 1, doc.Lifetime.Destroyed)
	require.Equal(t, 1, doc.Lifetime.InvalidHandle)
	require.Empty(t, doc.Handles)

	doc = parseStats(t, table, true)
	require.Len(t, doc.Handles, 2)
	require.Equal(t, session.String(), doc.Handles[0]["Handle"])
	require.Equal(t, "Session", doc.Handles[0]["Type"])
	require.Equal(t, "Link", doc.Handles[1]["Type"])
	require.Equal(t, session.String(), doc.Handles[1]["Session"])
	require.Equal(t, "0x0", doc.Handles[1]["DomainTag"])
}

func TestBuildStatsStringDetailedDevice(t *testing.T) {
	table := readyTable(t, CreateOptions{MaxHandles: 4})

	session, err := table.CreateSession(nil)
	require.NoError(t, err)
	_, err = table.CreateDevice(DeviceCreateInfo{
		SessionHandle:   session,
		DomainTag:       0xAB,
		MediaEntityFlag: 1,
		Ops:             &fakeOps{},
		Priv:            &fakePriv{},
	})
	require.NoError(t, err)

	doc := parseStats(t, table, true)
	require.Len(t, doc.Handles, 2)

	device := doc.Handles[1]
	require.Equal(t, "Device", device["Type"])
	require.Equal(t, "0xab", device["DomainTag"])
	require.Equal(t, false, device["V4L2SubDev"])
	require.Equal(t, true, device["MediaEntity"])
	require.Equal(t, "*hdltable.fakeOps", device["Ops"])
	require.Equal(t, "*hdltable.fakePriv", device["Priv"])
	require.Equal(t, float64(1), device["Index"])
}
