package pool

import (
	"context"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUptime(t *testing.T) {
	testCases := []struct {
		description string
		duration    time.Duration
		expect      string
	}{
		{description: "seconds only", duration: 42 * time.Second, expect: "42s"},
		{description: "zero", duration: 0, expect: "0s"},
		{description: "negative clamps", duration: -time.Second, expect: "0s"},
		{description: "minutes", duration: 65 * time.Second, expect: "1m 5s"},
		{description: "whole minute", duration: time.Minute, expect: "1m 0s"},
		{description: "hours", duration: time.Hour + 2*time.Minute + 3*time.Second, expect: "1h 2m 3s"},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, formatUptime(testCase.duration), testCase.description)
	}
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, &fakeSpawner{}, WithMax(5))

	session, err := p.Get(ctx, Options{AppRoot: "/apps/a"})
	require.NoError(t, err)
	defer session.Close()

	out := p.Inspect()
	assert.Contains(t, out, "max      = 5")
	assert.Contains(t, out, "count    = 1")
	assert.Contains(t, out, "active   = 1")
	assert.Contains(t, out, "inactive = 0")
	assert.Contains(t, out, "Waiting on global queue: 0")
	assert.Contains(t, out, "/apps/a:")
	assert.Contains(t, out, "Sessions: 1")
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, &fakeSpawner{})

	session, err := p.Get(ctx, Options{AppRoot: "/apps/b"})
	require.NoError(t, err)
	free, err := p.Get(ctx, Options{AppRoot: "/apps/a"})
	require.NoError(t, err)
	require.NoError(t, free.Close())

	snapshot := p.Snapshot()
	assert.Equal(t, 2, snapshot.Count)
	assert.Equal(t, 1, snapshot.Active)
	assert.Equal(t, 1, snapshot.Inactive)
	require.Len(t, snapshot.Groups, 2)
	// groups come back sorted by name
	assert.Equal(t, "/apps/a", snapshot.Groups[0].Name)
	assert.Equal(t, "/apps/b", snapshot.Groups[1].Name)
	require.Len(t, snapshot.Groups[1].Processes, 1)
	assert.Equal(t, 1, snapshot.Groups[1].Processes[0].Sessions)

	require.NoError(t, session.Close())
}

func TestToXML(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, &fakeSpawner{})

	session, err := p.Get(ctx, Options{AppRoot: "/apps/a"})
	require.NoError(t, err)
	defer session.Close()

	out, err := p.ToXML(true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="iso8859-1" ?>`))
	assert.Contains(t, out, "<includes_sensitive_information")
	assert.Contains(t, out, "<name>/apps/a</name>")
	assert.Contains(t, out, "<sessions>1</sessions>")
	assert.Contains(t, out, "<processed>0</processed>")
	assert.Contains(t, out, "<uptime>")

	var parsed struct {
		XMLName xml.Name `xml:"info"`
		Groups  []struct {
			Name      string `xml:"name"`
			Processes []struct {
				PID int `xml:"pid"`
			} `xml:"processes>process"`
		} `xml:"groups>group"`
	}
	require.NoError(t, xml.Unmarshal([]byte(out[strings.Index(out, "\n")+1:]), &parsed))
	require.Len(t, parsed.Groups, 1)
	require.Len(t, parsed.Groups[0].Processes, 1)
	assert.Equal(t, 1, parsed.Groups[0].Processes[0].PID)

	redacted, err := p.ToXML(false)
	require.NoError(t, err)
	assert.NotContains(t, redacted, "includes_sensitive_information")
}
