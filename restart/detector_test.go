package restart

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/apool/internal/clock"
)

func TestDir(t *testing.T) {
	testCases := []struct {
		description string
		appRoot     string
		override    string
		expect      string
	}{
		{
			description: "default",
			appRoot:     "/apps/demo",
			override:    "",
			expect:      "/apps/demo/tmp",
		},
		{
			description: "absolute override",
			appRoot:     "/apps/demo",
			override:    "/var/run/demo",
			expect:      "/var/run/demo",
		},
		{
			description: "relative override",
			appRoot:     "/apps/demo",
			override:    "var/tmp",
			expect:      "/apps/demo/var/tmp",
		},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, Dir(testCase.appRoot, testCase.override), testCase.description)
	}
}

func TestCheckAlwaysRestart(t *testing.T) {
	ctx := context.Background()
	appRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(appRoot, "tmp"), 0o755))
	detector := New(nil)

	assert.False(t, detector.Check(ctx, appRoot, "", 0))

	marker := filepath.Join(appRoot, "tmp", AlwaysRestartFile)
	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	assert.True(t, detector.Check(ctx, appRoot, "", 0))
	// stays on for as long as the marker exists
	assert.True(t, detector.Check(ctx, appRoot, "", 0))

	require.NoError(t, os.Remove(marker))
	assert.False(t, detector.Check(ctx, appRoot, "", 0))
}

func TestCheckTriggerReportsOnce(t *testing.T) {
	ctx := context.Background()
	appRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(appRoot, "tmp"), 0o755))
	detector := New(nil)

	// first observation only records state
	assert.False(t, detector.Check(ctx, appRoot, "", 0))

	trigger := filepath.Join(appRoot, "tmp", TriggerFile)
	require.NoError(t, os.WriteFile(trigger, nil, 0o644))
	assert.True(t, detector.Check(ctx, appRoot, "", 0))
	assert.False(t, detector.Check(ctx, appRoot, "", 0))

	// a touch with a newer timestamp triggers again, once
	newer := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(trigger, newer, newer))
	assert.True(t, detector.Check(ctx, appRoot, "", 0))
	assert.False(t, detector.Check(ctx, appRoot, "", 0))
}

func TestCheckThrottle(t *testing.T) {
	ctx := context.Background()
	appRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(appRoot, "tmp"), 0o755))
	detector := New(nil)

	now := time.Now()
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	const throttle = 10 * time.Second
	assert.False(t, detector.Check(ctx, appRoot, "", throttle))

	marker := filepath.Join(appRoot, "tmp", AlwaysRestartFile)
	require.NoError(t, os.WriteFile(marker, nil, 0o644))

	// within the interval the cached answer wins
	assert.False(t, detector.Check(ctx, appRoot, "", throttle))

	now = now.Add(throttle + time.Second)
	assert.True(t, detector.Check(ctx, appRoot, "", throttle))
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	appRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(appRoot, "tmp"), 0o755))
	detector := New(nil)

	now := time.Now()
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	const throttle = time.Hour
	assert.False(t, detector.Check(ctx, appRoot, "", throttle))

	marker := filepath.Join(appRoot, "tmp", AlwaysRestartFile)
	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	assert.False(t, detector.Check(ctx, appRoot, "", throttle))

	detector.Forget(appRoot, "")
	assert.True(t, detector.Check(ctx, appRoot, "", throttle))
}
