package spawn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testWorker struct {
	pid     int
	appRoot string
}

func (w *testWorker) PID() int        { return w.pid }
func (w *testWorker) AppRoot() string { return w.appRoot }
func (w *testWorker) Connect(onClose func()) (*Session, error) {
	return NewSession(w, onClose), nil
}

func TestSessionCloseRunsHookOnce(t *testing.T) {
	closed := 0
	session := NewSession(&testWorker{pid: 42, appRoot: "/apps/demo"}, func() { closed++ })

	assert.NotEmpty(t, session.ID())
	assert.Equal(t, 42, session.PID())
	assert.Equal(t, "/apps/demo", session.Worker().AppRoot())

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	assert.Equal(t, 1, closed)
}

func TestSessionRegion(t *testing.T) {
	session := NewSession(&testWorker{pid: 1}, nil)

	region := session.Region()
	require.NotNil(t, region)
	assert.Same(t, region, session.Region())

	buf := region.AllocUnaligned(16)
	assert.Len(t, buf, 16)

	require.NoError(t, session.Close())
	assert.Nil(t, session.Region())
}

func TestParsePID(t *testing.T) {
	testCases := []struct {
		description string
		output      string
		expect      int
		hasError    bool
	}{
		{description: "bare pid", output: "1234\n", expect: 1234},
		{description: "pid after banner", output: "worker started\n5678\n", expect: 5678},
		{description: "no pid", output: "started ok", hasError: true},
		{description: "empty", output: "", hasError: true},
	}
	for _, testCase := range testCases {
		pid, err := parsePID(testCase.output)
		if testCase.hasError {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, pid, testCase.description)
	}
}
