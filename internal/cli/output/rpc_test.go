package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/oncrpc/pkg/portmap"
)

func TestRegistrations(t *testing.T) {
	regs := NewRegistrations([]portmap.RPCB{
		{Program: 100000, Version: 4, NetID: "tcp", Addr: "0.0.0.0.0.111", Owner: "superuser"},
		{Program: 0x20000099, Version: 1, NetID: "tcp", Addr: "bogus", Owner: "rpclib"},
	})
	require.Len(t, regs, 2)

	assert.Equal(t, uint16(111), regs[0].Port)
	assert.Equal(t, "portmapper", regs[0].Service)
	assert.Equal(t, uint16(0), regs[1].Port)
	assert.Equal(t, "-", regs[1].Service)

	rows := regs.Rows()
	assert.Equal(t, []string{"100000", "4", "tcp", "111", "0.0.0.0.0.111", "superuser", "portmapper"}, rows[0])
	assert.Equal(t, "-", rows[1][3])

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, regs))
	assert.Contains(t, buf.String(), "PROGRAM")
	assert.Contains(t, buf.String(), "536871065")
}

func TestNewBenchReport(t *testing.T) {
	t.Run("Percentiles", func(t *testing.T) {
		latencies := make([]time.Duration, 0, 100)
		for i := 100; i >= 1; i-- {
			latencies = append(latencies, time.Duration(i)*time.Millisecond)
		}

		rep := NewBenchReport(4, latencies, 2, 2*time.Second)
		assert.Equal(t, 4, rep.Sessions)
		assert.Equal(t, 102, rep.Calls)
		assert.Equal(t, 2, rep.Errors)
		assert.Equal(t, time.Millisecond, rep.Min)
		assert.Equal(t, 50*time.Millisecond, rep.P50)
		assert.Equal(t, 99*time.Millisecond, rep.P99)
		assert.Equal(t, 100*time.Millisecond, rep.Max)
		assert.InDelta(t, 50.0, rep.CallsPerSec, 0.001)
	})

	t.Run("AllFailed", func(t *testing.T) {
		rep := NewBenchReport(1, nil, 3, time.Second)
		assert.Equal(t, 3, rep.Calls)
		assert.Zero(t, rep.P50)
		assert.Zero(t, rep.CallsPerSec)
	})

	t.Run("SingleSample", func(t *testing.T) {
		rep := NewBenchReport(1, []time.Duration{time.Microsecond}, 0, time.Millisecond)
		assert.Equal(t, time.Microsecond, rep.P99)
		assert.Len(t, rep.Rows()[0], len(rep.Headers()))
	})
}

func TestProgramName(t *testing.T) {
	assert.Equal(t, "nfs", ProgramName(100003))
	assert.Equal(t, "-", ProgramName(42))
}
