package gotime_test

import (
	"errors"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/tz-validation/oracle"
	"github.com/lattice-substrate/tz-validation/oracle/gotime"
)

func TestOpenUnknownZone(t *testing.T) {
	p := gotime.NewProvider()
	for _, name := range []string{"", "Local", "Mars/Olympus_Mons"} {
		_, err := p.Open(name)
		assert.True(t, errors.Is(err, oracle.ErrUnknownZone), "zone %q: %v", name, err)
	}
}

func TestOffsetAtNewYork(t *testing.T) {
	o, err := gotime.NewProvider().Open("America/New_York")
	require.NoError(t, err)

	// 2024-03-10T07:00:00Z is the spring-forward instant.
	before, err := o.OffsetAt(1710054000 - 1)
	require.NoError(t, err)
	assert.Equal(t, oracle.Offset{Total: -18000, Abbrev: "EST"}, before)

	after, err := o.OffsetAt(1710054000)
	require.NoError(t, err)
	assert.Equal(t, oracle.Offset{Total: -14400, Abbrev: "EDT"}, after)
}

func TestInfo(t *testing.T) {
	info := gotime.NewProvider().Info()
	assert.Equal(t, gotime.SourceName, info.Source)
	assert.True(t, info.HasValidAbbrev)
	assert.False(t, info.HasValidDst)
	assert.Equal(t, 1, info.OffsetGranularity)
}

func TestGenericLocalizeOverlap(t *testing.T) {
	o, err := gotime.NewProvider().Open("America/New_York")
	require.NoError(t, err)

	// 2024-11-03 01:30 occurs twice, at 05:30Z and 06:30Z.
	c := oracle.Civil{Year: 2024, Month: 11, Day: 3, Hour: 1, Minute: 30}
	first, err := oracle.Localize(o, c, 0)
	require.NoError(t, err)
	second, err := oracle.Localize(o, c, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1730613600-1800), first)
	assert.Equal(t, int64(1730613600+1800), second)
}
