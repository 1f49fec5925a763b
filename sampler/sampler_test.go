package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/tz-validation/oracle"
	"github.com/lattice-substrate/tz-validation/oracle/table"
	"github.com/lattice-substrate/tz-validation/tzverr"
	"github.com/lattice-substrate/tz-validation/valdata"
)

const (
	springForward2001 = 986108400  // 2001-04-01T07:00:00Z
	fallBack2001      = 1004248800 // 2001-10-28T06:00:00Z
	unix2050          = 2524608000
)

var (
	est = oracle.Offset{Total: -18000, Abbrev: "EST"}
	edt = oracle.Offset{Total: -14400, DST: 3600, Abbrev: "EDT"}
)

func newYork(t *testing.T) *table.Zone {
	t.Helper()
	z, err := table.New("America/New_York", est, []table.Transition{
		{At: springForward2001, Offset: edt},
		{At: fallBack2001, Offset: est},
	})
	require.NoError(t, err)
	return z
}

// midnightZone changes offset at local midnight on 2 March (a gap) and at
// 01:00 local on 2 October (an overlap covering midnight).
func midnightZone(t *testing.T) *table.Zone {
	t.Helper()
	std := oracle.Offset{Total: -10800, Abbrev: "-03"}
	summer := oracle.Offset{Total: -7200, DST: 3600, Abbrev: "-02"}
	z, err := table.New("America/Test_Midnight", std, []table.Transition{
		{At: 983502000, Offset: summer}, // 2001-03-02T03:00:00Z
		{At: 1001991600, Offset: std},   // 2001-10-02T03:00:00Z
	})
	require.NoError(t, err)
	return z
}

func newSampler(t *testing.T, mutate func(*Config)) *Sampler {
	t.Helper()
	cfg := Config{
		StartYear:    2001,
		UntilYear:    2002,
		Epoch:        valdata.NewEpoch(valdata.DefaultEpochYear),
		DetectDST:    true,
		CheckOverlap: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestTransitionItems(t *testing.T) {
	s := newSampler(t, nil)
	items, err := s.Transitions(newYork(t))
	require.NoError(t, err)
	require.Len(t, items, 4)

	types := []valdata.ItemType{items[0].Type, items[1].Type, items[2].Type, items[3].Type}
	assert.Equal(t, []valdata.ItemType{valdata.TypeBefore, valdata.TypeAfter, valdata.TypeBefore, valdata.TypeAfter}, types)

	a, b := items[0], items[1]
	assert.Equal(t, int64(springForward2001-1-unix2050), a.Epoch)
	assert.Equal(t, int64(springForward2001-unix2050), b.Epoch)
	assert.Equal(t, -18000, a.TotalOffset)
	assert.Equal(t, 0, a.DstOffset)
	assert.Equal(t, []int{2001, 4, 1, 1, 59, 59}, []int{a.Year, a.Month, a.Day, a.Hour, a.Minute, a.Second})
	assert.Equal(t, "EST", a.AbbrevString())
	assert.Equal(t, -14400, b.TotalOffset)
	assert.Equal(t, 3600, b.DstOffset)
	assert.Equal(t, []int{2001, 4, 1, 3, 0, 0}, []int{b.Year, b.Month, b.Day, b.Hour, b.Minute, b.Second})
	assert.Equal(t, "EDT", b.AbbrevString())
}

func TestSilentTransitionItems(t *testing.T) {
	before := oracle.Offset{Total: 3600, Abbrev: "CET"}
	after := oracle.Offset{Total: 3600, DST: 3600, Abbrev: "CET"}
	z, err := table.New("Test/Silent", before, []table.Transition{{At: 1000000000, Offset: after}})
	require.NoError(t, err)

	items, err := newSampler(t, nil).Transitions(z)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, valdata.TypeSilentBefore, items[0].Type)
	assert.Equal(t, valdata.TypeSilentAfter, items[1].Type)
}

func TestSamplesMonthly(t *testing.T) {
	items, err := newSampler(t, nil).Samples(newYork(t))
	require.NoError(t, err)
	require.Len(t, items, 12)

	for i, it := range items {
		assert.Equal(t, valdata.TypeSample, it.Type)
		assert.Equal(t, i+1, it.Month)
		assert.Equal(t, 2, it.Day)
		assert.Zero(t, it.Hour)
		if i > 0 {
			assert.Greater(t, it.Epoch, items[i-1].Epoch)
		}
	}
	// 2001-01-02T00:00 EST is 05:00Z.
	assert.Equal(t, int64(978411600-unix2050), items[0].Epoch)
	assert.Equal(t, "EDT", items[6].AbbrevString())
}

func TestSamplesShiftPastGap(t *testing.T) {
	items, err := newSampler(t, nil).Samples(midnightZone(t))
	require.NoError(t, err)
	require.Len(t, items, 12)

	march := items[2]
	assert.Equal(t, valdata.TypeShifted, march.Type)
	assert.Equal(t, 3, march.Day)
	assert.Equal(t, int64(983584800-unix2050), march.Epoch) // 2001-03-03T02:00:00Z
}

func TestSamplesOverlapCheck(t *testing.T) {
	checked, err := newSampler(t, nil).Samples(midnightZone(t))
	require.NoError(t, err)
	october := checked[9]
	assert.Equal(t, valdata.TypeShifted, october.Type)
	assert.Equal(t, 3, october.Day)
	assert.Equal(t, int64(1002078000-unix2050), october.Epoch) // 2001-10-03T03:00:00Z

	unchecked, err := newSampler(t, func(c *Config) { c.CheckOverlap = false }).Samples(midnightZone(t))
	require.NoError(t, err)
	october = unchecked[9]
	assert.Equal(t, valdata.TypeSample, october.Type)
	assert.Equal(t, 2, october.Day)
	assert.Equal(t, int64(1001988000-unix2050), october.Epoch) // first occurrence, 02:00Z
}

func TestSamplesYearEnd(t *testing.T) {
	items, err := newSampler(t, func(c *Config) { c.YearEnd = true }).Samples(newYork(t))
	require.NoError(t, err)
	require.Len(t, items, 13)

	last := items[12]
	assert.Equal(t, valdata.TypeYearEnd, last.Type)
	assert.Equal(t, []int{2001, 12, 31, 23}, []int{last.Year, last.Month, last.Day, last.Hour})
	assert.Equal(t, int64(1009857600-unix2050), last.Epoch)
}

func TestEntryDropsShadowedSamples(t *testing.T) {
	// +0 to +1h at 2001-05-01T23:00:00Z, which is 00:00 local on 2 May.
	z, err := table.New("Test/Shadow", oracle.Offset{Abbrev: "GMT"}, []table.Transition{
		{At: 988758000, Offset: oracle.Offset{Total: 3600, DST: 3600, Abbrev: "BST"}},
	})
	require.NoError(t, err)

	entry, err := newSampler(t, nil).Entry(z)
	require.NoError(t, err)
	require.Len(t, entry.Transitions, 2)
	assert.Len(t, entry.Samples, 11)
	for _, it := range entry.Samples {
		assert.NotEqual(t, 5, it.Month)
	}
	assert.Equal(t, int64(988758000-unix2050), entry.Transitions[1].Epoch)
	assert.NoError(t, valdata.ValidateItems(entry.Samples))
	assert.NoError(t, valdata.ValidateItems(entry.Transitions))
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{StartYear: 2001, UntilYear: 2002})
	require.Error(t, err)
	assert.Equal(t, tzverr.InvalidConfig, tzverr.ClassOf(err))

	_, err = New(Config{StartYear: 2002, UntilYear: 2001, Epoch: valdata.NewEpoch(2050)})
	require.Error(t, err)
	assert.Equal(t, tzverr.InvalidConfig, tzverr.ClassOf(err))
}

func TestFingerprint(t *testing.T) {
	a := newSampler(t, nil).Config()
	b := newSampler(t, func(c *Config) { c.YearEnd = true }).Config()
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), newSampler(t, nil).Config().Fingerprint())
	assert.Contains(t, a.Fingerprint(), "i22")
}
