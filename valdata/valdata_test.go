package valdata

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/tz-validation/tzverr"
)

func item(epoch int64, year int, typ ItemType) TestItem {
	return TestItem{
		Epoch:       epoch,
		TotalOffset: -18000,
		Year:        year,
		Month:       3,
		Day:         2,
		Abbrev:      Abbrev("EST"),
		Type:        typ,
	}
}

func sampleDoc() *ValidationData {
	return &ValidationData{
		StartYear:      2000,
		UntilYear:      2010,
		EpochYear:      2050,
		Scope:          ScopeComplete,
		Source:         "test",
		Version:        "1",
		HasValidAbbrev: true,
		HasValidDst:    true,
		TestData: map[string]TestEntry{
			"America/New_York": {
				Transitions: []TestItem{item(100, 2001, TypeBefore), item(101, 2001, TypeAfter)},
				Samples:     []TestItem{item(50, 2000, TypeSample), item(200, 2005, TypeSample)},
			},
			"UTC": {},
		},
	}
}

func TestEpochRoundTrip(t *testing.T) {
	e := NewEpoch(2050)
	assert.Equal(t, 2050, e.Year())
	assert.Equal(t, int64(0), e.FromUnix(2524608000))
	assert.Equal(t, int64(2524608000), e.ToUnix(0))
	assert.Equal(t, int64(-946684800+2524608000), e.ToUnix(e.FromUnix(-946684800+2524608000)))

	unix := NewEpoch(1970)
	assert.Equal(t, int64(42), unix.FromUnix(42))
}

func TestItemTypePredicates(t *testing.T) {
	cases := []struct {
		typ         ItemType
		silent      bool
		transition  bool
		substantive bool
	}{
		{TypeBefore, false, true, true},
		{TypeAfter, false, true, true},
		{TypeSilentBefore, true, true, false},
		{TypeSilentAfter, true, true, false},
		{TypeSample, false, false, true},
		{TypeShifted, false, false, true},
		{TypeYearEnd, false, false, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			assert.True(t, tc.typ.Valid())
			assert.Equal(t, tc.silent, tc.typ.IsSilent())
			assert.Equal(t, tc.transition, tc.typ.IsTransition())
			assert.Equal(t, tc.substantive, tc.typ.IsSubstantive())
		})
	}
	assert.False(t, ItemType("Z").Valid())
}

func TestValidateRejectsInvertedYears(t *testing.T) {
	d := sampleDoc()
	d.StartYear, d.UntilYear = 2010, 2000
	err := d.Validate()
	require.Error(t, err)
	assert.Equal(t, tzverr.InvalidDocument, tzverr.ClassOf(err))
}

func TestValidateRejectsUnorderedItems(t *testing.T) {
	d := sampleDoc()
	d.TestData["UTC"] = TestEntry{Samples: []TestItem{item(10, 2000, TypeSample), item(10, 2000, TypeSample)}}
	err := d.Validate()
	require.Error(t, err)

	var te *tzverr.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "UTC", te.Zone)
	assert.Contains(t, err.Error(), "samples")
}

func TestValidateRejectsUnknownType(t *testing.T) {
	err := ValidateItems([]TestItem{item(1, 2000, "Q")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown type "Q"`)
}

func TestEncodeIsCanonicalAndStable(t *testing.T) {
	d := sampleDoc()
	first, err := Encode(d)
	require.NoError(t, err)
	second, err := Encode(d)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, bytes.HasSuffix(first, []byte("}\n")))
	assert.Equal(t, 1, bytes.Count(first, []byte("\n")))
	// RFC 8785 orders keys by UTF-16 code units, so "M" precedes "abbrev".
	assert.True(t, bytes.HasPrefix(first, []byte(`{"epoch_year":2050,`)))
	assert.Contains(t, string(first), `{"M":3,"abbrev":"EST","d":2,"dst_offset":0,"epoch":50,`)
}

func TestDecodeRoundTrip(t *testing.T) {
	d := sampleDoc()
	data, err := Encode(d)
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDecodeNullAbbrev(t *testing.T) {
	in := `{"start_year":2000,"until_year":2001,"epoch_year":2050,"source":"x","version":"1",` +
		`"has_valid_abbrev":false,"has_valid_dst":false,"test_data":{"UTC":{"transitions":[],` +
		`"samples":[{"epoch":1,"total_offset":0,"dst_offset":0,"y":2000,"M":1,"d":2,"h":0,"m":0,"s":0,"abbrev":null,"type":"S"}]}}}`
	got, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	s := got.TestData["UTC"].Samples[0]
	assert.Nil(t, s.Abbrev)
	assert.Equal(t, "", s.AbbrevString())
	assert.Equal(t, 1, s.Month)
	assert.Equal(t, 0, s.Minute)
	assert.True(t, got.IsComplete())
	assert.Equal(t, 1, got.Granularity())
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	in := `{"start_year":2000,"until_year":2001,"epoch_year":2050,"bogus":1,"test_data":{}}`
	_, err := Decode(strings.NewReader(in))
	require.Error(t, err)
	assert.Equal(t, tzverr.InvalidDocument, tzverr.ClassOf(err))
}

func TestDecodeRejectsTrailingDocument(t *testing.T) {
	in := `{"start_year":2000,"until_year":2001,"epoch_year":2050,"test_data":{}} {}`
	_, err := Decode(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing")
}

func TestWriteFileAndLoad(t *testing.T) {
	dir := t.TempDir()
	d := sampleDoc()
	for _, name := range []string{"data.json", "data.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, d))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, d, got)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			for _, e := range entries {
				assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
			}
		})
	}

	raw, err := os.ReadFile(filepath.Join(dir, "data.json.zst"))
	require.NoError(t, err)
	plain, err := os.ReadFile(filepath.Join(dir, "data.json"))
	require.NoError(t, err)
	assert.NotEqual(t, plain, raw)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, tzverr.InvalidDocument, tzverr.ClassOf(err))
}

func TestDigestTracksContent(t *testing.T) {
	d := sampleDoc()
	a, err := Digest(d)
	require.NoError(t, err)
	assert.Len(t, a, 64)

	d.Version = "2"
	b, err := Digest(d)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDropShadowed(t *testing.T) {
	transitions := []TestItem{item(100, 2001, TypeBefore), item(101, 2001, TypeAfter)}
	samples := []TestItem{item(50, 2000, TypeSample), item(101, 2001, TypeSample), item(300, 2002, TypeYearEnd)}
	got := DropShadowed(transitions, samples)
	require.Len(t, got, 2)
	assert.Equal(t, int64(50), got[0].Epoch)
	assert.Equal(t, int64(300), got[1].Epoch)
}

func TestMergePrecedence(t *testing.T) {
	samples := []TestItem{item(101, 2001, TypeSample), item(50, 2000, TypeSample)}
	transitions := []TestItem{item(100, 2001, TypeBefore), item(101, 2001, TypeAfter)}
	got := Merge(samples, transitions)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{50, 100, 101}, []int64{got[0].Epoch, got[1].Epoch, got[2].Epoch})
	assert.Equal(t, TypeAfter, got[2].Type)
}

func TestSubsetFiltersYearsAndZones(t *testing.T) {
	d := sampleDoc()
	sub, err := Subset(d, 2001, 2005, []string{"America/New_York"})
	require.NoError(t, err)
	assert.Equal(t, ScopePartial, sub.Scope)
	assert.False(t, sub.IsComplete())
	assert.Equal(t, []string{"America/New_York"}, sub.ZoneNames())

	entry := sub.TestData["America/New_York"]
	assert.Len(t, entry.Transitions, 2)
	assert.Empty(t, entry.Samples)

	// the source document is untouched
	assert.Equal(t, ScopeComplete, d.Scope)
	assert.Len(t, d.TestData["America/New_York"].Samples, 2)
}

func TestSubsetRejectsBadRanges(t *testing.T) {
	d := sampleDoc()
	_, err := Subset(d, 1990, 2005, nil)
	require.Error(t, err)
	assert.Equal(t, tzverr.InvalidConfig, tzverr.ClassOf(err))

	_, err = Subset(d, 2005, 2005, nil)
	require.Error(t, err)

	_, err = Subset(d, 2001, 2005, []string{"Nowhere/City"})
	require.Error(t, err)
	assert.Equal(t, tzverr.UnknownZone, tzverr.ClassOf(err))
}

func TestFlatten(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Flatten(&buf, sampleDoc()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "HEADER\nstart_year 2000\n"))
	assert.Contains(t, out, "ZONE America/New_York\nTRANSITIONS 2\n")
	assert.Contains(t, out, "ZONE UTC\nTRANSITIONS 0\nSAMPLES 0\n")
	assert.Less(t, strings.Index(out, "ZONE America/New_York"), strings.Index(out, "ZONE UTC"))
	assert.Contains(t, out, "     0         100 -18000      0 2001  3  2  0  0  0     EST    A\n")
}
