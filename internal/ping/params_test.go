package ping

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
)

func TestParamsGolden(t *testing.T) {
	points := []rlz.AccessPoint{rlz.IETBSearchBox, rlz.IEDefaultSearch, rlz.IEHomePage, rlz.NoAccessPoint}

	tests := []struct {
		name  string
		rlzs  map[rlz.AccessPoint]string
		event []rlz.EventRecord
		dcc   string
	}{
		{name: "params_empty"},
		{
			name: "params_rlzs_only",
			rlzs: map[rlz.AccessPoint]string{
				rlz.IETBSearchBox:   "1T4_____en__252",
				rlz.IEDefaultSearch: "1I7_____en__252",
			},
		},
		{
			name: "params_events_and_dcc",
			rlzs: map[rlz.AccessPoint]string{
				rlz.IETBSearchBox: "1T4_____en__252",
			},
			event: []rlz.EventRecord{
				{Point: rlz.IEHomePage, Event: rlz.SetToGoogle},
				{Point: rlz.IETBSearchBox, Event: rlz.Install},
			},
			dcc: "dcc_value",
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			for p, v := range tt.rlzs {
				require.NoError(t, e.SetRlz(p, v))
			}
			for _, ev := range tt.event {
				require.NoError(t, e.RecordEvent(rlz.IEToolbar, ev.Point, ev.Event))
			}

			params, err := ParamsFrom(e, rlz.IEToolbar, points, tt.dcc, rlz.MaxCgiLength)
			require.NoError(t, err)
			g.Assert(t, tt.name, []byte(params))
		})
	}
}

func TestParamsStopsAtNoAccessPoint(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.SetRlz(rlz.IETBSearchBox, "A"))
	require.NoError(t, e.SetRlz(rlz.IEHomePage, "B"))

	params, err := ParamsFrom(e, rlz.IEToolbar, []rlz.AccessPoint{rlz.IETBSearchBox, rlz.NoAccessPoint, rlz.IEHomePage}, "", rlz.MaxCgiLength)
	require.NoError(t, err)
	assert.Equal(t, "version=2&rlz=T4=A", params)
}

func TestParamsSkipsUnsupportedPoints(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.SetRlz(rlz.ChromeOmnibox, "A"))

	params, err := ParamsFrom(e, rlz.Chrome, []rlz.AccessPoint{rlz.MobileIdleScreenSymbian, rlz.ChromeOmnibox}, "", rlz.MaxCgiLength)
	require.NoError(t, err)
	assert.Equal(t, "version=2&rlz=C1=A", params)
}

func TestParamsTooLong(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.SetRlz(rlz.ChromeOmnibox, "ABCDEFGHIJ"))
	points := []rlz.AccessPoint{rlz.ChromeOmnibox}

	want := "version=2&rlz=C1=ABCDEFGHIJ"
	params, err := ParamsFrom(e, rlz.Chrome, points, "", len(want))
	require.NoError(t, err)
	assert.Equal(t, want, params)

	_, err = ParamsFrom(e, rlz.Chrome, points, "", len(want)-1)
	assert.ErrorIs(t, err, ErrParamsTooLong)

	_, err = ParamsFrom(e, rlz.Chrome, points, "", 0)
	assert.ErrorIs(t, err, rlz.ErrInvalidInput)
}
