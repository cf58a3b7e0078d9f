package state

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/rlztrack/internal/access"
	"github.com/blackwell-systems/rlztrack/internal/lock"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/store"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts = append([]Option{WithAccess(access.AllowAll)}, opts...)
	e, err := New(st, lock.NewMemory(time.Second), opts...)
	require.NoError(t, err)
	return e, st
}

func TestNewRejectsNil(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	_, err = New(nil, lock.NewMemory(0))
	assert.Error(t, err)
	_, err = New(st, nil)
	assert.Error(t, err)
}

func TestRecordAndListEvents(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RecordEvent(rlz.IEToolbar, rlz.IETBSearchBox, rlz.Install))
	require.NoError(t, e.RecordEvent(rlz.IEToolbar, rlz.IEHomePage, rlz.SetToGoogle))
	// Recording twice keeps one entry.
	require.NoError(t, e.RecordEvent(rlz.IEToolbar, rlz.IETBSearchBox, rlz.Install))

	events, err := e.Events(rlz.IEToolbar)
	require.NoError(t, err)
	assert.ElementsMatch(t, []rlz.EventRecord{
		{Point: rlz.IETBSearchBox, Event: rlz.Install},
		{Point: rlz.IEHomePage, Event: rlz.SetToGoogle},
	}, events)

	cgi, err := e.EventsAsCgi(rlz.IEToolbar)
	require.NoError(t, err)
	assert.Equal(t, "events=T4I,W1S", cgi)
}

func TestEventsArePerProduct(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RecordEvent(rlz.Desktop, rlz.GDDeskband, rlz.Install))

	_, err := e.EventsAsCgi(rlz.Chrome)
	assert.ErrorIs(t, err, ErrNoEvents)

	events, err := e.Events(rlz.Desktop)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRecordEventValidation(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		name    string
		product rlz.Product
		point   rlz.AccessPoint
		event   rlz.Event
	}{
		{"no access point", rlz.Chrome, rlz.NoAccessPoint, rlz.Install},
		{"invalid event", rlz.Chrome, rlz.ChromeOmnibox, rlz.InvalidEvent},
		{"bad product", rlz.Product(0), rlz.ChromeOmnibox, rlz.Install},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.RecordEvent(tt.product, tt.point, tt.event)
			assert.ErrorIs(t, err, rlz.ErrInvalidInput)
		})
	}
}

func TestStatefulEventSuppressesRecord(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RecordStatefulEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install))
	require.NoError(t, e.RecordEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install))

	_, err := e.EventsAsCgi(rlz.Chrome)
	assert.ErrorIs(t, err, ErrNoEvents)

	stateful, err := e.StatefulEvents(rlz.Chrome)
	require.NoError(t, err)
	assert.Equal(t, []rlz.EventRecord{{Point: rlz.ChromeOmnibox, Event: rlz.Install}}, stateful)
}

func TestClearEvent(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RecordEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install))
	require.NoError(t, e.RecordEvent(rlz.Chrome, rlz.ChromeHomePage, rlz.Install))
	require.NoError(t, e.ClearEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install))
	// Clearing an absent event succeeds.
	require.NoError(t, e.ClearEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.FirstSearch))

	cgi, err := e.EventsAsCgi(rlz.Chrome)
	require.NoError(t, err)
	assert.Equal(t, "events=C2I", cgi)
}

func TestClearAllEvents(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RecordEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install))
	require.NoError(t, e.RecordStatefulEvent(rlz.Chrome, rlz.ChromeHomePage, rlz.Install))
	require.NoError(t, e.RecordEvent(rlz.Desktop, rlz.GDDeskband, rlz.Install))

	require.NoError(t, e.ClearAllEvents(rlz.Chrome))

	events, err := e.Events(rlz.Chrome)
	require.NoError(t, err)
	assert.Empty(t, events)
	stateful, err := e.StatefulEvents(rlz.Chrome)
	require.NoError(t, err)
	assert.Empty(t, stateful)

	other, err := e.Events(rlz.Desktop)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestEventsAsCgiEveryToken(t *testing.T) {
	e, _ := newTestEngine(t)

	n := 0
	for _, p := range rlz.AccessPoints() {
		for ev := rlz.Install; ev <= rlz.Activate; ev++ {
			require.NoError(t, e.RecordEvent(rlz.Chrome, p, ev))
			n++
		}
	}

	cgi, err := e.EventsAsCgi(rlz.Chrome)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(cgi), rlz.MaxCgiLength)
	assert.True(t, strings.HasPrefix(cgi, "events="))
	toks := strings.Split(strings.TrimPrefix(cgi, "events="), ",")
	assert.Len(t, toks, n)
	for _, tok := range toks {
		assert.Len(t, tok, 3)
	}
}

func TestSetAndGetRlz(t *testing.T) {
	e, _ := newTestEngine(t)

	value, err := e.Rlz(rlz.IETBSearchBox)
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, e.SetRlz(rlz.IETBSearchBox, "1T4_ENUS123"))
	value, err = e.Rlz(rlz.IETBSearchBox)
	require.NoError(t, err)
	assert.Equal(t, "1T4_ENUS123", value)

	require.NoError(t, e.SetRlz(rlz.IETBSearchBox, "a b"))
	value, err = e.Rlz(rlz.IETBSearchBox)
	require.NoError(t, err)
	assert.Equal(t, "a.b", value)

	require.NoError(t, e.SetRlz(rlz.IETBSearchBox, ""))
	value, err = e.Rlz(rlz.IETBSearchBox)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSetRlzRejects(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.SetRlz(rlz.IETBSearchBox, strings.Repeat("a", rlz.MaxRlzLength+1))
	assert.ErrorIs(t, err, rlz.ErrTooLong)

	err = e.SetRlz(rlz.MobileIdleScreenSymbian, "abc")
	assert.ErrorIs(t, err, rlz.ErrUnsupportedPoint)

	_, err = e.Rlz(rlz.MobileIdleScreenSymbian)
	assert.ErrorIs(t, err, rlz.ErrUnsupportedPoint)
}

func TestAccessDenied(t *testing.T) {
	readOnly := access.CheckerFunc(func(_ string, write bool) bool { return !write })
	e, _ := newTestEngine(t, WithAccess(readOnly))

	err := e.RecordEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install)
	assert.ErrorIs(t, err, access.ErrDenied)

	_, err = e.Rlz(rlz.ChromeOmnibox)
	assert.NoError(t, err)

	none := access.CheckerFunc(func(string, bool) bool { return false })
	e, _ = newTestEngine(t, WithAccess(none))
	_, err = e.Rlz(rlz.ChromeOmnibox)
	assert.ErrorIs(t, err, access.ErrDenied)
}

func TestClosedSessionFails(t *testing.T) {
	e, _ := newTestEngine(t)

	s, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.RecordEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install)
	assert.ErrorIs(t, err, lock.ErrNotHeld)
}

func TestSessionHoldsLock(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	e, err := New(st, lock.NewMemory(20*time.Millisecond), WithAccess(access.AllowAll))
	require.NoError(t, err)

	s, err := e.Begin()
	require.NoError(t, err)
	err = e.RecordEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install)
	assert.ErrorIs(t, err, lock.ErrTimeout)
	require.NoError(t, s.Close())

	assert.NoError(t, e.RecordEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install))
}

func TestPingTimes(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(t, WithClock(func() time.Time { return now }))

	_, ok, err := e.LastPingTime(rlz.Chrome)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.UpdateLastPingTime(rlz.Chrome))
	got, ok, err := e.LastPingTime(rlz.Chrome)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(now))

	require.NoError(t, e.ClearLastPingTime(rlz.Chrome))
	_, ok, err = e.LastPingTime(rlz.Chrome)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCorruptPingTimeReadsAsNever(t *testing.T) {
	e, st := newTestEngine(t)
	require.NoError(t, st.Write(e.pingTimesKey(), rlz.Chrome.Name(), []byte("garbage")))

	_, ok, err := e.LastPingTime(rlz.Chrome)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearProductState(t *testing.T) {
	e, st := newTestEngine(t)

	require.NoError(t, e.RecordEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install))
	require.NoError(t, e.RecordStatefulEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.FirstSearch))
	require.NoError(t, e.UpdateLastPingTime(rlz.Chrome))
	require.NoError(t, e.SetRlz(rlz.ChromeOmnibox, "1C1AAAA"))
	require.NoError(t, e.SetRlz(rlz.ChromeHomePage, "1C2AAAA"))

	points := []rlz.AccessPoint{rlz.ChromeOmnibox, rlz.ChromeHomePage, rlz.NoAccessPoint}
	require.NoError(t, e.ClearProductState(rlz.Chrome, points))

	for _, p := range points[:2] {
		v, err := e.Rlz(p)
		require.NoError(t, err)
		assert.Empty(t, v, "rlz for %s", p)
	}

	exists, err := st.KeyExists(rlz.LibKeyName)
	require.NoError(t, err)
	assert.False(t, exists, "empty root should be pruned")
}

func TestClearProductStateKeepsOtherProducts(t *testing.T) {
	e, st := newTestEngine(t)

	require.NoError(t, e.RecordEvent(rlz.Desktop, rlz.GDDeskband, rlz.Install))
	require.NoError(t, e.SetRlz(rlz.GDDeskband, "1D1"))
	require.NoError(t, e.RecordEvent(rlz.Chrome, rlz.ChromeOmnibox, rlz.Install))

	require.NoError(t, e.ClearProductState(rlz.Chrome, []rlz.AccessPoint{rlz.ChromeOmnibox}))

	v, err := e.Rlz(rlz.GDDeskband)
	require.NoError(t, err)
	assert.Equal(t, "1D1", v)

	exists, err := st.KeyExists(e.Root())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBrandIsolation(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	l := lock.NewMemory(time.Second)

	plain, err := New(st, l, WithAccess(access.AllowAll))
	require.NoError(t, err)
	branded, err := New(st, l, WithAccess(access.AllowAll), WithBrand("GGLA"))
	require.NoError(t, err)
	assert.Equal(t, "Rlz/_GGLA", branded.Root())

	require.NoError(t, plain.SetRlz(rlz.ChromeOmnibox, "plain"))
	require.NoError(t, branded.SetRlz(rlz.ChromeOmnibox, "branded"))

	v, err := plain.Rlz(rlz.ChromeOmnibox)
	require.NoError(t, err)
	assert.Equal(t, "plain", v)
	v, err = branded.Rlz(rlz.ChromeOmnibox)
	require.NoError(t, err)
	assert.Equal(t, "branded", v)

	require.NoError(t, branded.ClearProductState(rlz.Chrome, []rlz.AccessPoint{rlz.ChromeOmnibox}))
	v, err = plain.Rlz(rlz.ChromeOmnibox)
	require.NoError(t, err)
	assert.Equal(t, "plain", v, fmt.Sprintf("unbranded state under %s survives", plain.Root()))
}
