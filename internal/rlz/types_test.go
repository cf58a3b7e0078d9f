package rlz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessPointFromName(t *testing.T) {
	tests := []struct {
		name   string
		want   AccessPoint
		wantOK bool
	}{
		{"", NoAccessPoint, true},
		{"i1", NoAccessPoint, false},
		{"I7", IEDefaultSearch, true},
		{"T4", IETBSearchBox, true},
		{"T4 ", NoAccessPoint, false},
		{"C1", ChromeOmnibox, true},
	}

	for _, tt := range tests {
		got, ok := AccessPointFromName(tt.name)
		assert.Equal(t, tt.wantOK, ok, "AccessPointFromName(%q)", tt.name)
		assert.Equal(t, tt.want, got, "AccessPointFromName(%q)", tt.name)
	}
}

func TestEventFromName(t *testing.T) {
	tests := []struct {
		name   string
		want   Event
		wantOK bool
	}{
		{"", InvalidEvent, true},
		{"i1", InvalidEvent, false},
		{"I", Install, true},
		{"F", FirstSearch, true},
		{"F ", InvalidEvent, false},
	}

	for _, tt := range tests {
		got, ok := EventFromName(tt.name)
		assert.Equal(t, tt.wantOK, ok, "EventFromName(%q)", tt.name)
		assert.Equal(t, tt.want, got, "EventFromName(%q)", tt.name)
	}
}

func TestNamesRoundTrip(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range AccessPoints() {
		name := p.Name()
		assert.Len(t, name, 2, "point %d", int(p))
		assert.False(t, seen[name], "duplicate code %s", name)
		seen[name] = true

		back, ok := AccessPointFromName(name)
		assert.True(t, ok)
		assert.Equal(t, p, back)
	}

	for p := IEToolbar; p < lastProduct; p++ {
		back, ok := ProductFromName(p.Name())
		assert.True(t, ok)
		assert.Equal(t, p, back)
	}
}

func TestSupported(t *testing.T) {
	assert.False(t, NoAccessPoint.Supported())
	assert.False(t, MobileIdleScreenWinMob.Supported())
	assert.False(t, AccessPoint(999).Supported())
	assert.True(t, IEDefaultSearch.Supported())
	assert.True(t, ChromeOmnibox.Supported())
}

func TestParseEventToken(t *testing.T) {
	rec, ok := ParseEventToken("I7I")
	assert.True(t, ok)
	assert.Equal(t, EventRecord{Point: IEDefaultSearch, Event: Install}, rec)
	assert.Equal(t, "I7I", rec.Token())

	for _, bad := range []string{"", "I7", "I7II", "ZZI", "I7Z", "i7I"} {
		_, ok := ParseEventToken(bad)
		assert.False(t, ok, "ParseEventToken(%q)", bad)
	}
}
