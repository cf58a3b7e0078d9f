package rlz

import "fmt"

// AccessPoint identifies an integration surface that carries an RLZ value.
type AccessPoint int

const (
	NoAccessPoint AccessPoint = iota
	IEDefaultSearch
	IEHomePage
	IETBSearchBox
	QuickSearchBox
	GDDeskband
	GDSearchGadget
	GDWebServer
	GDOutlook
	ChromeOmnibox
	ChromeHomePage
	FFTB2Box
	FFTB3Box
	PinyinIMEBHO
	IGoogleWebpage
	MobileIdleScreenBlackberry
	MobileIdleScreenWinMob
	MobileIdleScreenSymbian
	FFHomePage
	FFSearchBox
	IEBrowsedPage
	QSBWinBox
	WebappsCalendar
	WebappsDocs
	WebappsGmail
	IETBLinkdoctor
	FFTBLinkdoctor
	IETB7SearchBox
	TB8SearchBox
	ChromeFrame
	PartnerAP1
	PartnerAP2
	PartnerAP3
	PartnerAP4
	PartnerAP5
	lastAccessPoint
)

// Event is a lifecycle event reported against an access point.
type Event int

const (
	InvalidEvent Event = iota
	Install
	SetToGoogle
	FirstSearch
	ReportRLS
	Activate
	lastEvent
)

// Product namespaces all per-user state.
type Product int

const (
	IEToolbar Product = iota + 1
	ToolbarNotifier
	Pack
	Desktop
	Chrome
	FFToolbar
	QSBWin
	Webapps
	PinyinIME
	Partner
	lastProduct
)

var accessPointNames = [...]string{
	NoAccessPoint:              "",
	IEDefaultSearch:            "I7",
	IEHomePage:                 "W1",
	IETBSearchBox:              "T4",
	QuickSearchBox:             "Q1",
	GDDeskband:                 "D1",
	GDSearchGadget:             "D2",
	GDWebServer:                "D3",
	GDOutlook:                  "D4",
	ChromeOmnibox:              "C1",
	ChromeHomePage:             "C2",
	FFTB2Box:                   "B2",
	FFTB3Box:                   "B3",
	PinyinIMEBHO:               "N1",
	IGoogleWebpage:             "G1",
	MobileIdleScreenBlackberry: "H1",
	MobileIdleScreenWinMob:     "H2",
	MobileIdleScreenSymbian:    "H3",
	FFHomePage:                 "R0",
	FFSearchBox:                "R1",
	IEBrowsedPage:              "R2",
	QSBWinBox:                  "R3",
	WebappsCalendar:            "R4",
	WebappsDocs:                "R5",
	WebappsGmail:               "R6",
	IETBLinkdoctor:             "R7",
	FFTBLinkdoctor:             "R8",
	IETB7SearchBox:             "R9",
	TB8SearchBox:               "RA",
	ChromeFrame:                "RB",
	PartnerAP1:                 "RC",
	PartnerAP2:                 "RD",
	PartnerAP3:                 "RE",
	PartnerAP4:                 "RF",
	PartnerAP5:                 "RG",
}

var eventNames = [...]string{
	InvalidEvent: "",
	Install:      "I",
	SetToGoogle:  "S",
	FirstSearch:  "F",
	ReportRLS:    "R",
	Activate:     "A",
}

var productNames = [...]string{
	IEToolbar:       "T",
	ToolbarNotifier: "P",
	Pack:            "U",
	Desktop:         "D",
	Chrome:          "C",
	FFToolbar:       "B",
	QSBWin:          "K",
	Webapps:         "W",
	PinyinIME:       "N",
	Partner:         "V",
}

var (
	accessPointsByName = reverse(accessPointNames[:], func(i int) AccessPoint { return AccessPoint(i) })
	eventsByName       = reverse(eventNames[:], func(i int) Event { return Event(i) })
	productsByName     = reverse(productNames[:], func(i int) Product { return Product(i) })
)

func reverse[T any](names []string, conv func(int) T) map[string]T {
	m := make(map[string]T, len(names))
	for i, name := range names {
		if name != "" {
			m[name] = conv(i)
		}
	}
	return m
}

// Name returns the wire code for p, or "" for NoAccessPoint and values
// outside the table.
func (p AccessPoint) Name() string {
	if p < 0 || int(p) >= len(accessPointNames) {
		return ""
	}
	return accessPointNames[p]
}

func (p AccessPoint) String() string {
	if name := p.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("AccessPoint(%d)", int(p))
}

// Valid reports whether p is a real access point (not the sentinel).
func (p AccessPoint) Valid() bool {
	return p > NoAccessPoint && p < lastAccessPoint
}

// Supported reports whether p can carry an RLZ value on this platform.
// Mobile idle-screen points never exist on a desktop machine.
func (p AccessPoint) Supported() bool {
	switch p {
	case MobileIdleScreenBlackberry, MobileIdleScreenWinMob, MobileIdleScreenSymbian:
		return false
	}
	return p.Valid()
}

// AccessPointFromName resolves a wire code. The empty name resolves to
// NoAccessPoint; any other unknown name fails. Matching is exact and
// case-sensitive.
func AccessPointFromName(name string) (AccessPoint, bool) {
	if name == "" {
		return NoAccessPoint, true
	}
	p, ok := accessPointsByName[name]
	if !ok {
		return NoAccessPoint, false
	}
	return p, true
}

// AccessPoints returns every valid access point in table order.
func AccessPoints() []AccessPoint {
	points := make([]AccessPoint, 0, int(lastAccessPoint)-1)
	for p := NoAccessPoint + 1; p < lastAccessPoint; p++ {
		points = append(points, p)
	}
	return points
}

// Name returns the one-letter wire code for e.
func (e Event) Name() string {
	if e < 0 || int(e) >= len(eventNames) {
		return ""
	}
	return eventNames[e]
}

func (e Event) String() string {
	if name := e.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Valid reports whether e is a real event (not the sentinel).
func (e Event) Valid() bool {
	return e > InvalidEvent && e < lastEvent
}

// EventFromName resolves a one-letter event code; "" resolves to
// InvalidEvent.
func EventFromName(name string) (Event, bool) {
	if name == "" {
		return InvalidEvent, true
	}
	e, ok := eventsByName[name]
	if !ok {
		return InvalidEvent, false
	}
	return e, true
}

// Name returns the namespace name used for p in the store.
func (p Product) Name() string {
	if p <= 0 || int(p) >= len(productNames) {
		return ""
	}
	return productNames[p]
}

func (p Product) String() string {
	if name := p.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("Product(%d)", int(p))
}

// Valid reports whether p is a known product.
func (p Product) Valid() bool {
	return p.Name() != ""
}

// ProductFromName resolves a product code.
func ProductFromName(name string) (Product, bool) {
	p, ok := productsByName[name]
	return p, ok
}

// EventRecord is one (point, event) pair in a product ledger.
type EventRecord struct {
	Point AccessPoint
	Event Event
}

// Token returns the three-character wire form: point code then event code.
func (r EventRecord) Token() string {
	return r.Point.Name() + r.Event.Name()
}

// Valid reports whether both halves of the record are real values.
func (r EventRecord) Valid() bool {
	return r.Point.Valid() && r.Event.Valid()
}

// ParseEventToken resolves a three-character token such as "I7I". Tokens
// of the wrong length or naming a sentinel fail.
func ParseEventToken(tok string) (EventRecord, bool) {
	if len(tok) != 3 {
		return EventRecord{}, false
	}
	point, ok := AccessPointFromName(tok[:2])
	if !ok || point == NoAccessPoint {
		return EventRecord{}, false
	}
	event, ok := EventFromName(tok[2:])
	if !ok || event == InvalidEvent {
		return EventRecord{}, false
	}
	return EventRecord{Point: point, Event: event}, true
}
