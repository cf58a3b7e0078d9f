package rlz

// Protocol limits and field names.
const (
	// MaxRlzLength bounds a stored RLZ value.
	MaxRlzLength = 20
	// MaxDccLength bounds the machine deal code.
	MaxDccLength = 128
	// MaxCgiLength bounds any query fragment built from local state.
	MaxCgiLength = 2048
	// MaxPingResponseLength bounds a response the validator will look at.
	MaxPingResponseLength = 0x4000

	ProtocolVersion     = "2"
	ProtocolCgiVariable = "version"

	RlzCgiVariable            = "rlz"
	RlzCgiSeparator           = ","
	RlzCgiIndicator           = "="
	EventsCgiVariable         = "events"
	EventsCgiSeparator        = ','
	StatefulEventsCgiVariable = "stateful_events"
	DccCgiVariable            = "dcc"
	SetDccResponseVariable    = "set_dcc"

	ProductSignatureCgiVariable = "as"
	ProductBrandCgiVariable     = "brand"
	ProductIDCgiVariable        = "id"
	ProductLanguageCgiVariable  = "hl"
	MachineIDCgiVariable        = "mid"

	FinancialPingPath = "/tools/pso/ping"
	ChecksumMarker    = "crc32: "
)

// Store layout. Per-user state lives under LibKeyName; the deal code lives
// under the same name in the machine-scope store.
const (
	LibKeyName               = "Rlz"
	RlzsSubkeyName           = "RLZs"
	EventsSubkeyName         = "Events"
	StatefulEventsSubkeyName = "StatefulEvents"
	PingTimesSubkeyName      = "PTimes"
	DccValueName             = "DCC"
	SupplementaryBrandPrefix = "_"
)
