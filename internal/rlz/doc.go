// Package rlz holds the data model shared by every part of rlztrack: the
// closed sets of access points, events and products, their two-letter wire
// codes, the protocol constants and the RLZ value alphabet.
//
// The code tables are immutable and built at package init; lookups are pure
// functions and safe for concurrent use.
package rlz
