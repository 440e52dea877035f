package models

import "strings"

// DimensionKey identifies a slice of traffic at one of the pre-declared
// granularities in spec.md §4.1. It is an opaque, stable string (never a
// pointer) so rules and incidents can reference a dimension by value and
// resolve it by lookup — breaking the rule↔incident↔dimension cycle the
// source system expressed with live references (spec.md §9).
type DimensionKey string

// wildcard marks a position not scoped by this key.
const wildcard = "_"

// BuildDimensionKey composes the canonical "merchant/country/provider/issuer"
// segment used as the prefix for every counter family. Empty components are
// rendered as the wildcard so keys remain fixed-arity and greppable.
func BuildDimensionKey(merchantID, country, providerID, issuer string) DimensionKey {
	seg := func(s string) string {
		if s == "" {
			return wildcard
		}
		return s
	}
	return DimensionKey(strings.Join([]string{seg(merchantID), seg(country), seg(providerID), seg(issuer)}, "/"))
}

// Granularities enumerates the dimension-key prefixes an ingested event
// increments, per spec.md §4.1's bullet list. issuer may be empty.
func Granularities(merchantID, country, providerID, issuer string) []DimensionKey {
	return []DimensionKey{
		BuildDimensionKey(merchantID, "", "", ""),
		BuildDimensionKey(merchantID, country, "", ""),
		BuildDimensionKey(merchantID, country, providerID, ""),
		BuildDimensionKey(merchantID, country, providerID, issuer),
		BuildDimensionKey("", country, providerID, ""),
	}
}

// ResponseCodeDimensionKey is the side-counter key family for ERROR events,
// scoped merchant/country/provider (no issuer), per spec.md §4.1.
func ResponseCodeDimensionKey(merchantID, country, providerID string) DimensionKey {
	return BuildDimensionKey(merchantID, country, providerID, "")
}
