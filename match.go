package taxcalc

import "fmt"

// MatchType identifies which statutory rule produced a match.
type MatchType string

const (
	MatchSameDay         MatchType = "same day"
	MatchBedAndBreakfast MatchType = "bed and breakfast"
	MatchSection104      MatchType = "section 104"
	MatchShortCover      MatchType = "short cover"
	MatchOptionRollover  MatchType = "option rollover"
	MatchOptionPremium   MatchType = "option premium"
)

// TradeMatch records one matching event between an acquisition and a
// disposal. The acquisition and disposal quantities are each expressed in the
// owning unit's own units and differ when a stock split sits between the two
// trades. Both matched units hold the same record in their history; nothing
// mutates it once the match is sealed.
type TradeMatch struct {
	ID                  uint64    `json:"id"`
	Type                MatchType `json:"type"`
	AcquisitionQuantity Quantity  `json:"acquisitionQuantity"`
	DisposalQuantity    Quantity  `json:"disposalQuantity"`
	AcquisitionDate     Date      `json:"acquisitionDate"`
	DisposalDate        Date      `json:"disposalDate"`
	DisposalProceeds    Money     `json:"disposalProceeds"`
	AllowableCost       Money     `json:"allowableCost"`
	Section104Snapshot  string    `json:"section104Snapshot,omitempty"`
	Notes               []string  `json:"notes,omitempty"`
}

// Gain returns the disposal proceeds net of allowable cost for this match.
func (m *TradeMatch) Gain() Money { return m.DisposalProceeds.Sub(m.AllowableCost) }

// AddNote appends an explanatory note to the match.
func (m *TradeMatch) AddNote(format string, args ...any) {
	m.Notes = append(m.Notes, fmt.Sprintf(format, args...))
}

// sequence hands out match and unit identifiers. A calculation run owns its
// own sequence and resets it at the start, so identifiers are reproducible
// for a given input.
type sequence struct {
	n uint64
}

func (s *sequence) Next() uint64 {
	s.n++
	return s.n
}

func (s *sequence) Reset() { s.n = 0 }
