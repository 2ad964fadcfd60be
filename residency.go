package taxcalc

import (
	"fmt"
	"sort"
)

// ResidencyStatus is the taxpayer's UK residency standing over a date range.
type ResidencyStatus string

const (
	Resident    ResidencyStatus = "resident"
	NonResident ResidencyStatus = "non-resident"
)

// residencyPeriod is one dated range of a residency record.
type residencyPeriod struct {
	From   Date            `json:"from"`
	To     Date            `json:"to"`
	Status ResidencyStatus `json:"status"`
}

// ResidencyStatusRecord is a set of non-overlapping date ranges tagged with a
// residency status. Dates outside every range default to resident.
type ResidencyStatusRecord struct {
	periods []residencyPeriod
}

// NewResidencyStatusRecord builds a record, rejecting overlapping ranges.
func NewResidencyStatusRecord() *ResidencyStatusRecord {
	return &ResidencyStatusRecord{}
}

// AddPeriod records a residency status between from and to inclusive.
func (r *ResidencyStatusRecord) AddPeriod(from, to Date, status ResidencyStatus) error {
	if to.Before(from) {
		return fmt.Errorf("residency period ends %s before it starts %s", to, from)
	}
	for _, p := range r.periods {
		if !from.After(p.To) && !to.Before(p.From) {
			return fmt.Errorf("residency period %s..%s overlaps existing %s..%s", from, to, p.From, p.To)
		}
	}
	r.periods = append(r.periods, residencyPeriod{From: from, To: to, Status: status})
	sort.SliceStable(r.periods, func(i, j int) bool { return r.periods[i].From.Before(r.periods[j].From) })
	return nil
}

// StatusAt returns the residency status on a date.
func (r *ResidencyStatusRecord) StatusAt(day Date) ResidencyStatus {
	if r == nil {
		return Resident
	}
	for _, p := range r.periods {
		if !day.Before(p.From) && !day.After(p.To) {
			return p.Status
		}
	}
	return Resident
}
