package taxcalc

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestResidencyDefaultsToResident(t *testing.T) {
	var empty *ResidencyStatusRecord
	if got := empty.StatusAt(NewDate(2024, time.June, 1)); got != Resident {
		t.Errorf("status with no record = %s, want resident", got)
	}

	r := NewResidencyStatusRecord()
	if got := r.StatusAt(NewDate(2024, time.June, 1)); got != Resident {
		t.Errorf("status outside every period = %s, want resident", got)
	}
}

func TestResidencyPeriodBoundariesInclusive(t *testing.T) {
	r := NewResidencyStatusRecord()
	from := NewDate(2023, time.April, 6)
	to := NewDate(2024, time.April, 5)
	if err := r.AddPeriod(from, to, NonResident); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		day  Date
		want ResidencyStatus
	}{
		{from.Add(-1), Resident},
		{from, NonResident},
		{to, NonResident},
		{to.Add(1), Resident},
	}
	for _, tc := range tests {
		if got := r.StatusAt(tc.day); got != tc.want {
			t.Errorf("status at %s = %s, want %s", tc.day, got, tc.want)
		}
	}
}

func TestResidencyRejectsBadPeriods(t *testing.T) {
	r := NewResidencyStatusRecord()
	if err := r.AddPeriod(NewDate(2024, time.May, 1), NewDate(2024, time.April, 1), NonResident); err == nil {
		t.Error("expected an error for a period ending before it starts")
	}
	if err := r.AddPeriod(NewDate(2023, time.May, 1), NewDate(2023, time.December, 31), NonResident); err != nil {
		t.Fatal(err)
	}
	if err := r.AddPeriod(NewDate(2023, time.December, 31), NewDate(2024, time.June, 1), Resident); err == nil {
		t.Error("expected an error for an overlapping period")
	}
}

// TestNonResidentDisposalExcluded puts a disposal inside a non-resident
// period: its gain is reported separately and kept out of the taxable totals.
func TestNonResidentDisposalExcluded(t *testing.T) {
	ledger := NewEventLedger()
	buy := NewDate(2023, time.June, 1)
	sell := NewDate(2024, time.June, 3)
	err := ledger.Append(
		NewTrade(buy, "VWRL", Acquisition, Q(10), GBP(1000)),
		NewTrade(sell, "VWRL", Disposal, Q(10), GBP(1600)),
	)
	if err != nil {
		t.Fatal(err)
	}

	residency := NewResidencyStatusRecord()
	if err := residency.AddPeriod(NewDate(2024, time.April, 6), NewDate(2025, time.April, 5), NonResident); err != nil {
		t.Fatal(err)
	}
	calc := NewCalculation(ledger)
	calc.Residency = residency
	calc.Logger.SetLevel(logrus.PanicLevel)
	res, err := calc.Run()
	if err != nil {
		t.Fatal(err)
	}

	disp := disposalUnit(t, res, "VWRL", sell)
	if disp.Residency() != NonResident {
		t.Errorf("unit residency = %s, want non-resident", disp.Residency())
	}
	if len(res.Years) != 1 {
		t.Fatalf("expected one summarized year, got %d", len(res.Years))
	}
	y := res.Years[0]
	if y.Disposals != 0 || !y.Gains.IsZero() {
		t.Errorf("taxable totals = %+v, want nothing while non-resident", y)
	}
	if !y.NonTaxableGains.Equal(GBP(600)) {
		t.Errorf("non-taxable gains = %s, want 600", y.NonTaxableGains)
	}
}
