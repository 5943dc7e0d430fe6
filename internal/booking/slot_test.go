package booking

import (
	"errors"
	"testing"
	"time"
)

func TestFormatSlotKeys(t *testing.T) {
	at := time.Date(2025, time.June, 5, 13, 30, 0, 0, time.UTC)
	if got := FormatSlotDate(at); got != "5_6_2025" {
		t.Errorf("date key: expected 5_6_2025, got %q", got)
	}
	if got := FormatSlotTime(at); got != "01:30 PM" {
		t.Errorf("time string: expected 01:30 PM, got %q", got)
	}
	if got := FormatSlotTime(time.Date(2025, time.June, 5, 10, 0, 0, 0, time.UTC)); got != "10:00 AM" {
		t.Errorf("time string: expected 10:00 AM, got %q", got)
	}
}

func TestParseSlot(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		at, err := ParseSlot("5_6_2025", "10:30 AM", time.UTC)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		want := time.Date(2025, time.June, 5, 10, 30, 0, 0, time.UTC)
		if !at.Equal(want) {
			t.Errorf("expected %s, got %s", want, at)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		cases := []struct{ date, clock string }{
			{"32_13_2025", "10:00 AM"},
			{"5-6-2025", "10:00 AM"},
			{"5_6", "10:00 AM"},
			{"5_6_2025", "25:00 PM"},
			{"5_6_2025", "half past ten"},
			{"0_6_2025", "10:00 AM"},
		}
		for _, c := range cases {
			if _, err := ParseSlot(c.date, c.clock, time.UTC); !errors.Is(err, ErrInvalidSlot) {
				t.Errorf("ParseSlot(%q, %q): expected ErrInvalidSlot, got %v", c.date, c.clock, err)
			}
		}
	})
}

func TestNextHalfHour(t *testing.T) {
	base := func(h, m, s int) time.Time {
		return time.Date(2025, time.June, 5, h, m, s, 0, time.UTC)
	}
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{base(10, 0, 0), base(10, 0, 0)},
		{base(10, 0, 1), base(10, 30, 0)},
		{base(10, 29, 59), base(10, 30, 0)},
		{base(10, 30, 0), base(10, 30, 0)},
		{base(10, 31, 0), base(11, 0, 0)},
		{base(20, 45, 0), base(21, 0, 0)},
	}
	for _, c := range cases {
		if got := nextHalfHour(c.in); !got.Equal(c.want) {
			t.Errorf("nextHalfHour(%s): expected %s, got %s", c.in, c.want, got)
		}
	}
}

func TestOfferableSlots(t *testing.T) {
	t.Run("FullHorizon", func(t *testing.T) {
		now := time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC)
		days := OfferableSlots(now, nil)
		if len(days) != HorizonDays {
			t.Fatalf("expected %d days, got %d", HorizonDays, len(days))
		}
		for i, day := range days {
			if len(day.Slots) != 22 {
				t.Errorf("day %d: expected 22 slots, got %d", i, len(day.Slots))
			}
		}
		if days[0].Date != "4_6_2025" {
			t.Errorf("expected first day 4_6_2025, got %q", days[0].Date)
		}
		if days[0].Slots[0].Time != "10:00 AM" {
			t.Errorf("expected first slot 10:00 AM, got %q", days[0].Slots[0].Time)
		}
		if last := days[0].Slots[21].Time; last != "08:30 PM" {
			t.Errorf("expected last slot 08:30 PM, got %q", last)
		}
	})

	t.Run("TodayStartsAtNextBoundary", func(t *testing.T) {
		now := time.Date(2025, time.June, 4, 13, 5, 0, 0, time.UTC)
		days := OfferableSlots(now, nil)
		if days[0].Slots[0].Time != "01:30 PM" {
			t.Errorf("expected first slot 01:30 PM, got %q", days[0].Slots[0].Time)
		}
		if len(days[0].Slots) != 15 {
			t.Errorf("expected 15 slots left today, got %d", len(days[0].Slots))
		}
	})

	t.Run("LateEveningLeavesTodayEmpty", func(t *testing.T) {
		// 20:45: no 30 minute slot fits before the 21:00 close.
		now := time.Date(2025, time.June, 4, 20, 45, 0, 0, time.UTC)
		days := OfferableSlots(now, nil)
		if len(days[0].Slots) != 0 {
			t.Errorf("expected no slots today, got %d", len(days[0].Slots))
		}
		for i := 1; i < HorizonDays; i++ {
			if len(days[i].Slots) != 22 {
				t.Errorf("day %d: expected 22 slots, got %d", i, len(days[i].Slots))
			}
		}
	})

	t.Run("BookedSlotsExcluded", func(t *testing.T) {
		now := time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC)
		booked := map[string][]string{
			"5_6_2025": {"10:00 AM", "03:30 PM"},
		}
		days := OfferableSlots(now, booked)
		day := days[1]
		if day.Date != "5_6_2025" {
			t.Fatalf("expected day 5_6_2025, got %q", day.Date)
		}
		if len(day.Slots) != 20 {
			t.Errorf("expected 20 slots, got %d", len(day.Slots))
		}
		for _, s := range day.Slots {
			if s.Time == "10:00 AM" || s.Time == "03:30 PM" {
				t.Errorf("booked slot %q still offered", s.Time)
			}
		}
	})

	t.Run("MonthRollover", func(t *testing.T) {
		now := time.Date(2025, time.June, 29, 9, 0, 0, 0, time.UTC)
		days := OfferableSlots(now, nil)
		if days[2].Date != "1_7_2025" {
			t.Errorf("expected rollover to 1_7_2025, got %q", days[2].Date)
		}
	})
}
