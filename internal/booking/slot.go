package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Working day bounds for every doctor. Slots run 10:00-21:00 in 30 minute
// steps, so a fully open day offers 22 slots.
const (
	openHour     = 10
	closeHour    = 21
	slotInterval = 30 * time.Minute

	// HorizonDays is how many days of slots the calendar offers.
	HorizonDays = 7

	slotTimeLayout = "03:04 PM"
)

type Slot struct {
	Time     string    `json:"time"`
	StartsAt time.Time `json:"starts_at"`
}

type DaySlots struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// FormatSlotDate renders the ledger date key, day_month_year without zero
// padding, e.g. "5_6_2025".
func FormatSlotDate(t time.Time) string {
	return fmt.Sprintf("%d_%d_%d", t.Day(), int(t.Month()), t.Year())
}

// FormatSlotTime renders the ledger time string, e.g. "10:30 AM".
func FormatSlotTime(t time.Time) string {
	return t.Format(slotTimeLayout)
}

// ParseSlot resolves a (date key, time string) pair into the moment the slot
// starts, in loc. Malformed or impossible inputs return ErrInvalidSlot.
func ParseSlot(slotDate, slotTime string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(slotDate, "_")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidSlot, slotDate)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidSlot, slotDate)
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]

	clock, err := time.Parse(slotTimeLayout, slotTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidSlot, slotTime)
	}

	startsAt := time.Date(year, time.Month(month), day, clock.Hour(), clock.Minute(), 0, 0, loc)
	// time.Date normalizes out-of-range components, so 32_13_2025 would roll
	// over silently. Reject anything that does not round-trip.
	if startsAt.Day() != day || int(startsAt.Month()) != month || startsAt.Year() != year {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidSlot, slotDate)
	}

	return startsAt, nil
}

// slotInWindow reports whether t is a bookable slot boundary within the
// working day.
func slotInWindow(t time.Time) bool {
	if t.Minute()%30 != 0 || t.Second() != 0 {
		return false
	}
	return t.Hour() >= openHour && t.Hour() < closeHour
}

// OfferableSlots computes, for each of the next HorizonDays days, the ordered
// offerable slots given the doctor's currently booked set. It is a pure
// function of its inputs and is recomputed on every call; the booked set may
// change between calls.
func OfferableSlots(now time.Time, booked map[string][]string) []DaySlots {
	days := make([]DaySlots, 0, HorizonDays)

	for i := 0; i < HorizonDays; i++ {
		day := startOfDay(now).AddDate(0, 0, i)
		start := day.Add(openHour * time.Hour)
		if i == 0 {
			// Never offer a slot in the past: today's window starts at the
			// next half-hour boundary at or after now.
			if adjusted := nextHalfHour(now); adjusted.After(start) {
				start = adjusted
			}
		}
		end := day.Add(closeHour * time.Hour)

		dateKey := FormatSlotDate(day)
		taken := make(map[string]struct{}, len(booked[dateKey]))
		for _, ts := range booked[dateKey] {
			taken[ts] = struct{}{}
		}

		slots := make([]Slot, 0, (closeHour-openHour)*2)
		for t := start; t.Before(end); t = t.Add(slotInterval) {
			ts := FormatSlotTime(t)
			if _, ok := taken[ts]; ok {
				continue
			}
			slots = append(slots, Slot{Time: ts, StartsAt: t})
		}

		days = append(days, DaySlots{Date: dateKey, Slots: slots})
	}

	return days
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// nextHalfHour returns the first half-hour boundary at or after t.
func nextHalfHour(t time.Time) time.Time {
	base := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	switch {
	case t.Equal(base):
		return base
	case !t.After(base.Add(slotInterval)):
		return base.Add(slotInterval)
	default:
		return base.Add(time.Hour)
	}
}
