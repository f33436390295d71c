/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/freshnest/freshnest/internal/scheduling"
)

var rruleWeekdays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// SeriesRule builds an RRULE for a recurring series anchored at dtstart.
// The raw override, when present, wins over the structured pattern.
func SeriesRule(dtstart time.Time, p scheduling.Pattern, raw string) (*rrule.RRule, error) {
	if raw != "" {
		rule, err := rrule.StrToRRule(raw)
		if err != nil {
			return nil, fmt.Errorf("parse rrule %q: %w", raw, err)
		}
		rule.DTStart(dtstart)
		return rule, nil
	}

	opt := rrule.ROption{Dtstart: dtstart}

	switch p.Frequency {
	case scheduling.FreqWeekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 1
	case scheduling.FreqBiweekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 2
	case scheduling.FreqMonthly:
		opt.Freq = rrule.MONTHLY
		opt.Interval = 1
	case scheduling.FreqQuarterly:
		opt.Freq = rrule.MONTHLY
		opt.Interval = 3
	case scheduling.FreqCustom:
		opt.Freq = rrule.WEEKLY
		if p.IntervalWeeks > 0 {
			opt.Interval = p.IntervalWeeks
		} else {
			opt.Interval = 1
		}
	default:
		return nil, fmt.Errorf("unknown frequency %q", p.Frequency)
	}

	if opt.Freq == rrule.WEEKLY {
		for _, day := range p.DaysOfWeek {
			if day >= time.Sunday && day <= time.Saturday {
				opt.Byweekday = append(opt.Byweekday, rruleWeekdays[day])
			}
		}
	}

	if opt.Freq == rrule.MONTHLY && p.DayOfMonth > 0 {
		opt.Bymonthday = []int{p.DayOfMonth}
	}

	switch p.End.Kind {
	case scheduling.EndUntil:
		opt.Until = p.End.Until
	case scheduling.EndCount:
		opt.Count = p.End.Count
	}

	return rrule.NewRRule(opt)
}
