package logics

import (
	"fmt"
	"time"

	"noisedash/internal/api/models"
	"noisedash/internal/utils"
)

// Range selectors recognized by the historical readings endpoint
const (
	RangeLastHour   = "last_hour"
	RangeToday      = "today"
	RangeYesterday  = "yesterday"
	RangeThisWeek   = "this_week"
	RangeThisMonth  = "this_month"
	RangeSingleDate = "single_date"
	RangeDate       = "date"
	RangeDateRange  = "date_range"
)

// TimeRangeResolver turns a symbolic range selector into a concrete
// [start, end] instant pair in UTC. Calendar boundaries ("today",
// "this_week") are computed in Zone; the zone is injected configuration
// rather than an implicit server default, because a different convention
// silently shifts every bucket boundary by the server's UTC offset.
type TimeRangeResolver struct {
	Zone *time.Location
}

// NewTimeRangeResolver builds a resolver for the given calendar zone,
// defaulting to UTC
func NewTimeRangeResolver(zone *time.Location) TimeRangeResolver {
	if zone == nil {
		zone = time.UTC
	}
	return TimeRangeResolver{Zone: zone}
}

// Resolve computes the concrete range for a request. now is captured once
// per request by the caller to avoid drift between components.
func (rr TimeRangeResolver) Resolve(req models.AggregationRequest, now time.Time) (models.ResolvedRange, error) {
	now = now.UTC()

	switch req.Range {
	case RangeLastHour:
		return models.ResolvedRange{Start: now.Add(-time.Hour), End: now}, nil

	case RangeToday:
		return models.ResolvedRange{Start: rr.midnightOf(now), End: now}, nil

	case RangeYesterday:
		yesterday := now.In(rr.Zone).AddDate(0, 0, -1)
		return models.ResolvedRange{
			Start: rr.midnightOf(yesterday),
			End:   rr.endOfDayOf(yesterday),
		}, nil

	case RangeThisWeek:
		// Week starts on the most recent Sunday
		local := now.In(rr.Zone)
		sunday := local.AddDate(0, 0, -int(local.Weekday()))
		return models.ResolvedRange{Start: rr.midnightOf(sunday), End: now}, nil

	case RangeThisMonth:
		local := now.In(rr.Zone)
		first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, rr.Zone)
		return models.ResolvedRange{Start: first.UTC(), End: now}, nil

	case RangeSingleDate, RangeDate:
		if utils.IsEmptyOrWhitespace(req.Date) {
			return models.ResolvedRange{}, utils.NewValidationError("MISSING_DATE",
				"date is required for single_date", utils.ErrValidationFailed)
		}
		day, err := time.ParseInLocation(utils.DateOnlyLayout, req.Date, rr.Zone)
		if err != nil {
			return models.ResolvedRange{}, utils.NewValidationError("INVALID_DATE",
				fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date), err)
		}
		return models.ResolvedRange{
			Start: rr.midnightOf(day),
			End:   rr.endOfDayOf(day),
		}, nil

	case RangeDateRange:
		if utils.IsEmptyOrWhitespace(req.StartDate) || utils.IsEmptyOrWhitespace(req.EndDate) {
			return models.ResolvedRange{}, utils.NewValidationError("MISSING_DATE_RANGE",
				"startDate and endDate are required for date_range", utils.ErrValidationFailed)
		}
		start, err := utils.ParseTimestampUTC(req.StartDate)
		if err != nil {
			return models.ResolvedRange{}, utils.NewValidationError("INVALID_START_DATE",
				fmt.Sprintf("invalid startDate %q", req.StartDate), err)
		}
		end, err := utils.ParseTimestampUTC(req.EndDate)
		if err != nil {
			return models.ResolvedRange{}, utils.NewValidationError("INVALID_END_DATE",
				fmt.Sprintf("invalid endDate %q", req.EndDate), err)
		}
		// Reversed bounds are rejected rather than swapped: a swapped range
		// hides a client bug behind plausible-looking data
		if start.After(end) {
			return models.ResolvedRange{}, utils.NewValidationError("REVERSED_DATE_RANGE",
				"startDate must not be after endDate", utils.ErrValidationFailed)
		}
		return models.ResolvedRange{Start: start, End: end}, nil

	default:
		// Unrecognized selectors fall back to the last hour
		return models.ResolvedRange{Start: now.Add(-time.Hour), End: now}, nil
	}
}

// midnightOf returns the start of t's calendar day in the resolver zone,
// converted to UTC
func (rr TimeRangeResolver) midnightOf(t time.Time) time.Time {
	local := t.In(rr.Zone)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, rr.Zone).UTC()
}

// endOfDayOf returns 23:59:59.999 of t's calendar day in the resolver zone,
// converted to UTC
func (rr TimeRangeResolver) endOfDayOf(t time.Time) time.Time {
	local := t.In(rr.Zone)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999*int(time.Millisecond), rr.Zone).UTC()
}
