// Package streak computes day streaks from study session history.
package streak

import (
	"sort"
	"time"
)

// Result holds the current and longest streaks in whole days.
type Result struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Compute reduces session start times to distinct calendar dates (in today's
// location) and measures runs of consecutive days. The current streak is the
// run ending today or yesterday; a run that ended earlier has lapsed and
// counts as zero. Input order and duplicates do not matter.
func Compute(starts []time.Time, today time.Time) Result {
	days := distinctDays(starts, today.Location())
	if len(days) == 0 {
		return Result{}
	}

	var res Result
	run := 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
			continue
		}
		res.Longest = max(res.Longest, run)
		run = 1
	}
	res.Longest = max(res.Longest, run)

	// run now holds the length of the run ending on the latest studied day.
	latest := days[len(days)-1]
	t := dayNumber(today)
	if latest == t || latest == t-1 {
		res.Current = run
	}
	return res
}

// distinctDays returns sorted, de-duplicated day numbers.
func distinctDays(starts []time.Time, loc *time.Location) []int64 {
	seen := make(map[int64]struct{}, len(starts))
	days := make([]int64, 0, len(starts))
	for _, s := range starts {
		d := dayNumber(s.In(loc))
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// dayNumber maps a time to a count of civil days, so consecutive calendar
// dates differ by exactly one regardless of DST shifts.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// NextMilestone returns the next streak milestone above the current streak length.
func NextMilestone(current int) int {
	thresholds := []int{5, 10, 15, 20}
	for _, t := range thresholds {
		if t > current {
			return t
		}
	}
	// Beyond 20, a milestone every 5 days.
	return ((current / 5) + 1) * 5
}
