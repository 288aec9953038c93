/*
Copyright 2025 The Cozystack Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cozystack/bro-hooks/internal/bro"
)

// TimeLayout is the format of interval start and stop times.
const TimeLayout = "2006-01-02T15:04:05"

var everyPattern = regexp.MustCompile(`^((?P<weeks>\d+)w)?((?P<days>\d+)d)?((?P<hours>\d+)h)?((?P<minutes>\d+)m)?$`)

// ParseEvery parses an interval cadence such as 1w2d or 6h30m. Every part
// is optional but the value may not be empty.
func ParseEvery(every string) (bro.Interval, error) {
	m := everyPattern.FindStringSubmatch(every)
	if every == "" || m == nil {
		return bro.Interval{}, fmt.Errorf("invalid schedule interval value: %q", every)
	}
	var interval bro.Interval
	fields := map[string]*int{
		"weeks":   &interval.Weeks,
		"days":    &interval.Days,
		"hours":   &interval.Hours,
		"minutes": &interval.Minutes,
	}
	for i, name := range everyPattern.SubexpNames() {
		target, ok := fields[name]
		if !ok || m[i] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i])
		if err != nil {
			return bro.Interval{}, fmt.Errorf("invalid %s in %q: %w", name, every, err)
		}
		*target = n
	}
	return interval, nil
}

// ValidTime reports whether value is a start or stop time in TimeLayout.
func ValidTime(value string) bool {
	_, err := time.Parse(TimeLayout, value)
	return err == nil
}

// Period returns the cadence of interval as a duration.
func Period(interval bro.Interval) time.Duration {
	return time.Duration(interval.Weeks)*7*24*time.Hour +
		time.Duration(interval.Days)*24*time.Hour +
		time.Duration(interval.Hours)*time.Hour +
		time.Duration(interval.Minutes)*time.Minute
}

// NextRun returns when interval fires next after now. An interval whose
// start time is still ahead first fires at its start.
func NextRun(interval bro.Interval, now time.Time) time.Time {
	if interval.StartTime != "" {
		if start, err := time.ParseInLocation(TimeLayout, interval.StartTime, now.Location()); err == nil && start.After(now) {
			return start
		}
	}
	return cron.Every(Period(interval)).Next(now)
}
