// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package topics implements MQTT topic name and topic filter rules.
package topics

import "strings"

// Wildcards and separator used in topic filters.
const (
	Separator   = "/"
	SingleLevel = "+"
	MultiLevel  = "#"
)

// Match reports whether topic matches filter. '+' matches exactly one level,
// a trailing '#' matches the parent level and everything below it. Topics
// starting with '$' are only matched by filters whose first level is literal.
func Match(filter, topic string) bool {
	if filter == "" || topic == "" {
		return false
	}
	if filter == topic {
		return true
	}
	if strings.HasPrefix(topic, "$") && (strings.HasPrefix(filter, SingleLevel) || strings.HasPrefix(filter, MultiLevel)) {
		return false
	}

	for {
		fLevel, fRest, fMore := strings.Cut(filter, Separator)
		if fLevel == MultiLevel {
			return true
		}

		tLevel, tRest, tMore := strings.Cut(topic, Separator)
		if fLevel != SingleLevel && fLevel != tLevel {
			return false
		}

		switch {
		case fMore && tMore:
			filter, topic = fRest, tRest
		case !fMore && !tMore:
			return true
		case fMore && !tMore:
			// "a/#" matches "a".
			return fRest == MultiLevel
		default:
			return false
		}
	}
}
