// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package topics

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidTopicName   = errors.New("invalid topic name")
	ErrInvalidTopicFilter = errors.New("invalid topic filter")
)

// ValidateName checks that topic can be used in PUBLISH: non-empty UTF-8
// without wildcards or NUL characters.
func ValidateName(topic string) error {
	if topic == "" || !utf8.ValidString(topic) {
		return ErrInvalidTopicName
	}
	if strings.ContainsAny(topic, SingleLevel+MultiLevel+"\u0000") {
		return ErrInvalidTopicName
	}
	return nil
}

// ValidateFilter checks that filter can be used in SUBSCRIBE and UNSUBSCRIBE.
// Wildcards must occupy a whole level and '#' must be the last level.
func ValidateFilter(filter string) error {
	if filter == "" || !utf8.ValidString(filter) || strings.Contains(filter, "\u0000") {
		return ErrInvalidTopicFilter
	}

	levels := strings.Split(filter, Separator)
	for i, level := range levels {
		switch {
		case level == MultiLevel:
			if i != len(levels)-1 {
				return ErrInvalidTopicFilter
			}
		case level == SingleLevel:
		case strings.ContainsAny(level, SingleLevel+MultiLevel):
			return ErrInvalidTopicFilter
		}
	}
	return nil
}
