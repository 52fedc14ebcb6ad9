/*
 * Copyright 2026 Keyhole Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package typeutils

import (
	"fmt"
	"strings"
	"time"
)

// layouts tried in order when parsing a timestamp string
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

func parseStringTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp string")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("value %q doesn't match any timestamp layout", s)
}

// ReformatDate normalizes v into a time.Time.
func ReformatDate(v interface{}) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case *time.Time:
		if val == nil {
			return time.Time{}, ErrNullValue
		}
		return *val, nil
	case string:
		return parseStringTimestamp(val)
	case []byte:
		return parseStringTimestamp(string(val))
	default:
		return time.Time{}, fmt.Errorf("cannot reformat %T as timestamp", v)
	}
}

// IsTimestampString reports whether s parses as a timestamp.
func IsTimestampString(s string) bool {
	_, err := parseStringTimestamp(s)
	return err == nil
}
