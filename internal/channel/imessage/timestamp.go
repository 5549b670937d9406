package imessage

import "time"

// appleEpochOffsetSeconds is the Unix-epoch offset of 2001-01-01T00:00:00Z,
// the reference point the Messages database stores timestamps against (31
// years after the Unix epoch).
const appleEpochOffsetSeconds int64 = 978307200

// toUnixTime converts a raw "nanoseconds since the Apple epoch" column
// value (spec.md §4.2 "Timestamp conversion"). A zero input yields the
// platform epoch exactly.
func toUnixTime(nativeNs int64) time.Time {
	sec := nativeNs/1_000_000_000 + appleEpochOffsetSeconds
	nsec := nativeNs % 1_000_000_000
	return time.Unix(sec, nsec).UTC()
}
