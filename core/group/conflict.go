package group

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Intervals that touch at a boundary do not overlap:
// a session ending at 10:00 does not conflict with one starting at 10:00.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

// ConflictsWith reports whether two sessions collide: same day of week with
// overlapping time intervals.
func (s GroupSession) ConflictsWith(other GroupSession) bool {
	return s.Day == other.Day && Overlaps(s.Start, s.End, other.Start, other.End)
}

// firstConflict returns the first session in candidates that collides with s,
// skipping s itself (matched by id, for updates).
func firstConflict(s GroupSession, candidates []GroupSession) (GroupSession, bool) {
	for _, other := range candidates {
		if other.ID == s.ID && s.ID != 0 {
			continue
		}
		if s.ConflictsWith(other) {
			return other, true
		}
	}
	return GroupSession{}, false
}
