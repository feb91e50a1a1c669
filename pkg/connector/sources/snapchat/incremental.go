package snapchat

// cursorTracker implements incremental sync over sliced streams. Records
// arrive grouped by slice and their cursor values are not ordered across
// slices, so comparing each slice against the state observed so far would
// drop records from later slices. Instead every record is filtered against
// the state persisted before the run, the maximum cursor value is tracked
// across all slices, and the new state is written only once after the final
// slice.
type cursorTracker struct {
	field    string
	prior    string // state persisted before the run, "" on first sync
	baseline string // floor for the new state when no prior state exists
	maxSeen  string
}

func newCursorTracker(field, prior, startDate string) *cursorTracker {
	return &cursorTracker{
		field:    field,
		prior:    prior,
		baseline: startDate,
	}
}

// Keep reports whether a record passes the incremental filter and folds its
// cursor value into the running maximum. Only records strictly newer than the
// pre-run state pass; on first sync everything passes.
func (t *cursorTracker) Keep(item map[string]interface{}) bool {
	value := asString(item[t.field])
	if t.prior != "" && value <= t.prior {
		return false
	}
	if value > t.maxSeen {
		t.maxSeen = value
	}
	return true
}

// State returns the cursor value to persist after the final slice: the
// maximum observed value, floored by the prior state or the configured start
// date. ISO-8601 timestamps in a common offset order lexicographically, which
// is the format the API emits.
func (t *cursorTracker) State() string {
	floor := t.prior
	if floor == "" {
		floor = t.baseline
	}
	if t.maxSeen > floor {
		return t.maxSeen
	}
	return floor
}
