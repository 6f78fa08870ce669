package ingest

import (
	"context"
	"hash/fnv"
	"time"

	"training-load-engine/internal/apperr"
	"training-load-engine/internal/store"
)

// restDayActivityID derives a deterministic negative activity id from an
// athlete id and calendar date, so two athletes' rest days on the same date
// never collide and the same (athlete, date) always maps to the same id.
func restDayActivityID(athleteID int64, date string) int64 {
	h := fnv.New64a()
	h.Write([]byte(date))
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(athleteID >> (8 * i))
	}
	h.Write(buf[:])
	sum := h.Sum64()
	// Force strictly negative, and avoid 0 (ActivityID < 0 is the contract).
	v := int64(sum & 0x7FFFFFFFFFFFFFFF)
	if v == 0 {
		v = 1
	}
	return -v
}

// BackfillRestDays inserts a synthetic rest-day row for every past date in
// [from, to] (inclusive, athlete-local) that has no row yet. Only dates
// strictly before the current local date are filled; today is excluded,
// since a day still in progress may yet have an activity posted to it.
func (p *Pipeline) BackfillRestDays(ctx context.Context, athleteID int64, from, to time.Time, loc *time.Location) (int, error) {
	today := time.Now().In(loc).Format("2006-01-02")
	filled := 0

	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format("2006-01-02")
		if dateStr >= today {
			continue
		}

		has, err := p.Store.HasRowForDate(ctx, athleteID, dateStr)
		if err != nil {
			return filled, apperr.New(apperr.KindDatabase, "ingest.BackfillRestDays", err)
		}
		if has {
			continue
		}

		restDay := &store.Activity{
			AthleteID:   athleteID,
			ActivityID:  restDayActivityID(athleteID, dateStr),
			Date:        dateStr,
			Name:        "Rest Day",
			Sport:       store.SportRest,
			TRIMPMethod: store.TRIMPMethodRestDay,
		}
		if err := p.Store.InsertActivity(ctx, restDay); err != nil {
			// A concurrent sync may have just filled this date; swallow the
			// race the same way a double-insert of a real activity is swallowed.
			continue
		}
		filled++
	}

	return filled, nil
}
