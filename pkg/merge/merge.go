// Package merge folds freshly observed assignments into the set of stored
// records. It is pure over its inputs; persisting the result is the store's
// job.
package merge

import (
	"github.com/harrisonrobin/lmsync/pkg/model"
)

// Result reports what a merge did.
type Result struct {
	Records []model.AssignmentRecord
	Created int
	Updated int
	Dropped int // observations with no derivable id
}

// Merge combines stored records with a batch of observations, keyed by id.
// Observations win for every field they actually provide; fields a scrape
// omitted keep their stored values so a partial scrape can never regress a
// record. Running the same batch twice converges to the same content apart
// from LastUpdatedAt.
func Merge(existing map[string]model.AssignmentRecord, batch []model.Observation, now model.Clock) Result {
	out := make(map[string]model.AssignmentRecord, len(existing)+len(batch))
	for id, rec := range existing {
		out[id] = rec
	}

	var res Result
	for _, obs := range batch {
		if obs.ID == "" {
			res.Dropped++
			continue
		}
		if rec, ok := out[obs.ID]; ok {
			apply(&rec, obs)
			rec.LastUpdatedAt = now()
			out[obs.ID] = rec
			res.Updated++
			continue
		}
		rec := newRecord(obs, now)
		out[obs.ID] = rec
		res.Created++
	}

	res.Records = make([]model.AssignmentRecord, 0, len(out))
	for _, rec := range out {
		res.Records = append(res.Records, rec)
	}
	return res
}

// apply overwrites only the fields the observation provides. Sync-relevant
// fields (RemoteTaskID, LastSyncedAt, AddedAt) are never touched here.
func apply(rec *model.AssignmentRecord, obs model.Observation) {
	if obs.Title != "" {
		rec.Title = obs.Title
	}
	if obs.RawTitle != "" {
		rec.RawTitle = obs.RawTitle
	}
	if obs.Course != "" {
		rec.Course = obs.Course
	}
	if obs.CourseCode != "" {
		rec.CourseCode = obs.CourseCode
	}
	if obs.ActivityType != "" {
		rec.ActivityType = obs.ActivityType
	}
	if obs.DueDate != "" {
		rec.DueDate = obs.DueDate
	}
	if obs.OpeningDate != "" {
		rec.OpeningDate = obs.OpeningDate
	}
	if obs.Status != "" {
		rec.Status = obs.Status
	}
	if obs.OriginURL != "" {
		rec.OriginURL = obs.OriginURL
	}
	if obs.Source != "" {
		rec.Source = obs.Source
	}
}

func newRecord(obs model.Observation, now model.Clock) model.AssignmentRecord {
	ts := now()
	rec := model.AssignmentRecord{
		ID:           obs.ID,
		Title:        obs.Title,
		RawTitle:     obs.RawTitle,
		Course:       obs.Course,
		CourseCode:   obs.CourseCode,
		ActivityType: obs.ActivityType,
		DueDate:      obs.DueDate,
		OpeningDate:  obs.OpeningDate,
		Status:       obs.Status,
		OriginURL:    obs.OriginURL,
		Source:       obs.Source,

		AddedAt:       ts,
		LastUpdatedAt: ts,
	}
	if rec.Title == "" {
		rec.Title = "Unknown Assignment"
	}
	if rec.Status == "" {
		rec.Status = model.StatusPending
	}
	if rec.ActivityType == "" {
		rec.ActivityType = model.ActivityAssignment
	}
	if rec.DueDate == "" {
		rec.DueDate = model.NoDueDate
	}
	if rec.OpeningDate == "" {
		rec.OpeningDate = model.NoOpeningDate
	}
	return rec
}
