// Package results records, corrects and removes event winners.
package results

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/okian/sportsmeet/internal/adapters/repository"
	"github.com/okian/sportsmeet/internal/domain/errs"
	"github.com/okian/sportsmeet/internal/domain/keys"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/internal/domain/scoring"
	"github.com/okian/sportsmeet/pkg/logger"
	"github.com/okian/sportsmeet/pkg/metrics"
)

// Store is the slice of the score table the recorder uses.
type Store interface {
	Slots(ctx context.Context, eventID string) ([]model.ScoreRecord, error)
	Get(ctx context.Context, eventID, slotID string) (model.ScoreRecord, error)
	BatchPut(ctx context.Context, recs []model.ScoreRecord) (int, error)
	Put(ctx context.Context, rec model.ScoreRecord, exists *bool) error
	Delete(ctx context.Context, eventID, slotID string, mustExist bool) error
	DeleteMatching(ctx context.Context, eventID, slotID, chestNo, studentName, schoolName string) error
}

// Recorder writes winner and team slots.
type Recorder struct {
	scores   Store
	points   *scoring.Table
	maxItems int
	now      func() time.Time
	log      logger.Logger
}

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMaxItems caps the items one submission may write, metadata included.
func WithMaxItems(n int) Option {
	return func(r *Recorder) {
		if n > 0 && n <= repository.MaxBatchSize {
			r.maxItems = n
		}
	}
}

// WithPoints sets the table used to report resolved points.
func WithPoints(t *scoring.Table) Option {
	return func(r *Recorder) {
		if t != nil {
			r.points = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRecorder creates a Recorder over the score table.
func NewRecorder(scores Store, opts ...Option) *Recorder {
	r := &Recorder{
		scores:   scores,
		points:   scoring.NewTable(),
		maxItems: repository.MaxBatchSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("results")
	}
	return r
}

// Winner is one individual placing.
type Winner struct {
	Position int
	ChestNo  string
	Name     string
	School   string
	// Points overrides the position table when set.
	Points *int
}

// TeamEntry is the single result of a team submission.
type TeamEntry struct {
	TeamName string
	School   string
	Points   int
}

// Submission is a batch of results for one event.
type Submission struct {
	EventType model.EventType
	EventName string
	Winners   []Winner
	Team      *TeamEntry
}

// Entry describes one written slot.
type Entry struct {
	SlotID   string `json:"slotId"`
	Position int    `json:"position,omitempty"`
	Name     string `json:"name"`
	School   string `json:"school"`
	Points   int    `json:"points"`
}

// SubmitResult reports what a submission wrote.
type SubmitResult struct {
	EventID    string  `json:"eventId"`
	ItemsSaved int     `json:"itemsSaved"`
	Metadata   bool    `json:"metadataWritten"`
	Entries    []Entry `json:"entries"`
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func validEventName(op, name string) error {
	if blank(name) {
		return errs.Validation(op, "eventName is required")
	}
	if keys.Normalize(name) == "" {
		return errs.Validation(op, "eventName %q has no letters or digits", name)
	}
	return nil
}

func (s Submission) validate(op string) error {
	if !s.EventType.Valid() {
		return errs.Validation(op, "eventType must be %q or %q", model.EventIndividual, model.EventTeam)
	}
	if err := validEventName(op, s.EventName); err != nil {
		return err
	}
	if s.EventType == model.EventTeam {
		switch {
		case s.Team == nil:
			return errs.Validation(op, "teamEntry is required for team events")
		case blank(s.Team.TeamName) || blank(s.Team.School):
			return errs.Validation(op, "teamEntry needs teamName and school")
		case s.Team.Points <= 0:
			return errs.Validation(op, "team points must be greater than 0")
		}
		return nil
	}
	if len(s.Winners) == 0 {
		return errs.Validation(op, "at least one winner is required")
	}
	for i, w := range s.Winners {
		if blank(w.ChestNo) || blank(w.Name) || blank(w.School) {
			return errs.Validation(op, "winner %d needs chestNo, name and school", i+1)
		}
		if w.Position < 1 {
			return errs.Validation(op, "winner %d has invalid position %d", i+1, w.Position)
		}
		if w.Points != nil && *w.Points < 0 {
			return errs.Validation(op, "winner %d has negative points", i+1)
		}
	}
	return nil
}

// occupancy indexes the slots an event already holds.
type occupancy struct {
	positions map[int]map[int]bool
	teams     map[int]bool
	metadata  bool
	results   int
}

func occupancyOf(recs []model.ScoreRecord) occupancy {
	o := occupancy{positions: make(map[int]map[int]bool), teams: make(map[int]bool)}
	for _, rec := range recs {
		slot := keys.ParseSlot(rec.SlotID)
		switch slot.Kind {
		case keys.SlotMetadata:
			o.metadata = true
		case keys.SlotPosition:
			o.suffixes(slot.Number)[slot.Suffix] = true
			o.results++
		case keys.SlotTeam:
			o.teams[slot.Number] = true
			o.results++
		}
	}
	return o
}

func (o occupancy) suffixes(position int) map[int]bool {
	used, ok := o.positions[position]
	if !ok {
		used = make(map[int]bool)
		o.positions[position] = used
	}
	return used
}

// Submit appends the submitted results to the event. Resubmitting the same
// winners appends new suffixed slots; existing slots are never overwritten.
func (r *Recorder) Submit(ctx context.Context, in Submission) (res SubmitResult, err error) {
	const op = "results.submit"
	defer func() {
		metrics.RecordScoreSubmission(string(in.EventType), metrics.Outcome(err, errs.IsCallerError), res.ItemsSaved)
	}()

	if err := in.validate(op); err != nil {
		return SubmitResult{}, err
	}
	eventName := strings.TrimSpace(in.EventName)
	eventID := keys.EventID(eventName)

	existing, err := r.scores.Slots(ctx, eventID)
	if err != nil {
		return SubmitResult{}, errs.Wrap(op, err)
	}
	occ := occupancyOf(existing)
	now := r.now().UTC()

	var recs []model.ScoreRecord
	if in.EventType == model.EventTeam {
		n := keys.NextFreeSlot(occ.teams, 1)
		pts := in.Team.Points
		recs = append(recs, model.ScoreRecord{
			EventID:    eventID,
			SlotID:     keys.TeamSlot(n),
			EventName:  eventName,
			EventType:  model.EventTeam,
			TeamName:   strings.TrimSpace(in.Team.TeamName),
			SchoolName: strings.TrimSpace(in.Team.School),
			Points:     &pts,
			RecordedAt: now,
		})
	} else {
		for _, w := range in.Winners {
			used := occ.suffixes(w.Position)
			suffix := keys.NextFreeSlot(used, 0)
			used[suffix] = true
			recs = append(recs, model.ScoreRecord{
				EventID:     eventID,
				SlotID:      keys.PositionSlotWithSuffix(w.Position, suffix),
				EventName:   eventName,
				EventType:   model.EventIndividual,
				Position:    w.Position,
				ChestNo:     strings.TrimSpace(w.ChestNo),
				StudentName: strings.TrimSpace(w.Name),
				SchoolName:  strings.TrimSpace(w.School),
				Points:      w.Points,
				RecordedAt:  now,
			})
		}
	}

	writes := recs
	metadata := occ.results == 0 && !occ.metadata
	if metadata {
		writes = append([]model.ScoreRecord{{
			EventID:              eventID,
			SlotID:               keys.MetadataSlot,
			EventName:            eventName,
			EventType:            in.EventType,
			TotalWinnersRecorded: len(recs),
			RecordedAt:           now,
		}}, recs...)
	}
	if len(writes) > r.maxItems {
		return SubmitResult{}, errs.Newf(op, errs.ErrPreconditionFailed,
			"%s: %d items exceed the limit of %d per submission", errs.ReasonTooManyEntries, len(writes), r.maxItems)
	}

	unprocessed, err := r.scores.BatchPut(ctx, writes)
	if err != nil {
		return SubmitResult{}, errs.Wrap(op, err)
	}

	res = SubmitResult{
		EventID:    eventID,
		ItemsSaved: len(writes) - unprocessed,
		Metadata:   metadata,
		Entries:    make([]Entry, 0, len(recs)),
	}
	for _, rec := range recs {
		name := rec.StudentName
		if rec.EventType == model.EventTeam {
			name = rec.TeamName
		}
		res.Entries = append(res.Entries, Entry{
			SlotID:   rec.SlotID,
			Position: rec.Position,
			Name:     name,
			School:   rec.SchoolName,
			Points:   r.points.Points(rec),
		})
	}

	if unprocessed > 0 {
		metrics.RecordScorePartialFailure()
		r.log.Warn(ctx, "score batch partially written",
			logger.String("event_id", eventID),
			logger.Int("saved", res.ItemsSaved),
			logger.Int("unprocessed", unprocessed))
		return res, errs.Partial(op, res.ItemsSaved, len(writes))
	}

	r.log.Info(ctx, "scores recorded",
		logger.String("event_id", eventID),
		logger.String("event_type", string(in.EventType)),
		logger.Int("items", len(writes)),
		logger.Bool("metadata", metadata))
	return res, nil
}

// Edit describes a correction of one winner slot.
type Edit struct {
	EventID    string
	PositionID string

	EventName   string
	Position    int
	ChestNo     string
	StudentName string
	SchoolName  string
	// Points replaces the explicit points. When nil an unchanged position
	// keeps its points and a moved winner falls back to the position table.
	Points *int
}

func (e Edit) validate(op string) error {
	if blank(e.EventID) || blank(e.PositionID) {
		return errs.Validation(op, "eventId and positionId are required")
	}
	if blank(e.ChestNo) || blank(e.StudentName) || blank(e.SchoolName) {
		return errs.Validation(op, "chestNo, studentName and schoolName are required")
	}
	if e.Position < 1 {
		return errs.Validation(op, "position must be at least 1")
	}
	if e.Points != nil && *e.Points < 0 {
		return errs.Validation(op, "points must not be negative")
	}
	if keys.ParseSlot(e.PositionID).Kind != keys.SlotPosition {
		return errs.Validation(op, "positionId %q is not a winner slot", e.PositionID)
	}
	return validEventName(op, e.EventName)
}

// Edit rewrites a winner. When the event or position changes the record
// moves to the bare slot of the new position: the destination must be free
// or hold the same chest number, then the old slot is deleted and the new
// one written.
func (r *Recorder) Edit(ctx context.Context, in Edit) (rec model.ScoreRecord, err error) {
	const op = "results.edit"
	defer func() { metrics.RecordWinnerEdit(metrics.Outcome(err, errs.IsCallerError)) }()

	if err := in.validate(op); err != nil {
		return model.ScoreRecord{}, err
	}
	eventNotFound := errs.Newf(op, errs.ErrNotFound, "%s: no winner at %s %s",
		errs.ReasonEventNotFound, in.EventID, in.PositionID)

	old, err := r.scores.Get(ctx, in.EventID, in.PositionID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.ScoreRecord{}, eventNotFound
	}
	if err != nil {
		return model.ScoreRecord{}, errs.Wrap(op, err)
	}

	eventName := strings.TrimSpace(in.EventName)
	newEventID := keys.EventID(eventName)
	oldSlot := keys.ParseSlot(old.SlotID)
	moved := newEventID != old.EventID || in.Position != oldSlot.Number

	rec = old
	rec.EventID = newEventID
	rec.EventName = eventName
	rec.EventType = old.EventType.OrIndividual()
	rec.Position = in.Position
	rec.ChestNo = strings.TrimSpace(in.ChestNo)
	rec.StudentName = strings.TrimSpace(in.StudentName)
	rec.SchoolName = strings.TrimSpace(in.SchoolName)
	rec.RecordedAt = r.now().UTC()
	switch {
	case in.Points != nil:
		rec.Points = in.Points
	case moved:
		rec.Points = nil
	}

	if !moved {
		exists := true
		if err := r.scores.Put(ctx, rec, &exists); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return model.ScoreRecord{}, eventNotFound
			}
			return model.ScoreRecord{}, errs.Wrap(op, err)
		}
		r.log.Info(ctx, "winner updated in place",
			logger.String("event_id", rec.EventID), logger.String("slot_id", rec.SlotID))
		return rec, nil
	}

	rec.SlotID = keys.PositionSlot(in.Position)
	dest, err := r.scores.Get(ctx, rec.EventID, rec.SlotID)
	switch {
	case err == nil && dest.ChestNo != rec.ChestNo:
		return model.ScoreRecord{}, errs.Newf(op, errs.ErrConflict, "%s: %s %s is held by chest number %s",
			errs.ReasonPositionTaken, rec.EventID, rec.SlotID, dest.ChestNo)
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return model.ScoreRecord{}, errs.Wrap(op, err)
	}

	destSlots, err := r.scores.Slots(ctx, rec.EventID)
	if err != nil {
		return model.ScoreRecord{}, errs.Wrap(op, err)
	}
	destOcc := occupancyOf(destSlots)

	if err := r.scores.Delete(ctx, old.EventID, old.SlotID, true); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return model.ScoreRecord{}, eventNotFound
		}
		return model.ScoreRecord{}, errs.Wrap(op, err)
	}
	if err := r.scores.Put(ctx, rec, nil); err != nil {
		r.log.Error(ctx, "winner removed from old slot but not written to new slot",
			logger.String("old_event_id", old.EventID), logger.String("old_slot_id", old.SlotID),
			logger.String("event_id", rec.EventID), logger.String("slot_id", rec.SlotID), logger.Error(err))
		return model.ScoreRecord{}, errs.Wrap(op, err)
	}

	if rec.EventID != old.EventID {
		if destOcc.results == 0 && !destOcc.metadata {
			meta := model.ScoreRecord{
				EventID:              rec.EventID,
				SlotID:               keys.MetadataSlot,
				EventName:            rec.EventName,
				EventType:            rec.EventType,
				TotalWinnersRecorded: 1,
				RecordedAt:           rec.RecordedAt,
			}
			if err := r.scores.Put(ctx, meta, nil); err != nil {
				r.log.Warn(ctx, "metadata not written for moved winner",
					logger.String("event_id", rec.EventID), logger.Error(err))
			}
		}
		r.pruneMetadata(ctx, old.EventID)
	}

	r.log.Info(ctx, "winner moved",
		logger.String("from", old.EventID+"/"+old.SlotID),
		logger.String("to", rec.EventID+"/"+rec.SlotID))
	return rec, nil
}

// Removal identifies the winner to delete. Every detail must match the
// stored record exactly.
type Removal struct {
	EventName   string
	Position    int
	ChestNo     string
	StudentName string
	SchoolName  string
	// PositionID addresses a suffixed slot such as POS#01_1. Empty means the
	// bare slot of Position.
	PositionID string
}

func (rm Removal) validate(op string) error {
	if err := validEventName(op, rm.EventName); err != nil {
		return err
	}
	if rm.Position < 1 {
		return errs.Validation(op, "position must be at least 1")
	}
	if blank(rm.ChestNo) || blank(rm.StudentName) || blank(rm.SchoolName) {
		return errs.Validation(op, "chestNo, studentName and schoolName are required")
	}
	if rm.PositionID != "" {
		slot := keys.ParseSlot(rm.PositionID)
		if slot.Kind != keys.SlotPosition || slot.Number != rm.Position {
			return errs.Validation(op, "positionId %q does not belong to position %d", rm.PositionID, rm.Position)
		}
	}
	return nil
}

// Delete removes a winner slot when the chest number, student and school all
// match. A mismatch leaves the record untouched and reports RecordNotFound.
func (r *Recorder) Delete(ctx context.Context, in Removal) (err error) {
	const op = "results.delete"
	defer func() { metrics.RecordWinnerDelete(metrics.Outcome(err, errs.IsCallerError)) }()

	if err := in.validate(op); err != nil {
		return err
	}
	eventID := keys.EventID(in.EventName)
	slotID := in.PositionID
	if slotID == "" {
		slotID = keys.PositionSlot(in.Position)
	}

	err = r.scores.DeleteMatching(ctx, eventID, slotID, in.ChestNo, in.StudentName, in.SchoolName)
	if errors.Is(err, repository.ErrConditionFailed) {
		return errs.Newf(op, errs.ErrNotFound, "%s: no winner at %s %s matches the given details",
			errs.ReasonRecordNotFound, eventID, slotID)
	}
	if err != nil {
		return errs.Wrap(op, err)
	}

	r.pruneMetadata(ctx, eventID)
	r.log.Info(ctx, "winner deleted", logger.String("event_id", eventID), logger.String("slot_id", slotID))
	return nil
}

// pruneMetadata removes the METADATA slot of an event left without results.
func (r *Recorder) pruneMetadata(ctx context.Context, eventID string) {
	slots, err := r.scores.Slots(ctx, eventID)
	if err != nil {
		r.log.Warn(ctx, "metadata check failed", logger.String("event_id", eventID), logger.Error(err))
		return
	}
	occ := occupancyOf(slots)
	if occ.results > 0 || !occ.metadata {
		return
	}
	if err := r.scores.Delete(ctx, eventID, keys.MetadataSlot, false); err != nil {
		r.log.Warn(ctx, "metadata not removed", logger.String("event_id", eventID), logger.Error(err))
	}
}
