package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/okian/sportsmeet/internal/domain/model"
)

// Scores reads and writes score records.
type Scores struct {
	store Store
	table Table
}

// NewScores binds the score table of store.
func NewScores(store Store, t Table) *Scores { return &Scores{store: store, table: t} }

// Slots returns every slot of an event ordered by slot id.
func (r *Scores) Slots(ctx context.Context, eventID string) ([]model.ScoreRecord, error) {
	items, err := r.store.Query(ctx, r.table, eventID, "")
	if err != nil {
		return nil, err
	}
	return scoresFrom(items), nil
}

// All returns every score record, metadata included.
func (r *Scores) All(ctx context.Context) ([]model.ScoreRecord, error) {
	items, err := r.store.Scan(ctx, r.table, nil)
	if err != nil {
		return nil, err
	}
	return scoresFrom(items), nil
}

// Get returns ErrNotFound when the slot is empty.
func (r *Scores) Get(ctx context.Context, eventID, slotID string) (model.ScoreRecord, error) {
	it, err := r.store.Get(ctx, r.table, Key{Partition: eventID, Sort: slotID})
	if err != nil {
		return model.ScoreRecord{}, err
	}
	return scoreFromItem(it), nil
}

// BatchPut writes up to MaxBatchSize records and returns how many the store
// left unprocessed.
func (r *Scores) BatchPut(ctx context.Context, recs []model.ScoreRecord) (int, error) {
	items := make([]Item, len(recs))
	for i, rec := range recs {
		items[i] = scoreToItem(rec)
	}
	unprocessed, err := r.store.BatchWrite(ctx, r.table, items)
	if err != nil {
		return 0, err
	}
	return len(unprocessed), nil
}

// Put writes one record. exists selects the guard: true requires the slot to
// be occupied, false requires it to be free, nil writes unconditionally.
func (r *Scores) Put(ctx context.Context, rec model.ScoreRecord, exists *bool) error {
	return r.store.Put(ctx, r.table, scoreToItem(rec), existence(exists)...)
}

// Delete removes a slot. With mustExist a missing slot is ErrConditionFailed.
func (r *Scores) Delete(ctx context.Context, eventID, slotID string, mustExist bool) error {
	var conds []Condition
	if mustExist {
		conds = append(conds, MustExist())
	}
	return r.store.Delete(ctx, r.table, Key{Partition: eventID, Sort: slotID}, conds...)
}

// DeleteMatching removes a winner slot only when the stored chest number,
// student and school equal the given values exactly.
func (r *Scores) DeleteMatching(ctx context.Context, eventID, slotID, chestNo, studentName, schoolName string) error {
	return r.store.Delete(ctx, r.table, Key{Partition: eventID, Sort: slotID}, AttributesEqual(map[string]any{
		attrChestNo:     chestNo,
		attrStudentName: studentName,
		attrSchoolName:  schoolName,
	}))
}

// CountBySchool counts winner and team records crediting schoolName.
func (r *Scores) CountBySchool(ctx context.Context, schoolName string) (int, error) {
	items, err := r.store.Scan(ctx, r.table, func(it Item) bool {
		return stringValue(it, attrSchoolName) == schoolName && stringValue(it, attrPositionID) != "METADATA"
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func scoresFrom(items []Item) []model.ScoreRecord {
	out := make([]model.ScoreRecord, len(items))
	for i, it := range items {
		out[i] = scoreFromItem(it)
	}
	return out
}

func existence(exists *bool) []Condition {
	switch {
	case exists == nil:
		return nil
	case *exists:
		return []Condition{MustExist()}
	default:
		return []Condition{MustNotExist()}
	}
}

// Participants reads and writes participant records.
type Participants struct {
	store Store
	table Table
}

// NewParticipants binds the participant table of store.
func NewParticipants(store Store, t Table) *Participants {
	return &Participants{store: store, table: t}
}

// Get returns ErrNotFound for an unknown clearId.
func (r *Participants) Get(ctx context.Context, clearID string) (model.Participant, error) {
	it, err := r.store.Get(ctx, r.table, Key{Partition: clearID})
	if err != nil {
		return model.Participant{}, err
	}
	return participantFromItem(it), nil
}

// Put writes a participant unconditionally.
func (r *Participants) Put(ctx context.Context, p model.Participant) error {
	return r.store.Put(ctx, r.table, participantToItem(p))
}

// FindByEmail scans for records with the email, compared case-insensitively.
func (r *Participants) FindByEmail(ctx context.Context, email string) ([]model.Participant, error) {
	email = strings.TrimSpace(email)
	return r.find(ctx, func(it Item) bool {
		return strings.EqualFold(strings.TrimSpace(stringValue(it, attrEmail)), email)
	})
}

// FindByRegistrationNumber scans for records with the registration number.
func (r *Participants) FindByRegistrationNumber(ctx context.Context, reg string) ([]model.Participant, error) {
	reg = strings.TrimSpace(reg)
	return r.find(ctx, func(it Item) bool {
		return strings.TrimSpace(stringValue(it, attrRegNumber)) == reg
	})
}

func (r *Participants) find(ctx context.Context, f Filter) ([]model.Participant, error) {
	items, err := r.store.Scan(ctx, r.table, f)
	if err != nil {
		return nil, err
	}
	out := make([]model.Participant, len(items))
	for i, it := range items {
		out[i] = participantFromItem(it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClearID < out[j].ClearID })
	return out, nil
}

// SetChestNumber updates the chest number of one existing participant.
func (r *Participants) SetChestNumber(ctx context.Context, clearID, chest string) (model.Participant, error) {
	it, err := r.store.Update(ctx, r.table, Key{Partition: clearID},
		map[string]any{attrChestNumber: chest}, MustExist())
	if err != nil {
		return model.Participant{}, err
	}
	return participantFromItem(it), nil
}

// Registrations reads and writes event registrations.
type Registrations struct {
	store Store
	table Table
}

// NewRegistrations binds the registration table of store.
func NewRegistrations(store Store, t Table) *Registrations {
	return &Registrations{store: store, table: t}
}

// Get returns ErrNotFound when the participant is not registered.
func (r *Registrations) Get(ctx context.Context, eventID, clearID string) (model.Registration, error) {
	it, err := r.store.Get(ctx, r.table, Key{Partition: eventID, Sort: clearID})
	if err != nil {
		return model.Registration{}, err
	}
	return registrationFromItem(it), nil
}

// Put writes a registration unconditionally.
func (r *Registrations) Put(ctx context.Context, reg model.Registration) error {
	return r.store.Put(ctx, r.table, registrationToItem(reg))
}

// ByEvent lists the registrations of one event.
func (r *Registrations) ByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	items, err := r.store.Query(ctx, r.table, eventID, "")
	if err != nil {
		return nil, err
	}
	return registrationsFrom(items), nil
}

// ByParticipants lists the registrations of any of the given clearIds.
func (r *Registrations) ByParticipants(ctx context.Context, clearIDs []string) ([]model.Registration, error) {
	want := make(map[string]bool, len(clearIDs))
	for _, id := range clearIDs {
		want[id] = true
	}
	items, err := r.store.Scan(ctx, r.table, func(it Item) bool {
		return want[stringValue(it, attrPlayerID)]
	})
	if err != nil {
		return nil, err
	}
	return registrationsFrom(items), nil
}

// All returns every registration.
func (r *Registrations) All(ctx context.Context) ([]model.Registration, error) {
	items, err := r.store.Scan(ctx, r.table, nil)
	if err != nil {
		return nil, err
	}
	return registrationsFrom(items), nil
}

// SetAttendance flips the attendance flag of an existing registration.
func (r *Registrations) SetAttendance(ctx context.Context, eventID, clearID string, attended bool, at time.Time) error {
	fields := map[string]any{
		attrAttendance: attended,
		attrUpdatedAt:  formatTime(at),
	}
	if attended {
		fields[attrMarkedAt] = formatTime(at)
	}
	_, err := r.store.Update(ctx, r.table, Key{Partition: eventID, Sort: clearID}, fields, MustExist())
	return err
}

func registrationsFrom(items []Item) []model.Registration {
	out := make([]model.Registration, len(items))
	for i, it := range items {
		out[i] = registrationFromItem(it)
	}
	return out
}

// Schools reads and writes school records.
type Schools struct {
	store Store
	table Table
}

// NewSchools binds the school table of store.
func NewSchools(store Store, t Table) *Schools { return &Schools{store: store, table: t} }

// Create fails with ErrConditionFailed when the school id is taken.
func (r *Schools) Create(ctx context.Context, s model.School) error {
	return r.store.Put(ctx, r.table, schoolToItem(s), MustNotExist())
}

// List returns every school ordered by name.
func (r *Schools) List(ctx context.Context) ([]model.School, error) {
	items, err := r.store.Scan(ctx, r.table, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.School, len(items))
	for i, it := range items {
		out[i] = schoolFromItem(it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SchoolName < out[j].SchoolName })
	return out, nil
}

// Delete fails with ErrConditionFailed when the school does not exist.
func (r *Schools) Delete(ctx context.Context, schoolID string) error {
	return r.store.Delete(ctx, r.table, Key{Partition: schoolID}, MustExist())
}
