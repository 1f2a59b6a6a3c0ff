package repository

import (
	"time"

	"github.com/okian/sportsmeet/internal/domain/model"
)

// Attribute names. They match the tables of the deployed DynamoDB schema.
const (
	attrEventID     = "EventID"
	attrPositionID  = "PositionID"
	attrEventName   = "EventName"
	attrEventType   = "EventType"
	attrPosition    = "Position"
	attrChestNo     = "ChestNo"
	attrStudentName = "StudentName"
	attrTeamName    = "TeamName"
	attrSchoolName  = "SchoolName"
	attrPoints      = "Points"
	attrRecordedAt  = "RecordedAt"
	attrTotal       = "TotalWinnersRecorded"

	attrClearID      = "clearId"
	attrFullName     = "fullName"
	attrRegNumber    = "registrationNumber"
	attrEmail        = "institutionalEmail"
	attrSchoolShort  = "schoolShort"
	attrClassSection = "classSection"
	attrDepartment   = "departmentShort"
	attrGender       = "gender"
	attrChestNumber  = "chestNumber"
	attrCreatedAt    = "createdAt"

	attrRegEventID   = "eventId"
	attrPlayerID     = "playerClearId"
	attrRegEventName = "eventName"
	attrCategory     = "category"
	attrAttendance   = "attendance"
	attrUpdatedAt    = "updatedAt"
	attrMarkedAt     = "markedAt"

	attrSchoolID        = "SchoolID"
	attrSchoolCreatedAt = "CreatedAt"
)

// Tables groups the four sportsmeet tables.
type Tables struct {
	Scores        Table
	Participants  Table
	Registrations Table
	Schools       Table
}

// NewTables describes the tables under the given names.
func NewTables(scores, participants, registrations, schools string) Tables {
	return Tables{
		Scores:        Table{Name: scores, PartitionKey: attrEventID, SortKey: attrPositionID},
		Participants:  Table{Name: participants, PartitionKey: attrClearID},
		Registrations: Table{Name: registrations, PartitionKey: attrRegEventID, SortKey: attrPlayerID},
		Schools:       Table{Name: schools, PartitionKey: attrSchoolID},
	}
}

// DefaultTables uses the default table names.
func DefaultTables() Tables {
	return NewTables("Scores", "Users", "EventRegistrations", "Schools")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func timeValue(it Item, name string) time.Time {
	s := stringValue(it, name)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// setIf stores v under name unless it is the empty string.
func setIf(it Item, name, v string) {
	if v != "" {
		it[name] = v
	}
}

func scoreToItem(r model.ScoreRecord) Item {
	it := Item{
		attrEventID:    r.EventID,
		attrPositionID: r.SlotID,
		attrEventName:  r.EventName,
		attrRecordedAt: formatTime(r.RecordedAt),
	}
	setIf(it, attrEventType, string(r.EventType))
	if r.Position > 0 {
		it[attrPosition] = r.Position
	}
	setIf(it, attrChestNo, r.ChestNo)
	setIf(it, attrStudentName, r.StudentName)
	setIf(it, attrTeamName, r.TeamName)
	setIf(it, attrSchoolName, r.SchoolName)
	if r.Points != nil {
		it[attrPoints] = *r.Points
	}
	if r.TotalWinnersRecorded > 0 {
		it[attrTotal] = r.TotalWinnersRecorded
	}
	return it
}

func scoreFromItem(it Item) model.ScoreRecord {
	r := model.ScoreRecord{
		EventID:     stringValue(it, attrEventID),
		SlotID:      stringValue(it, attrPositionID),
		EventName:   stringValue(it, attrEventName),
		EventType:   model.EventType(stringValue(it, attrEventType)),
		ChestNo:     stringValue(it, attrChestNo),
		StudentName: stringValue(it, attrStudentName),
		TeamName:    stringValue(it, attrTeamName),
		SchoolName:  stringValue(it, attrSchoolName),
		RecordedAt:  timeValue(it, attrRecordedAt),
	}
	r.Position, _ = intValue(it, attrPosition)
	r.TotalWinnersRecorded, _ = intValue(it, attrTotal)
	if p, ok := intValue(it, attrPoints); ok {
		r.Points = &p
	}
	return r
}

func participantToItem(p model.Participant) Item {
	it := Item{
		attrClearID:   p.ClearID,
		attrFullName:  p.FullName,
		attrRegNumber: p.RegistrationNumber,
		attrEmail:     p.InstitutionalEmail,
		attrCreatedAt: formatTime(p.CreatedAt),
	}
	setIf(it, attrSchoolShort, p.SchoolShort)
	setIf(it, attrClassSection, p.ClassSection)
	setIf(it, attrDepartment, p.DepartmentShort)
	setIf(it, attrGender, p.Gender)
	setIf(it, attrChestNumber, p.ChestNumber)
	return it
}

func participantFromItem(it Item) model.Participant {
	return model.Participant{
		ClearID:            stringValue(it, attrClearID),
		FullName:           stringValue(it, attrFullName),
		RegistrationNumber: stringValue(it, attrRegNumber),
		InstitutionalEmail: stringValue(it, attrEmail),
		SchoolShort:        stringValue(it, attrSchoolShort),
		ClassSection:       stringValue(it, attrClassSection),
		DepartmentShort:    stringValue(it, attrDepartment),
		Gender:             stringValue(it, attrGender),
		ChestNumber:        stringValue(it, attrChestNumber),
		CreatedAt:          timeValue(it, attrCreatedAt),
	}
}

func registrationToItem(r model.Registration) Item {
	it := Item{
		attrRegEventID: r.EventID,
		attrPlayerID:   r.PlayerClearID,
		attrAttendance: r.Attendance,
		attrCreatedAt:  formatTime(r.CreatedAt),
		attrUpdatedAt:  formatTime(r.UpdatedAt),
	}
	setIf(it, attrRegEventName, r.EventName)
	setIf(it, attrCategory, r.Category)
	setIf(it, attrChestNumber, r.ChestNumber)
	setIf(it, attrMarkedAt, formatTime(r.MarkedAt))
	return it
}

func registrationFromItem(it Item) model.Registration {
	return model.Registration{
		EventID:       stringValue(it, attrRegEventID),
		PlayerClearID: stringValue(it, attrPlayerID),
		EventName:     stringValue(it, attrRegEventName),
		Category:      stringValue(it, attrCategory),
		Attendance:    boolValue(it, attrAttendance),
		ChestNumber:   stringValue(it, attrChestNumber),
		CreatedAt:     timeValue(it, attrCreatedAt),
		UpdatedAt:     timeValue(it, attrUpdatedAt),
		MarkedAt:      timeValue(it, attrMarkedAt),
	}
}

func schoolToItem(s model.School) Item {
	return Item{
		attrSchoolID:        s.SchoolID,
		attrSchoolName:      s.SchoolName,
		attrSchoolCreatedAt: formatTime(s.CreatedAt),
	}
}

func schoolFromItem(it Item) model.School {
	return model.School{
		SchoolID:   stringValue(it, attrSchoolID),
		SchoolName: stringValue(it, attrSchoolName),
		CreatedAt:  timeValue(it, attrSchoolCreatedAt),
	}
}
