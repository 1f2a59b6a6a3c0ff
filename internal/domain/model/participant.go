package model

import "time"

// Participant is one registration-time identity record. The same person may
// own several records that share a registration number or email.
type Participant struct {
	ClearID            string    `json:"clearId"`
	FullName           string    `json:"fullName"`
	RegistrationNumber string    `json:"registrationNumber"`
	InstitutionalEmail string    `json:"institutionalEmail"`
	SchoolShort        string    `json:"schoolShort"`
	ClassSection       string    `json:"classSection,omitempty"`
	DepartmentShort    string    `json:"departmentShort,omitempty"`
	Gender             string    `json:"gender,omitempty"`
	ChestNumber        string    `json:"chestNumber,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}
