// Package seed loads and generates bootstrap data for a meet: schools,
// participant records and event registrations.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File permission constants.
const (
	filePermission = 0600
)

// ErrEmptyFile is returned when a seed file holds nothing to load.
var ErrEmptyFile = errors.New("seed file is empty")

// File is the YAML layout of a seed file.
type File struct {
	Schools       []string       `yaml:"schools"`
	Participants  []Participant  `yaml:"participants"`
	Registrations []Registration `yaml:"registrations"`
}

// Participant is one registration-time identity record.
type Participant struct {
	ClearID            string    `yaml:"clearId,omitempty"`
	FullName           string    `yaml:"fullName"`
	RegistrationNumber string    `yaml:"registrationNumber"`
	InstitutionalEmail string    `yaml:"institutionalEmail"`
	SchoolShort        string    `yaml:"schoolShort"`
	ClassSection       string    `yaml:"classSection,omitempty"`
	DepartmentShort    string    `yaml:"departmentShort,omitempty"`
	Gender             string    `yaml:"gender,omitempty"`
	ChestNumber        string    `yaml:"chestNumber,omitempty"`
	CreatedAt          time.Time `yaml:"createdAt,omitempty"`
}

// Registration links a participant record to an event.
type Registration struct {
	EventID    string `yaml:"eventId"`
	ClearID    string `yaml:"clearId"`
	EventName  string `yaml:"eventName,omitempty"`
	Category   string `yaml:"category,omitempty"`
	Attendance bool   `yaml:"attendance,omitempty"`
}

// Empty reports whether f has nothing to load.
func (f File) Empty() bool {
	return len(f.Schools) == 0 && len(f.Participants) == 0 && len(f.Registrations) == 0
}

// Read decodes a seed file. Unknown keys are rejected so typos surface.
func Read(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, ErrEmptyFile
		}
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}
	if f.Empty() {
		return File{}, ErrEmptyFile
	}
	return f, nil
}

// ReadFile decodes the seed file at path.
func ReadFile(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open seed file: %w", err)
	}
	defer fh.Close()
	return Read(fh)
}

// Write encodes f as YAML.
func Write(w io.Writer, f File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode seed file: %w", err)
	}
	return enc.Close()
}

// WriteFile encodes f into path, replacing any existing file.
func WriteFile(path string, f File) error {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("create seed file: %w", err)
	}
	if err := Write(fh, f); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
