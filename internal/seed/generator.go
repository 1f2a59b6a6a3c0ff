package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/okian/sportsmeet/internal/domain/keys"
	"github.com/okian/sportsmeet/internal/domain/model"
)

// Defaults for Generate.
const (
	DefaultSchools         = 6
	DefaultParticipants    = 120
	DefaultDuplicateRate   = 0.1
	DefaultEventsPerPerson = 2

	maxNameAttempts = 50
	emailDomain     = "school.edu"
)

var (
	schoolKinds = []string{"Public", "Model", "Central", "Memorial", "Higher Secondary"}
	sections    = []string{"A", "B", "C", "D"}
	departments = []string{"SCI", "COM", "HUM", "CS"}
	genders     = []string{"male", "female"}
	seedEpoch   = time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC)
)

// Options sizes a generated seed file.
type Options struct {
	Schools      int
	Participants int
	// DuplicateRate is the share of people that registered twice, once with
	// the same registration number and once with the same email.
	DuplicateRate   float64
	EventsPerPerson int
	Events          []model.CatalogEvent
}

func (o Options) withDefaults() Options {
	if o.Schools <= 0 {
		o.Schools = DefaultSchools
	}
	if o.Participants <= 0 {
		o.Participants = DefaultParticipants
	}
	if o.DuplicateRate < 0 {
		o.DuplicateRate = 0
	}
	if o.DuplicateRate > 1 {
		o.DuplicateRate = 1
	}
	if o.EventsPerPerson <= 0 {
		o.EventsPerPerson = DefaultEventsPerPerson
	}
	if len(o.Events) == 0 {
		o.Events = []model.CatalogEvent{{ID: "SIDI01", Name: "100m", Category: model.CategoryTrack}}
	}
	if o.EventsPerPerson > len(o.Events) {
		o.EventsPerPerson = len(o.Events)
	}
	return o
}

// Generator produces reproducible fake meets.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator. The same seed yields the same file.
func NewGenerator(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Generate builds a seed file with deliberate duplicate identities.
func (g *Generator) Generate(opts Options) File {
	opts = opts.withDefaults()

	f := File{Schools: g.schools(opts.Schools)}
	for i := range opts.Participants {
		p := g.participant(i, f.Schools)
		f.Participants = append(f.Participants, p)
		f.Registrations = append(f.Registrations, g.registrations(p.ClearID, opts)...)

		if g.faker.Float64Range(0, 1) >= opts.DuplicateRate {
			continue
		}
		// A second sign-up under a new record: same registration number with
		// a different email, then a third sharing only the email.
		byReg := p
		byReg.ClearID = clearID(i, "reg")
		byReg.InstitutionalEmail = g.email(p.FullName, i+opts.Participants)
		byReg.CreatedAt = p.CreatedAt.Add(time.Duration(g.faker.Number(1, 72)) * time.Hour)
		f.Participants = append(f.Participants, byReg)
		f.Registrations = append(f.Registrations, g.registrations(byReg.ClearID, opts)...)

		byMail := p
		byMail.ClearID = clearID(i, "mail")
		byMail.RegistrationNumber = g.registrationNumber()
		byMail.CreatedAt = byReg.CreatedAt.Add(time.Hour)
		f.Participants = append(f.Participants, byMail)
	}
	return f
}

func (g *Generator) schools(n int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for attempt := 0; len(out) < n && attempt < n*maxNameAttempts; attempt++ {
		name := fmt.Sprintf("%s %s School", g.faker.LastName(), g.faker.RandomString(schoolKinds))
		key := keys.Normalize(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

func (g *Generator) participant(i int, schools []string) Participant {
	name := g.faker.FirstName() + " " + g.faker.LastName()
	school := ""
	if len(schools) > 0 {
		school = schoolShort(g.faker.RandomString(schools))
	}
	return Participant{
		ClearID:            clearID(i, "primary"),
		FullName:           name,
		RegistrationNumber: g.registrationNumber(),
		InstitutionalEmail: g.email(name, i),
		SchoolShort:        school,
		ClassSection:       fmt.Sprintf("%d%s", g.faker.Number(6, 12), g.faker.RandomString(sections)),
		DepartmentShort:    g.faker.RandomString(departments),
		Gender:             g.faker.RandomString(genders),
		CreatedAt:          seedEpoch.Add(time.Duration(i) * time.Minute),
	}
}

func (g *Generator) registrations(clearID string, opts Options) []Registration {
	idx := make([]int, len(opts.Events))
	for i := range idx {
		idx[i] = i
	}
	g.faker.ShuffleInts(idx)

	out := make([]Registration, 0, opts.EventsPerPerson)
	for _, i := range idx[:opts.EventsPerPerson] {
		e := opts.Events[i]
		out = append(out, Registration{
			EventID:   e.ID,
			ClearID:   clearID,
			EventName: e.Name,
			Category:  e.Category,
		})
	}
	return out
}

func (g *Generator) registrationNumber() string {
	return g.faker.Numerify("REG####") + strings.ToUpper(g.faker.LetterN(2))
}

func (g *Generator) email(name string, i int) string {
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	return fmt.Sprintf("%s%d@%s", local, i, emailDomain)
}

// clearID derives a stable record id so regenerated files stay comparable.
func clearID(i int, kind string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%d/%s", i, kind)).String()
}

// schoolShort abbreviates a school name to its initials, e.g. "SMPS".
func schoolShort(name string) string {
	var b strings.Builder
	for _, w := range strings.Fields(name) {
		b.WriteString(strings.ToUpper(w[:1]))
	}
	return b.String()
}
