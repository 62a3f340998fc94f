package models

import (
	"strconv"
	"time"
)

type Department struct {
	ID          int64     `yaml:"id" json:"id"`
	Slug        string    `yaml:"slug" json:"slug"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	SortOrder   int64     `yaml:"sort_order" json:"sort_order"`
	CreatedAt   time.Time `yaml:"-" json:"created_at"`
	UpdatedAt   time.Time `yaml:"-" json:"updated_at"`
}

type Doctor struct {
	ID              int64     `yaml:"id" json:"id"`
	Name            string    `yaml:"name" json:"name"`
	Specialty       string    `yaml:"specialty" json:"specialty"`
	DepartmentSlug  string    `yaml:"department" json:"department"`
	Qualification   string    `yaml:"qualification" json:"qualification"`
	ExperienceYears int       `yaml:"experience_years" json:"experience_years"`
	Bio             string    `yaml:"bio" json:"bio"`
	ImageURL        string    `yaml:"image_url" json:"image_url"`
	IsActive        bool      `yaml:"is_active" json:"is_active"`
	CreatedAt       time.Time `yaml:"-" json:"created_at"`
	UpdatedAt       time.Time `yaml:"-" json:"updated_at"`
}

func (d Doctor) FilterName() string        { return d.Name }
func (d Doctor) FilterDescription() string { return d.Specialty + " " + d.Bio }
func (d Doctor) FilterCategory() string    { return d.DepartmentSlug }

// Ref reduces the doctor to the fields a booking draft carries.
func (d Doctor) Ref() *DoctorRef {
	return &DoctorRef{ID: d.ID, Name: d.Name, Specialty: d.Specialty}
}

type DiagnosticTest struct {
	ID              int64   `yaml:"id" json:"id"`
	Code            string  `yaml:"code" json:"code"`
	Name            string  `yaml:"name" json:"name"`
	Description     string  `yaml:"description" json:"description"`
	Category        string  `yaml:"category" json:"category"`
	Price           float64 `yaml:"price" json:"price"`
	TurnaroundHours int     `yaml:"turnaround_hours" json:"turnaround_hours"`
	FastingRequired bool    `yaml:"fasting_required" json:"fasting_required"`
	IsActive        bool    `yaml:"is_active" json:"is_active"`
}

func (t DiagnosticTest) FilterName() string        { return t.Name }
func (t DiagnosticTest) FilterDescription() string { return t.Description }
func (t DiagnosticTest) FilterCategory() string    { return t.Category }

type DiagnosticPackage struct {
	ID          int64    `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Category    string   `yaml:"category" json:"category"`
	Price       float64  `yaml:"price" json:"price"`
	TestCodes   []string `yaml:"tests" json:"tests"`
	IsActive    bool     `yaml:"is_active" json:"is_active"`
}

func (p DiagnosticPackage) FilterName() string        { return p.Name }
func (p DiagnosticPackage) FilterDescription() string { return p.Description }
func (p DiagnosticPackage) FilterCategory() string    { return p.Category }

type FirstAidEntry struct {
	ID        int64    `yaml:"id" json:"id"`
	Title     string   `yaml:"title" json:"title"`
	Category  string   `yaml:"category" json:"category"`
	Summary   string   `yaml:"summary" json:"summary"`
	Symptoms  []string `yaml:"symptoms" json:"symptoms"`
	Steps     []string `yaml:"steps" json:"steps"`
	Emergency bool     `yaml:"emergency" json:"emergency"`
}

func (e FirstAidEntry) FilterName() string        { return e.Title }
func (e FirstAidEntry) FilterDescription() string { return e.Summary }
func (e FirstAidEntry) FilterCategory() string    { return e.Category }

// Catalog is the seed document and the in-memory snapshot served to clients.
type Catalog struct {
	Departments []Department        `yaml:"departments" json:"departments"`
	Doctors     []Doctor            `yaml:"doctors" json:"doctors"`
	Tests       []DiagnosticTest    `yaml:"tests" json:"tests"`
	Packages    []DiagnosticPackage `yaml:"packages" json:"packages"`
	FirstAid    []FirstAidEntry     `yaml:"first_aid" json:"first_aid"`
}

func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
