package domain

import "time"

// VolunteerStatus enumerates the registration lifecycle states.
type VolunteerStatus string

const (
	VolunteerPending   VolunteerStatus = "pending"
	VolunteerApproved  VolunteerStatus = "approved"
	VolunteerActive    VolunteerStatus = "active"
	VolunteerCompleted VolunteerStatus = "completed"
	VolunteerRejected  VolunteerStatus = "rejected"
	VolunteerWithdrawn VolunteerStatus = "withdrawn"
	VolunteerSuspended VolunteerStatus = "suspended"
)

// Counted reports whether a registration in this status is part of volunteerCount.
func (s VolunteerStatus) Counted() bool {
	return s == VolunteerApproved || s == VolunteerActive || s == VolunteerCompleted
}

// Occupying reports whether the registration holds one of the project's capacity slots.
func (s VolunteerStatus) Occupying() bool {
	return s == VolunteerApproved || s == VolunteerActive
}

// Weekday names accepted in availability declarations.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// TimeSlots accepted in availability declarations.
var TimeSlots = []string{"morning", "afternoon", "evening", "night"}

// Availability is the structured schedule a volunteer offers.
type Availability struct {
	Days      []string `json:"days" validate:"dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	TimeSlots []string `json:"time_slots" validate:"dive,oneof=morning afternoon evening night"`
}

// Declaration is the capacity a volunteer declares when registering.
type Declaration struct {
	Skills        []string     `json:"skills" validate:"required,min=1,unique,dive,required"`
	HoursPerWeek  int          `json:"hours_per_week" validate:"min=1,max=168"`
	PreferredRole string       `json:"preferred_role" validate:"max=120"`
	Experience    string       `json:"experience" validate:"max=4000"`
	Motivation    string       `json:"motivation" validate:"max=4000"`
	Availability  Availability `json:"availability"`
}

// Registration links one volunteer to one project.
type Registration struct {
	ID                string
	ProjectID         string
	VolunteerID       string
	Declaration       Declaration
	Status            VolunteerStatus
	ReviewedBy        *string
	ReviewedAt        *time.Time
	ReviewNotes       string
	RejectionReason   string
	HoursContributed  int
	TasksCompleted    int
	LastActivityAt    *time.Time
	ContributionScore int
	Certificate       Certificate
	ApprovedAt        *time.Time
	ActivatedAt       *time.Time
	CompletedAt       *time.Time
	WithdrawnAt       *time.Time
	SuspendedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ContributionScore weighs reported hours and tasks.
func ContributionScore(hours, tasks int) int {
	return hours*10 + tasks*20
}

// VolunteerTransition describes a conditional status change on a registration.
type VolunteerTransition struct {
	ID              string
	From            []VolunteerStatus
	To              VolunteerStatus
	ReviewedBy      *string
	ReviewNotes     string
	RejectionReason string
	At              time.Time
}

// Activity is a progress report. Nil fields keep their stored value.
type Activity struct {
	Hours *int
	Tasks *int
}
