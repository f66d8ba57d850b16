package domain

import "time"

// DonationSettings gate donation intents for a project.
type DonationSettings struct {
	Enabled        bool  `json:"enabled"`
	MinimumAmount  int64 `json:"minimum_amount"`
	AllowAnonymous bool  `json:"allow_anonymous"`
	ShowDonors     bool  `json:"show_donors"`
}

// VolunteerSettings gate volunteer registrations. MaxVolunteers 0 means no cap.
type VolunteerSettings struct {
	Enabled        bool     `json:"enabled"`
	MaxVolunteers  int      `json:"max_volunteers"`
	AutoApprove    bool     `json:"auto_approve"`
	RequiredSkills []string `json:"required_skills"`
}

// ProjectCounters are maintained incrementally by the aggregate store.
type ProjectCounters struct {
	AmountRaised      int64 `json:"amount_raised"`
	DonorCount        int   `json:"donor_count"`
	VolunteerCount    int   `json:"volunteer_count"`
	PendingVolunteers int   `json:"pending_volunteers"`
}

// Project is the aggregate view the lifecycles read and update.
type Project struct {
	ID        string
	Title     string
	Slug      string
	Donation  DonationSettings
	Volunteer VolunteerSettings
	Counters  ProjectCounters
	UpdatedAt time.Time
}
