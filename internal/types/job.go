package types

import "github.com/google/uuid"

// JobRequirements describes what a job listing asks of applicants. Fetched
// from the job-listing store, which is an external collaborator.
type JobRequirements struct {
	JobListingID    uuid.UUID `json:"job_listing_id"`
	Title           string    `json:"title,omitempty"`
	Skills          []string  `json:"skills"`
	ExperienceYears int       `json:"experience_years"`
	Level           string    `json:"level"`
	Description     string    `json:"description"`

	// Active listings are still accepting applicants and are not eligible
	// for analysis.
	Active bool `json:"active"`
}

// ClassifiedResume is the structured partition of a resume produced by the
// classification stage.
type ClassifiedResume struct {
	ProfessionalExperience  string `json:"professional_experience"`
	Education               string `json:"education"`
	Skills                  string `json:"skills"`
	SupplementalInformation string `json:"supplemental_information"`
}
