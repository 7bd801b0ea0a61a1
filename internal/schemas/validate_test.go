package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ClassifiedResume(t *testing.T) {
	valid := `{
		"professional_experience": "5 years backend development",
		"education": "BSc Computer Science",
		"skills": "Go, PostgreSQL, Redis",
		"supplemental_information": "AWS certified"
	}`
	assert.NoError(t, Validate(ClassifiedResume, valid))

	missing := `{"professional_experience": "x", "education": "y", "skills": "z"}`
	err := Validate(ClassifiedResume, missing)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Errors)
}

func TestValidate_SubScores(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "valid",
			doc:  `{"education_score": 80, "skills_score": 0, "experience_score": 100, "supplemental_score": 55}`,
		},
		{
			name:    "out of range high",
			doc:     `{"education_score": 80, "skills_score": 120, "experience_score": 100, "supplemental_score": 55}`,
			wantErr: true,
		},
		{
			name:    "negative",
			doc:     `{"education_score": -1, "skills_score": 50, "experience_score": 50, "supplemental_score": 50}`,
			wantErr: true,
		},
		{
			name:    "missing field",
			doc:     `{"education_score": 80, "skills_score": 70, "experience_score": 60}`,
			wantErr: true,
		},
		{
			name:    "non-integer score",
			doc:     `{"education_score": "eighty", "skills_score": 70, "experience_score": 60, "supplemental_score": 50}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(SubScores, tt.doc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_MalformedJSON(t *testing.T) {
	assert.Error(t, Validate(SubScores, "I could not produce scores"))
	assert.Error(t, Validate(Justifications, `{"education":`))
}

func TestValidate_UnknownSchema(t *testing.T) {
	assert.Error(t, Validate("nonexistent", `{}`))
}
