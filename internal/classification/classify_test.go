package classification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/applicant-analyzer/internal/llm"
)

// mockClient returns canned responses for GenerateJSON.
type mockClient struct {
	response string
	err      error
	calls    int
}

func (m *mockClient) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	m.calls++
	return m.response, m.err
}

func (m *mockClient) Close() error { return nil }

func fastRetry() llm.RetryConfig {
	return llm.RetryConfig{MaxRetries: 2, InitialBackoff: 1}
}

func TestClassify_Success(t *testing.T) {
	client := &mockClient{response: `{
		"professional_experience": "Backend engineer at Acme, 2019-2024",
		"education": "BSc Computer Science",
		"skills": "Go, PostgreSQL, Redis",
		"supplemental_information": "CKA certification"
	}`}

	classified, err := Classify(context.Background(), client, fastRetry(), "resume text")
	require.NoError(t, err)
	assert.Equal(t, "BSc Computer Science", classified.Education)
	assert.Equal(t, "Go, PostgreSQL, Redis", classified.Skills)
	assert.Equal(t, "CKA certification", classified.SupplementalInformation)
	assert.Equal(t, 1, client.calls)
}

func TestClassify_MalformedResponse(t *testing.T) {
	client := &mockClient{response: "I am unable to classify this resume."}

	_, err := Classify(context.Background(), client, fastRetry(), "resume text")
	require.Error(t, err)
	// Malformed output is not transient; no retries are spent on it.
	assert.Equal(t, 1, client.calls)
}

func TestClassify_MissingSection(t *testing.T) {
	client := &mockClient{response: `{"professional_experience": "x", "education": "y", "skills": "z"}`}

	_, err := Classify(context.Background(), client, fastRetry(), "resume text")
	assert.Error(t, err)
}

func TestClassify_TransientFailureRetried(t *testing.T) {
	client := &mockClient{err: context.DeadlineExceeded}

	_, err := Classify(context.Background(), client, fastRetry(), "resume text")
	require.Error(t, err)
	assert.Equal(t, 3, client.calls)
}

func TestClassify_NonTransientFailureNotRetried(t *testing.T) {
	client := &mockClient{err: errors.New("invalid API key")}

	_, err := Classify(context.Background(), client, fastRetry(), "resume text")
	require.Error(t, err)
	assert.Equal(t, 1, client.calls)
}
