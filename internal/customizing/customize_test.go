package customizing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobprep/internal/llm"
	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/types"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func (f *fakeLLM) Close() error { return nil }

const testProfile = "Backend engineer. Go, PostgreSQL, five years experience."

func testJob() *types.JobPosting {
	return &types.JobPosting{
		ID:          uuid.New(),
		Title:       "Platform Engineer",
		Company:     "Acme Corp",
		Description: "Own the service platform.",
	}
}

func TestCustomize_Success(t *testing.T) {
	client := &fakeLLM{
		response: `{
			"summary": "Platform-focused backend engineer.",
			"highlighted_skills": ["Go", "PostgreSQL"],
			"sections": [{"heading": "Experience", "content": "Built Go services."}],
			"confidence": 0.8
		}`,
	}
	c := New(client, ratelimit.NewRegistry(), testProfile)

	job := testJob()
	resume, err := c.Customize(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, job.ID, resume.JobID)
	assert.NotEqual(t, uuid.Nil, resume.ID)
	assert.Equal(t, "Platform-focused backend engineer.", resume.Summary)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, resume.HighlightedSkills)
	assert.False(t, resume.CreatedAt.IsZero())

	assert.Contains(t, client.prompt, testProfile, "prompt must carry the base resume")
	assert.Contains(t, client.prompt, job.Title)
}

func TestCustomize_EmptyProfile(t *testing.T) {
	c := New(&fakeLLM{}, ratelimit.NewRegistry(), "   ")

	_, err := c.Customize(context.Background(), testJob())
	require.Error(t, err)
	assert.ErrorContains(t, err, "base resume profile is empty")
}

func TestCustomize_LLMError(t *testing.T) {
	client := &fakeLLM{err: errors.New("model overloaded")}
	c := New(client, ratelimit.NewRegistry(), testProfile)

	_, err := c.Customize(context.Background(), testJob())
	require.Error(t, err)

	var custErr *CustomizeError
	require.True(t, errors.As(err, &custErr))
}

func TestCustomize_MissingSummary(t *testing.T) {
	client := &fakeLLM{response: `{"highlighted_skills": ["Go"]}`}
	c := New(client, ratelimit.NewRegistry(), testProfile)

	_, err := c.Customize(context.Background(), testJob())
	require.Error(t, err)
	assert.ErrorContains(t, err, "schema validation")
}
