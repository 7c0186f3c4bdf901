package filtering

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobprep/internal/llm"
	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/types"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) Close() error { return nil }

func testJob() *types.JobPosting {
	return &types.JobPosting{
		Title:       "Senior Backend Engineer",
		Company:     "Acme Corp",
		Location:    "Remote (US)",
		Description: "Build Go services on PostgreSQL.",
	}
}

func TestDecide_ExcludeKeywordSkipsLLM(t *testing.T) {
	client := &fakeLLM{}
	f := New(client, ratelimit.NewRegistry())

	job := testJob()
	job.Title = "Staff Engineer (Clearance Required)"

	decision, err := f.Decide(context.Background(), job, &types.FilterCriteria{
		ExcludeKeywords: []string{"clearance"},
	})
	require.NoError(t, err)

	assert.Equal(t, types.DecisionReject, decision.Decision)
	assert.True(t, decision.Rejected())
	assert.Equal(t, 0, client.calls, "rule-based rejection must not call the LLM")
}

func TestDecide_RemoteOnlyRejectsOnsite(t *testing.T) {
	client := &fakeLLM{}
	f := New(client, ratelimit.NewRegistry())

	job := testJob()
	job.Location = "New York, NY (on-site)"

	decision, err := f.Decide(context.Background(), job, &types.FilterCriteria{RemoteOnly: true})
	require.NoError(t, err)

	assert.Equal(t, types.DecisionReject, decision.Decision)
	assert.Equal(t, 0, client.calls)
}

func TestDecide_LLMAccept(t *testing.T) {
	client := &fakeLLM{
		response: `{"decision": "accept", "confidence": 0.85, "reasoning": "keyword match"}`,
	}
	f := New(client, ratelimit.NewRegistry())

	decision, err := f.Decide(context.Background(), testJob(), &types.FilterCriteria{
		Keywords: []string{"Go"},
	})
	require.NoError(t, err)

	assert.Equal(t, types.DecisionAccept, decision.Decision)
	assert.InDelta(t, 0.85, decision.Confidence, 0.001)
	assert.Equal(t, 1, client.calls)
}

func TestDecide_NilCriteria(t *testing.T) {
	client := &fakeLLM{
		response: `{"decision": "maybe", "confidence": 0.5, "reasoning": "no criteria given"}`,
	}
	f := New(client, ratelimit.NewRegistry())

	decision, err := f.Decide(context.Background(), testJob(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.DecisionMaybe, decision.Decision)
}

func TestDecide_LLMError(t *testing.T) {
	client := &fakeLLM{err: errors.New("quota exceeded")}
	f := New(client, ratelimit.NewRegistry())

	_, err := f.Decide(context.Background(), testJob(), &types.FilterCriteria{})
	require.Error(t, err)

	var decideErr *DecideError
	require.True(t, errors.As(err, &decideErr))
	assert.ErrorContains(t, err, "LLM call failed")
}

func TestDecide_SchemaViolation(t *testing.T) {
	client := &fakeLLM{
		response: `{"decision": "definitely", "confidence": 0.9, "reasoning": "x"}`,
	}
	f := New(client, ratelimit.NewRegistry())

	_, err := f.Decide(context.Background(), testJob(), &types.FilterCriteria{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "schema validation")
}
