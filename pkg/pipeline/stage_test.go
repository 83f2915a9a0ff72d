package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend-refactor/pkg/models"
)

func TestStageTable(t *testing.T) {
	cases := []struct {
		stage       Stage
		probability int
		label       string
	}{
		{StageLead, 20, "Lead"},
		{StageQualified, 40, "Qualified"},
		{StageProposal, 60, "Proposal"},
		{StageNegotiation, 75, "Negotiation"},
		{StageClosedWon, 100, "Closed Won"},
		{StageClosedLost, 0, "Closed Lost"},
	}
	for _, tc := range cases {
		tr, ok := Lookup(tc.stage)
		require.True(t, ok, "stage %s must be in the table", tc.stage)
		assert.Equal(t, tc.probability, tr.Probability)
		assert.Equal(t, tc.label, tr.Label)
	}

	_, ok := Lookup("archived")
	assert.False(t, ok)
}

func TestInitializeSeedsHistory(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	deal := &models.Deal{Title: "ACME rollout", Stage: "proposal"}

	Initialize(deal, now)

	assert.Equal(t, 60, deal.Probability)
	require.Len(t, deal.StageHistory, 1)
	assert.Equal(t, "proposal", deal.StageHistory[0].Stage)
	assert.Equal(t, now, deal.StageHistory[0].StageDate)
	assert.Contains(t, deal.StageHistory[0].Message, "created")
	assert.Contains(t, deal.StageHistory[0].Message, "Proposal")
}

func TestInitializeUnknownStageIsNoop(t *testing.T) {
	deal := &models.Deal{Title: "no stage", Stage: "whatever"}
	Initialize(deal, time.Now())
	assert.Zero(t, deal.Probability)
	assert.Empty(t, deal.StageHistory)

	deal = &models.Deal{Title: "missing stage"}
	Initialize(deal, time.Now())
	assert.Empty(t, deal.StageHistory)
}

func TestAdvanceAppendsExactlyOneEntry(t *testing.T) {
	now := time.Now()
	deal := &models.Deal{Title: "d", Stage: "proposal"}
	Initialize(deal, now)

	for i, stage := range Stages() {
		prev := make([]models.StageHistory, len(deal.StageHistory))
		copy(prev, deal.StageHistory)

		require.NoError(t, Advance(deal, stage, now.Add(time.Duration(i)*time.Minute)))

		tr, _ := Lookup(stage)
		assert.Equal(t, string(stage), deal.Stage)
		assert.Equal(t, tr.Probability, deal.Probability)
		require.Len(t, deal.StageHistory, len(prev)+1, "history grows by exactly one")
		assert.Equal(t, prev, deal.StageHistory[:len(prev)], "prior entries are never mutated")
		last := deal.StageHistory[len(deal.StageHistory)-1]
		assert.Contains(t, last.Message, "updated")
		assert.Contains(t, last.Message, tr.Label)
	}
}

func TestAdvanceRejectsUnknownStage(t *testing.T) {
	deal := &models.Deal{Title: "d", Stage: "proposal", Probability: 60}
	Initialize(deal, time.Now())

	err := Advance(deal, "on_hold", time.Now())
	require.ErrorIs(t, err, ErrUnknownStage)
	assert.Equal(t, "proposal", deal.Stage, "deal untouched on rejection")
	assert.Equal(t, 60, deal.Probability)
	assert.Len(t, deal.StageHistory, 1)
}

func TestProposalToClosedWonScenario(t *testing.T) {
	now := time.Now()
	deal := &models.Deal{Title: "big one", Stage: "proposal", Value: 5000}
	Initialize(deal, now)
	require.Equal(t, 60, deal.Probability)
	require.Len(t, deal.StageHistory, 1)

	require.NoError(t, Advance(deal, StageClosedWon, now.Add(time.Hour)))
	assert.Equal(t, 100, deal.Probability)
	require.Len(t, deal.StageHistory, 2)
	assert.Contains(t, deal.StageHistory[1].Message, "updated")
	assert.Contains(t, deal.StageHistory[1].Message, "Closed Won")
}
