package pipeline

import (
	"errors"
	"fmt"
	"time"

	"crm-backend-refactor/pkg/models"
)

// Stage 交易管道中的阶段
type Stage string

const (
	StageLead        Stage = "lead"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageClosedWon   Stage = "closed_won"
	StageClosedLost  Stage = "closed_lost"
)

// ErrUnknownStage is returned by Advance for stage values outside the table.
var ErrUnknownStage = errors.New("unknown deal stage")

// Transition 阶段对应的派生字段
type Transition struct {
	Probability int
	Label       string
}

// stageTable 阶段 → (概率, 展示名) 的完整映射，除此以外的取值均非法
var stageTable = map[Stage]Transition{
	StageLead:        {Probability: 20, Label: "Lead"},
	StageQualified:   {Probability: 40, Label: "Qualified"},
	StageProposal:    {Probability: 60, Label: "Proposal"},
	StageNegotiation: {Probability: 75, Label: "Negotiation"},
	StageClosedWon:   {Probability: 100, Label: "Closed Won"},
	StageClosedLost:  {Probability: 0, Label: "Closed Lost"},
}

// Lookup returns the transition config for a stage.
func Lookup(stage Stage) (Transition, bool) {
	t, ok := stageTable[stage]
	return t, ok
}

// Stages returns the six valid stage names in pipeline order.
func Stages() []Stage {
	return []Stage{
		StageLead, StageQualified, StageProposal,
		StageNegotiation, StageClosedWon, StageClosedLost,
	}
}

// Initialize 在创建交易时派生 probability 并写入第一条阶段历史。
// 阶段缺失或无法识别时保持原样返回（沿用默认值），不视为错误。
func Initialize(deal *models.Deal, now time.Time) {
	t, ok := stageTable[Stage(deal.Stage)]
	if !ok {
		return
	}
	deal.Probability = t.Probability
	deal.StageHistory = append(deal.StageHistory, models.StageHistory{
		Stage:     deal.Stage,
		StageDate: now,
		Message:   fmt.Sprintf("Stage created to %s", t.Label),
	})
}

// Advance 将交易推进到新阶段：覆盖 stage/probability 并追加一条历史记录。
// 历史只追加，既有条目永不修改或删除。未知阶段返回 ErrUnknownStage，交易不变。
func Advance(deal *models.Deal, stage Stage, now time.Time) error {
	t, ok := stageTable[stage]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	deal.Stage = string(stage)
	deal.Probability = t.Probability
	deal.StageHistory = append(deal.StageHistory, models.StageHistory{
		Stage:     string(stage),
		StageDate: now,
		Message:   fmt.Sprintf("Stage updated to %s", t.Label),
	})
	return nil
}
