package app

import "pyquest-backend/internal/domain"

// Base points awarded for a correct answer before bonuses. Judge-graded
// types (coding, fill-in) usually carry a judge-supplied base instead.
var basePoints = map[domain.QuestionType]int{
	domain.MultipleChoice: 5,
	domain.Coding:         10,
	domain.FillInBlank:    7,
	domain.DragAndDrop:    8,
}

// Additive bonus per declared proficiency tier.
var skillBonus = map[int]int{
	1: 1, // beginner
	2: 2, // intermediate
	3: 3, // advanced
}

// ScoreInput bundles everything the reward formula looks at.
type ScoreInput struct {
	Type             domain.QuestionType
	IsCorrect        bool
	RetryCount       int
	TimeTakenSeconds int
	AvgTimeSeconds   int
	SkillLevel       int
	// BaseScore overrides the per-type base when the judge suggested one.
	BaseScore *int
}

// CalculateScore turns a grading outcome into a point award.
//
// Formula: base + skill bonus + tiered time bonus - retry penalty, floored
// at zero. An incorrect answer scores zero regardless of any judge
// suggestion. The first retry is free: the penalty is max(0, retry-1).
func CalculateScore(in ScoreInput) int {
	if !in.IsCorrect {
		return 0
	}

	base := basePoints[in.Type]
	if in.BaseScore != nil {
		base = *in.BaseScore
	}

	retryPenalty := in.RetryCount - 1
	if retryPenalty < 0 {
		retryPenalty = 0
	}

	total := base + skillBonus[in.SkillLevel] + timeBonus(in.TimeTakenSeconds, in.AvgTimeSeconds) - retryPenalty
	if total < 0 {
		return 0
	}
	return total
}

// timeBonus rewards beating the reference solve time, in tiers: solving in
// under half the average earns 3, under three quarters 2, under the average 1.
func timeBonus(taken, avg int) int {
	if taken < 1 || avg < 1 {
		return 0
	}
	switch {
	case float64(taken) < float64(avg)*0.5:
		return 3
	case float64(taken) < float64(avg)*0.75:
		return 2
	case taken < avg:
		return 1
	default:
		return 0
	}
}
