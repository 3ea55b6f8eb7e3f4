// Package logic decides which questions a respondent gets to see, based on
// the answers collected so far in their response session.
package logic

import (
	"strconv"
	"strings"

	"github.com/nlodi/formloom/model"
)

// Visible reports whether a question should be presented given the answers
// submitted so far (question id -> raw value).
//
// A question with no logic, disabled logic, or an enabled rule set that is
// empty is always visible. Rules whose action is not "show" are reserved and
// ignored. The remaining rules combine with AND: all must be satisfied.
func Visible(q model.Question, answers map[int]string) bool {
	if q.Logic == nil || !q.Logic.Enabled {
		return true
	}

	for _, rule := range q.Logic.Rules {
		if rule.Action != model.ActionShow {
			continue
		}
		if !satisfied(rule, answers) {
			return false
		}
	}
	return true
}

// A rule whose target question has no answer yet is not satisfied, whatever
// its operator. Unknown operators are likewise unsatisfied rather than an
// error, so old rule rows survive an operator-set extension.
func satisfied(rule model.ConditionalRule, answers map[int]string) bool {
	answer, ok := answers[rule.TargetQuestionID]
	if !ok {
		return false
	}

	switch rule.Operator {
	case model.Equals:
		return answer == rule.Value
	case model.NotEquals:
		return answer != rule.Value
	case model.Contains:
		return strings.Contains(answer, rule.Value)
	case model.GreaterThan:
		a, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			return false
		}
		v, err := strconv.ParseFloat(rule.Value, 64)
		if err != nil {
			return false
		}
		return a > v
	}
	return false
}

// NextVisible returns the first visible question whose order is strictly
// greater than after, or nil when none remain. Questions must be sorted by
// order ascending, as the store returns them.
func NextVisible(questions []model.Question, after int, answers map[int]string) *model.Question {
	for i := range questions {
		if questions[i].Order <= after {
			continue
		}
		if Visible(questions[i], answers) {
			return &questions[i]
		}
	}
	return nil
}

// FirstVisible returns the entry question of a form given the answers so far
// (empty at session start).
func FirstVisible(questions []model.Question, answers map[int]string) *model.Question {
	return NextVisible(questions, -1, answers)
}
