// Package analytics computes on-demand aggregates for the form owner:
// visits, completion rate, per-question drop-off, and the response listing.
// Nothing here is incrementally maintained; every call counts from the rows.
package analytics

import (
	"context"
	"database/sql"
	"math"

	"github.com/nlodi/formloom/model"
	"github.com/pkg/errors"
)

// Summary aggregates a form's visit and response counts and the per-question
// drop-off in question order. Rates are percentages rounded to two decimals;
// divisions by zero report as 0.
func Summary(ctx context.Context, db *sql.DB, userID, formID int) (*model.FormAnalytics, error) {
	err := checkOwnership(ctx, db, userID, formID)
	if err != nil {
		return nil, err
	}

	stats := &model.FormAnalytics{Questions: []model.QuestionStats{}}
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM form_visit WHERE form_id = ?`,
		formID,
	).Scan(&stats.VisitCount)
	if err != nil {
		return nil, errors.Wrap(err, "count visits")
	}

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(completed), 0)
		FROM response
		WHERE form_id = ?`,
		formID,
	).Scan(&stats.ResponseCount, &stats.CompletedCount)
	if err != nil {
		return nil, errors.Wrap(err, "count responses")
	}

	if stats.ResponseCount > 0 {
		stats.CompletionRate = round2(float64(stats.CompletedCount) / float64(stats.ResponseCount) * 100)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT q.id, q.title, q.ord, COUNT(a.id)
		FROM question q
		LEFT OUTER JOIN answer a ON (a.question_id = q.id)
		WHERE q.form_id = ?
		GROUP BY q.id
		ORDER BY q.ord`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "count answers")
	}
	defer rows.Close()

	for rows.Next() {
		q := model.QuestionStats{}
		err = rows.Scan(&q.QuestionID, &q.Title, &q.Order, &q.AnswerCount)
		if err != nil {
			return nil, errors.Wrap(err, "scan answer count")
		}
		stats.Questions = append(stats.Questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate answer counts")
	}

	// drop-off is measured against whoever made it past the first question
	if len(stats.Questions) > 0 {
		first := stats.Questions[0].AnswerCount
		for i := range stats.Questions {
			if first > 0 {
				lost := first - stats.Questions[i].AnswerCount
				stats.Questions[i].DropOffRate = round2(float64(lost) / float64(first) * 100)
			}
		}
	}

	return stats, nil
}

// FormResponses lists a form's responses with their answers joined to
// question title/type, folded one response at a time in question order.
// The respondent capability token is not exposed to the owner.
func FormResponses(ctx context.Context, db *sql.DB, userID, formID int) ([]model.Response, error) {
	err := checkOwnership(ctx, db, userID, formID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT
			r.id, r.completed, r.started_at, r.completed_at,
			a.id, a.question_id, a.value, a.file_url,
			q.title, q.type
		FROM response r
		LEFT OUTER JOIN answer a ON (a.response_id = r.id)
		LEFT OUTER JOIN question q ON (a.question_id = q.id)
		WHERE r.form_id = ?
		ORDER BY r.started_at, r.id, q.ord`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select responses")
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		r := model.Response{FormID: formID}
		var answerID, questionID sql.NullInt64
		var value, fileURL, title, qtype sql.NullString
		err = rows.Scan(
			&r.ID, &r.Completed, &r.StartedAt, &r.CompletedAt,
			&answerID, &questionID, &value, &fileURL,
			&title, &qtype,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan response")
		}

		lastIdx := len(responses) - 1
		if lastIdx < 0 || responses[lastIdx].ID != r.ID {
			r.Answers = []model.Answer{}
			responses = append(responses, r)
			lastIdx++
		}

		if answerID.Valid {
			responses[lastIdx].Answers = append(responses[lastIdx].Answers, model.Answer{
				ID:            int(answerID.Int64),
				ResponseID:    r.ID,
				QuestionID:    int(questionID.Int64),
				Value:         value.String,
				FileURL:       fileURL.String,
				QuestionTitle: title.String,
				QuestionType:  model.QuestionType(qtype.String),
			})
		}
	}
	return responses, rows.Err()
}

func checkOwnership(ctx context.Context, db *sql.DB, userID, formID int) error {
	var owned bool
	err := db.QueryRowContext(ctx, `
		SELECT 1 FROM form WHERE id = ? AND user_id = ?`,
		formID, userID,
	).Scan(&owned)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}
	return errors.Wrap(err, "select form")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
