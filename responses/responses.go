// Package responses drives an anonymous respondent's session through a form:
// start, sequential answer submission with conditional branching, completion.
//
// A session only ever moves forward: InProgress on start, Completed when the
// last navigable question receives an answer. An abandoned session simply
// never completes.
package responses

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofrs/uuid"
	"github.com/nlodi/formloom/forms"
	"github.com/nlodi/formloom/logic"
	"github.com/nlodi/formloom/model"
	"github.com/pkg/errors"
)

type StartResult struct {
	ResponseID    int              `json:"responseId"`
	RespondentID  string           `json:"respondentId"`
	FormTitle     string           `json:"formTitle"`
	FormDesc      string           `json:"formDescription"`
	Theme         *model.Theme     `json:"theme,omitempty"`
	Questions     []model.Question `json:"questions"`
	FirstQuestion *model.Question  `json:"firstQuestion"`
}

type SubmitResult struct {
	Answer         model.Answer    `json:"answer"`
	NextQuestion   *model.Question `json:"nextQuestion"`
	IsLastQuestion bool            `json:"isLastQuestion"`
}

// Start opens a session against a published form. The returned respondent id
// is the caller's only capability for reading the response back.
func Start(ctx context.Context, db *sql.DB, formID int) (*StartResult, error) {
	var title, description string
	var published bool
	err := db.QueryRowContext(ctx, `
		SELECT title, description, published FROM form WHERE id = ?`,
		formID,
	).Scan(&title, &description, &published)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select form")
	}
	if !published {
		// an unpublished form is invisible to respondents
		return nil, errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}

	theme, err := forms.LoadTheme(ctx, db, formID)
	if err != nil {
		return nil, err
	}
	questions, err := forms.LoadQuestions(ctx, db, formID)
	if err != nil {
		return nil, err
	}

	token, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "generate respondent id")
	}

	result := &StartResult{
		RespondentID: token.String(),
		FormTitle:    title,
		FormDesc:     description,
		Theme:        theme,
		Questions:    questions,
	}
	err = db.QueryRowContext(ctx, `
		INSERT INTO response (form_id, respondent_id, completed, started_at)
		VALUES (?, ?, 0, ?)
		RETURNING id`,
		formID, result.RespondentID, time.Now(),
	).Scan(&result.ResponseID)
	if err != nil {
		return nil, errors.Wrap(err, "insert response")
	}

	result.FirstQuestion = logic.FirstVisible(questions, map[int]string{})
	return result, nil
}

// SubmitAnswer upserts the answer for (response, question), then picks the
// next visible question strictly after the answered one, given everything
// answered so far. When none remain the response completes; resubmitting the
// final answer keeps the original completion timestamp.
func SubmitAnswer(ctx context.Context, db *sql.DB, responseID, questionID int, value, fileURL string) (*SubmitResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var formID int
	err = tx.QueryRowContext(ctx, `
		SELECT form_id FROM response WHERE id = ?`,
		responseID,
	).Scan(&formID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(model.ErrNotFound, "response %d", responseID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select response")
	}

	var ord int
	err = tx.QueryRowContext(ctx, `
		SELECT ord FROM question WHERE id = ? AND form_id = ?`,
		questionID, formID,
	).Scan(&ord)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(model.ErrNotFound, "question %d in form %d", questionID, formID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select question")
	}

	answer := model.Answer{
		ResponseID: responseID,
		QuestionID: questionID,
		Value:      value,
		FileURL:    fileURL,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO answer (response_id, question_id, value, file_url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (response_id, question_id)
		DO UPDATE SET value = excluded.value, file_url = excluded.file_url
		RETURNING id`,
		responseID, questionID, value, fileURL,
	).Scan(&answer.ID)
	if err != nil {
		return nil, errors.Wrap(err, "upsert answer")
	}

	questions, err := forms.LoadQuestions(ctx, tx, formID)
	if err != nil {
		return nil, err
	}
	answers, err := loadAnswerValues(ctx, tx, responseID)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Answer: answer}
	result.NextQuestion = logic.NextVisible(questions, ord, answers)
	result.IsLastQuestion = result.NextQuestion == nil

	if result.IsLastQuestion {
		// idempotent: the flag rewrite is harmless, the timestamp sticks
		_, err = tx.ExecContext(ctx, `
			UPDATE response
			SET completed = 1, completed_at = COALESCE(completed_at, ?)
			WHERE id = ?`,
			time.Now(), responseID,
		)
		if err != nil {
			return nil, errors.Wrap(err, "complete response")
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return result, nil
}

// Get returns a response with its answers joined to question title/type for
// display. The respondent id acts as the capability: without a match on both
// keys the response does not exist as far as the caller can tell.
func Get(ctx context.Context, db *sql.DB, responseID int, respondentID string) (*model.Response, error) {
	if respondentID == "" {
		return nil, errors.Wrap(model.ErrBadRequest, "missing respondent id")
	}

	response := &model.Response{}
	err := db.QueryRowContext(ctx, `
		SELECT id, form_id, completed, started_at, completed_at
		FROM response
		WHERE id = ? AND respondent_id = ?`,
		responseID, respondentID,
	).Scan(&response.ID, &response.FormID, &response.Completed, &response.StartedAt, &response.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(model.ErrNotFound, "response %d", responseID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select response")
	}

	rows, err := db.QueryContext(ctx, `
		SELECT a.id, a.question_id, a.value, a.file_url, q.title, q.type
		FROM answer a
		INNER JOIN question q ON (a.question_id = q.id)
		WHERE a.response_id = ?
		ORDER BY q.ord`,
		responseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select answers")
	}
	defer rows.Close()

	response.Answers = []model.Answer{}
	for rows.Next() {
		a := model.Answer{ResponseID: responseID}
		err = rows.Scan(&a.ID, &a.QuestionID, &a.Value, &a.FileURL, &a.QuestionTitle, &a.QuestionType)
		if err != nil {
			return nil, errors.Wrap(err, "scan answer")
		}
		response.Answers = append(response.Answers, a)
	}
	return response, rows.Err()
}

func loadAnswerValues(ctx context.Context, tx *sql.Tx, responseID int) (map[int]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT question_id, value FROM answer WHERE response_id = ?`,
		responseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select answer values")
	}
	defer rows.Close()

	answers := map[int]string{}
	for rows.Next() {
		var questionID int
		var value string
		if err = rows.Scan(&questionID, &value); err != nil {
			return nil, errors.Wrap(err, "scan answer value")
		}
		answers[questionID] = value
	}
	return answers, rows.Err()
}
