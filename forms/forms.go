// Package forms owns the authoring side: form CRUD, publication, and the
// reconciliation engine that applies a submitted question list to the store.
package forms

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/nlodi/formloom/model"
	"github.com/pkg/errors"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so loaders can run inside
// or outside a transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func Create(ctx context.Context, db *sql.DB, userID int, in model.FormInput) (form model.Form, err error) {
	now := time.Now()
	err = db.QueryRowContext(ctx, `
		INSERT INTO form (user_id, title, description, published, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
		RETURNING id`,
		userID, in.Title, in.Description, now, now,
	).Scan(&form.ID)
	if err != nil {
		err = errors.Wrap(err, "insert form")
		return
	}

	form.UserID = userID
	form.Title = in.Title
	form.Description = in.Description
	form.CreatedAt = now
	form.UpdatedAt = now
	form.Questions = []model.Question{}
	return
}

func List(ctx context.Context, db *sql.DB, userID int) ([]model.FormSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			f.id, f.title, f.description, f.published, f.created_at, f.updated_at,
			(SELECT COUNT(*) FROM question q WHERE q.form_id = f.id),
			(SELECT COUNT(*) FROM response r WHERE r.form_id = f.id)
		FROM form f
		WHERE f.user_id = ?
		ORDER BY f.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select forms")
	}
	defer rows.Close()

	forms := []model.FormSummary{}
	for rows.Next() {
		var f model.FormSummary
		err = rows.Scan(
			&f.ID, &f.Title, &f.Description, &f.Published, &f.CreatedAt, &f.UpdatedAt,
			&f.QuestionCount, &f.ResponseCount,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan form")
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// Get loads a form with its theme, settings (with notification emails) and
// questions (with conditional logic and rules) ordered by ord ascending.
// A form owned by someone else is NotFound, same as an absent one.
func Get(ctx context.Context, db *sql.DB, userID, formID int) (model.Form, error) {
	form := model.Form{}
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, published, created_at, updated_at
		FROM form
		WHERE id = ? AND user_id = ?`,
		formID, userID,
	).Scan(&form.ID, &form.UserID, &form.Title, &form.Description, &form.Published, &form.CreatedAt, &form.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return form, errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}
	if err != nil {
		return form, errors.Wrap(err, "select form")
	}

	form.Theme, err = LoadTheme(ctx, db, formID)
	if err != nil {
		return form, err
	}
	form.Settings, err = loadSettings(ctx, db, formID)
	if err != nil {
		return form, err
	}
	form.Questions, err = LoadQuestions(ctx, db, formID)
	return form, err
}

func Delete(ctx context.Context, db *sql.DB, userID, formID int) error {
	// dependents go with the form via FK cascades
	res, err := db.ExecContext(ctx, `
		DELETE FROM form
		WHERE id = ? AND user_id = ?`,
		formID, userID,
	)
	if err != nil {
		return errors.Wrap(err, "delete form")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete form verify")
	}
	if n < 1 {
		return errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}
	return nil
}

// Publish marks a form live. A form with zero questions cannot be published.
func Publish(ctx context.Context, db *sql.DB, userID, formID int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(q.id)
		FROM form f
		LEFT OUTER JOIN question q ON (q.form_id = f.id)
		WHERE f.id = ? AND f.user_id = ?
		GROUP BY f.id`,
		formID, userID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}
	if err != nil {
		return errors.Wrap(err, "count questions")
	}
	if count == 0 {
		return errors.Wrap(model.ErrBadRequest, "cannot publish a form with no questions")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE form
		SET published = 1, updated_at = ?
		WHERE id = ?`,
		time.Now(), formID,
	)
	if err != nil {
		return errors.Wrap(err, "publish form")
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func LoadTheme(ctx context.Context, q queryer, formID int) (*model.Theme, error) {
	theme := model.Theme{}
	err := q.QueryRowContext(ctx, `
		SELECT id, primary_color, background_color, font_family
		FROM theme
		WHERE form_id = ?`,
		formID,
	).Scan(&theme.ID, &theme.PrimaryColor, &theme.BackgroundColor, &theme.FontFamily)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select theme")
	}
	return &theme, nil
}

func loadSettings(ctx context.Context, q queryer, formID int) (*model.Settings, error) {
	settings := model.Settings{}
	err := q.QueryRowContext(ctx, `
		SELECT id, confirmation_message, allow_multiple_responses, notify_on_response
		FROM settings
		WHERE form_id = ?`,
		formID,
	).Scan(&settings.ID, &settings.ConfirmationMessage, &settings.AllowMultipleResponses, &settings.NotifyOnResponse)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select settings")
	}

	rows, err := q.QueryContext(ctx, `
		SELECT email FROM notification_email
		WHERE settings_id = ?
		ORDER BY id`,
		settings.ID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select notification emails")
	}
	defer rows.Close()

	settings.NotificationEmails = []string{}
	for rows.Next() {
		var email string
		if err = rows.Scan(&email); err != nil {
			return nil, errors.Wrap(err, "scan notification email")
		}
		settings.NotificationEmails = append(settings.NotificationEmails, email)
	}
	return &settings, rows.Err()
}

// LoadQuestions returns a form's questions with conditional logic and rules,
// ordered by ord ascending. Shared with the responses package, which needs
// the same view to walk a session.
func LoadQuestions(ctx context.Context, q queryer, formID int) ([]model.Question, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT
			q.id, q.form_id, q.title, q.description, q.type, q.required,
			q.options, q.validation, q.ord,
			l.id, l.enabled
		FROM question q
		LEFT OUTER JOIN conditional_logic l ON (l.question_id = q.id)
		WHERE q.form_id = ?
		ORDER BY q.ord`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select questions")
	}
	defer rows.Close()

	questions := []model.Question{}
	byLogicID := map[int]int{}
	for rows.Next() {
		question := model.Question{}
		var options, validation sql.NullString
		var logicID sql.NullInt64
		var enabled sql.NullBool
		err = rows.Scan(
			&question.ID, &question.FormID, &question.Title, &question.Description,
			&question.Type, &question.Required, &options, &validation, &question.Order,
			&logicID, &enabled,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan question")
		}

		if options.Valid && options.String != "" {
			question.Options = &model.Options{}
			if err = json.Unmarshal([]byte(options.String), question.Options); err != nil {
				return nil, errors.Wrapf(err, "parse options of question %d", question.ID)
			}
		}
		if validation.Valid && validation.String != "" {
			question.Validation = &model.Validation{}
			if err = json.Unmarshal([]byte(validation.String), question.Validation); err != nil {
				return nil, errors.Wrapf(err, "parse validation of question %d", question.ID)
			}
		}
		if logicID.Valid {
			question.Logic = &model.ConditionalLogic{
				ID:      int(logicID.Int64),
				Enabled: enabled.Bool,
				Rules:   []model.ConditionalRule{},
			}
			byLogicID[question.Logic.ID] = len(questions)
		}

		questions = append(questions, question)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate questions")
	}

	if len(byLogicID) == 0 {
		return questions, nil
	}

	ruleRows, err := q.QueryContext(ctx, `
		SELECT r.id, r.logic_id, r.operator, r.value, r.target_question_id, r.action
		FROM conditional_rule r
		INNER JOIN conditional_logic l ON (r.logic_id = l.id)
		INNER JOIN question q ON (l.question_id = q.id)
		WHERE q.form_id = ?
		ORDER BY r.logic_id, r.ord`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select rules")
	}
	defer ruleRows.Close()

	for ruleRows.Next() {
		rule := model.ConditionalRule{}
		var logicID int
		err = ruleRows.Scan(&rule.ID, &logicID, &rule.Operator, &rule.Value, &rule.TargetQuestionID, &rule.Action)
		if err != nil {
			return nil, errors.Wrap(err, "scan rule")
		}
		if i, ok := byLogicID[logicID]; ok {
			questions[i].Logic.Rules = append(questions[i].Logic.Rules, rule)
		}
	}
	return questions, ruleRows.Err()
}
