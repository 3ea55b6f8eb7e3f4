package forms

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/nlodi/formloom/model"
	"github.com/pkg/errors"
)

// Update reconciles a desired-state payload against a form's persisted
// questions inside one transaction. Incoming entries with an id update that
// question; entries without one are created; persisted questions missing
// from the batch are deleted, conditional logic and rules cascading with
// them. Theme, settings and the notification email list are reconciled in
// the same unit. On any error nothing is applied.
//
// An update entry naming an unknown question id fails the whole batch with
// NotFound rather than being skipped: silently dropping an edit hides a
// lost update from the caller.
func Update(ctx context.Context, db *sql.DB, userID, formID int, in model.FormUpdate) (model.Form, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Form{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE form
		SET title = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		in.Title, in.Description, time.Now(), formID, userID,
	)
	if err != nil {
		return model.Form{}, errors.Wrap(err, "update form")
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Form{}, errors.Wrap(err, "update form verify")
	} else if n < 1 {
		return model.Form{}, errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}

	// survivors: ids named by update entries plus ids minted by inserts;
	// everything else belonging to the form goes at the end
	survivors := make([]int, 0, len(in.Questions))
	for _, entry := range in.Questions {
		var questionID int
		if entry.ID != nil {
			questionID = *entry.ID
			err = updateQuestion(ctx, tx, formID, questionID, entry)
		} else {
			questionID, err = insertQuestion(ctx, tx, formID, entry)
		}
		if err != nil {
			return model.Form{}, err
		}

		err = reconcileLogic(ctx, tx, questionID, entry.Logic)
		if err != nil {
			return model.Form{}, err
		}

		survivors = append(survivors, questionID)
	}

	err = deleteUnlisted(ctx, tx, formID, survivors)
	if err != nil {
		return model.Form{}, err
	}

	err = checkRuleTargets(ctx, tx, formID)
	if err != nil {
		return model.Form{}, err
	}

	if in.Theme != nil {
		err = upsertTheme(ctx, tx, formID, *in.Theme)
		if err != nil {
			return model.Form{}, err
		}
	}
	if in.Settings != nil {
		err = upsertSettings(ctx, tx, formID, *in.Settings)
		if err != nil {
			return model.Form{}, err
		}
	}

	err = tx.Commit()
	if err != nil {
		return model.Form{}, errors.Wrap(err, "commit")
	}

	return Get(ctx, db, userID, formID)
}

func updateQuestion(ctx context.Context, tx *sql.Tx, formID, questionID int, entry model.QuestionEntry) error {
	validation, err := jsonColumn(entry.Validation != nil, entry.Validation)
	if err != nil {
		return errors.Wrapf(err, "encode validation of question %d", questionID)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE question
		SET title = ?, description = ?, type = ?, required = ?, validation = ?, ord = ?
		WHERE id = ? AND form_id = ?`,
		entry.Title, entry.Description, entry.Type, entry.Required, validation, entry.Order,
		questionID, formID,
	)
	if err != nil {
		return errors.Wrap(err, "update question")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "update question verify")
	} else if n < 1 {
		return errors.Wrapf(model.ErrNotFound, "question %d", questionID)
	}

	// options only carry meaning for choice-like types; leave them alone
	// otherwise so switching a type back does not lose the choices
	if entry.Type.ChoiceLike() {
		options, err := jsonColumn(entry.Options != nil, entry.Options)
		if err != nil {
			return errors.Wrapf(err, "encode options of question %d", questionID)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE question SET options = ? WHERE id = ?`,
			options, questionID,
		)
		if err != nil {
			return errors.Wrap(err, "update question options")
		}
	}
	return nil
}

func insertQuestion(ctx context.Context, tx *sql.Tx, formID int, entry model.QuestionEntry) (questionID int, err error) {
	options, err := jsonColumn(entry.Options != nil, entry.Options)
	if err != nil {
		return 0, errors.Wrap(err, "encode options")
	}
	validation, err := jsonColumn(entry.Validation != nil, entry.Validation)
	if err != nil {
		return 0, errors.Wrap(err, "encode validation")
	}

	// ord is taken verbatim: the caller supplies the dense ordering for the
	// whole batch, the engine does not renumber
	err = tx.QueryRowContext(ctx, `
		INSERT INTO question (form_id, title, description, type, required, options, validation, ord)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		formID, entry.Title, entry.Description, entry.Type, entry.Required, options, validation, entry.Order,
	).Scan(&questionID)
	if err != nil {
		return 0, errors.Wrap(err, "insert question")
	}
	return questionID, nil
}

// reconcileLogic applies the tri-state logic transition: create on first
// enable, full rule replace on re-submission, disable drops the rules
// (re-enabling requires resubmitting them).
func reconcileLogic(ctx context.Context, tx *sql.Tx, questionID int, in *model.LogicInput) error {
	var logicID int
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM conditional_logic WHERE question_id = ?`,
		questionID,
	).Scan(&logicID)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return errors.Wrap(err, "select logic")
	}

	enabled := in != nil && in.Enabled

	if !enabled {
		if !exists {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE conditional_logic SET enabled = 0 WHERE id = ?`,
			logicID,
		)
		if err != nil {
			return errors.Wrap(err, "disable logic")
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM conditional_rule WHERE logic_id = ?`,
			logicID,
		)
		return errors.Wrap(err, "delete rules")
	}

	if !exists {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO conditional_logic (question_id, enabled)
			VALUES (?, 1)
			RETURNING id`,
			questionID,
		).Scan(&logicID)
		if err != nil {
			return errors.Wrap(err, "insert logic")
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE conditional_logic SET enabled = 1 WHERE id = ?`,
			logicID,
		)
		if err != nil {
			return errors.Wrap(err, "enable logic")
		}
		// full replace, not merge
		_, err = tx.ExecContext(ctx, `
			DELETE FROM conditional_rule WHERE logic_id = ?`,
			logicID,
		)
		if err != nil {
			return errors.Wrap(err, "delete rules")
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO conditional_rule (logic_id, ord, operator, value, target_question_id, action)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert rule")
	}
	defer stmt.Close()

	for i, rule := range in.Rules {
		action := rule.Action
		if action == "" {
			action = model.ActionShow
		}
		_, err = stmt.ExecContext(ctx, logicID, i, rule.Operator, rule.Value, rule.TargetQuestionID, action)
		if err != nil {
			return errors.Wrap(err, "insert rule")
		}
	}
	return nil
}

// deleteUnlisted removes every persisted question of the form not present in
// the batch; that is how question removal is expressed in a bulk edit.
func deleteUnlisted(ctx context.Context, tx *sql.Tx, formID int, survivors []int) error {
	if len(survivors) == 0 {
		_, err := tx.ExecContext(ctx, `DELETE FROM question WHERE form_id = ?`, formID)
		return errors.Wrap(err, "delete questions")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(survivors)), ",")
	args := make([]any, 0, len(survivors)+1)
	args = append(args, formID)
	for _, id := range survivors {
		args = append(args, id)
	}

	_, err := tx.ExecContext(ctx,
		`DELETE FROM question WHERE form_id = ? AND id NOT IN (`+placeholders+`)`,
		args...,
	)
	return errors.Wrap(err, "delete unlisted questions")
}

// checkRuleTargets enforces the same-form invariant at write time: after the
// batch, every rule of the form must point at one of the form's surviving
// questions. Catches both foreign targets and targets deleted by this batch.
func checkRuleTargets(ctx context.Context, tx *sql.Tx, formID int) error {
	var stray int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM conditional_rule r
		INNER JOIN conditional_logic l ON (r.logic_id = l.id)
		INNER JOIN question q ON (l.question_id = q.id)
		WHERE q.form_id = ?
			AND r.target_question_id NOT IN (
				SELECT id FROM question WHERE form_id = ?
			)`,
		formID, formID,
	).Scan(&stray)
	if err != nil {
		return errors.Wrap(err, "check rule targets")
	}
	if stray > 0 {
		return errors.Wrapf(model.ErrBadRequest, "%d rule(s) reference questions outside the form", stray)
	}
	return nil
}

func upsertTheme(ctx context.Context, tx *sql.Tx, formID int, in model.ThemeInput) error {
	if in.PrimaryColor == "" {
		in.PrimaryColor = model.DefaultPrimaryColor
	}
	if in.BackgroundColor == "" {
		in.BackgroundColor = model.DefaultBackgroundColor
	}
	if in.FontFamily == "" {
		in.FontFamily = model.DefaultFontFamily
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE theme
		SET primary_color = ?, background_color = ?, font_family = ?
		WHERE form_id = ?`,
		in.PrimaryColor, in.BackgroundColor, in.FontFamily, formID,
	)
	if err != nil {
		return errors.Wrap(err, "update theme")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "update theme verify")
	} else if n > 0 {
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO theme (form_id, primary_color, background_color, font_family)
		VALUES (?, ?, ?, ?)`,
		formID, in.PrimaryColor, in.BackgroundColor, in.FontFamily,
	)
	return errors.Wrap(err, "insert theme")
}

func upsertSettings(ctx context.Context, tx *sql.Tx, formID int, in model.SettingsInput) error {
	var settingsID int
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM settings WHERE form_id = ?`,
		formID,
	).Scan(&settingsID)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO settings (form_id, confirmation_message, allow_multiple_responses, notify_on_response)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			formID, in.ConfirmationMessage, in.AllowMultipleResponses, in.NotifyOnResponse,
		).Scan(&settingsID)
		if err != nil {
			return errors.Wrap(err, "insert settings")
		}
	} else if err != nil {
		return errors.Wrap(err, "select settings")
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE settings
			SET confirmation_message = ?, allow_multiple_responses = ?, notify_on_response = ?
			WHERE id = ?`,
			in.ConfirmationMessage, in.AllowMultipleResponses, in.NotifyOnResponse, settingsID,
		)
		if err != nil {
			return errors.Wrap(err, "update settings")
		}
	}

	if in.NotificationEmails == nil {
		return nil
	}

	// full replace whenever a list is supplied
	_, err = tx.ExecContext(ctx, `
		DELETE FROM notification_email WHERE settings_id = ?`,
		settingsID,
	)
	if err != nil {
		return errors.Wrap(err, "delete notification emails")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notification_email (settings_id, email) VALUES (?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert email")
	}
	defer stmt.Close()

	for _, email := range in.NotificationEmails {
		_, err = stmt.ExecContext(ctx, settingsID, email)
		if err != nil {
			return errors.Wrap(err, "insert notification email")
		}
	}
	return nil
}

func jsonColumn(present bool, v any) (any, error) {
	if !present {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
