package forms

import (
	"context"
	"database/sql"
	"time"

	"github.com/nlodi/formloom/model"
	"github.com/pkg/errors"
)

// CreateQuestion appends a single question at the end of the form's order
// sequence, ignoring any order supplied by the caller.
func CreateQuestion(ctx context.Context, db *sql.DB, userID, formID int, entry model.QuestionEntry) (model.Question, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Question{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(q.ord) + 1, 0)
		FROM form f
		LEFT OUTER JOIN question q ON (q.form_id = f.id)
		WHERE f.id = ? AND f.user_id = ?
		GROUP BY f.id`,
		formID, userID,
	).Scan(&entry.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Question{}, errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}
	if err != nil {
		return model.Question{}, errors.Wrap(err, "next ord")
	}

	entry.ID = nil
	questionID, err := insertQuestion(ctx, tx, formID, entry)
	if err != nil {
		return model.Question{}, err
	}

	err = reconcileLogic(ctx, tx, questionID, entry.Logic)
	if err != nil {
		return model.Question{}, err
	}
	err = checkRuleTargets(ctx, tx, formID)
	if err != nil {
		return model.Question{}, err
	}

	err = touchForm(ctx, tx, formID)
	if err != nil {
		return model.Question{}, err
	}

	err = tx.Commit()
	if err != nil {
		return model.Question{}, errors.Wrap(err, "commit")
	}

	return getQuestion(ctx, db, formID, questionID)
}

// UpdateQuestion edits one question in place. Order is not touched here:
// moving questions is the reorder operation's job.
func UpdateQuestion(ctx context.Context, db *sql.DB, userID, questionID int, entry model.QuestionEntry) (model.Question, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Question{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var formID int
	err = tx.QueryRowContext(ctx, `
		SELECT q.form_id, q.ord
		FROM question q
		INNER JOIN form f ON (q.form_id = f.id)
		WHERE q.id = ? AND f.user_id = ?`,
		questionID, userID,
	).Scan(&formID, &entry.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Question{}, errors.Wrapf(model.ErrNotFound, "question %d", questionID)
	}
	if err != nil {
		return model.Question{}, errors.Wrap(err, "select question")
	}

	err = updateQuestion(ctx, tx, formID, questionID, entry)
	if err != nil {
		return model.Question{}, err
	}
	err = reconcileLogic(ctx, tx, questionID, entry.Logic)
	if err != nil {
		return model.Question{}, err
	}
	err = checkRuleTargets(ctx, tx, formID)
	if err != nil {
		return model.Question{}, err
	}

	err = touchForm(ctx, tx, formID)
	if err != nil {
		return model.Question{}, err
	}

	err = tx.Commit()
	if err != nil {
		return model.Question{}, errors.Wrap(err, "commit")
	}

	return getQuestion(ctx, db, formID, questionID)
}

// DeleteQuestion removes one question and closes the gap it leaves: every
// question of the form ordered after it shifts down by one, keeping the
// sequence dense 0..N-1 in the original relative order.
func DeleteQuestion(ctx context.Context, db *sql.DB, userID, questionID int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var formID, ord int
	err = tx.QueryRowContext(ctx, `
		SELECT q.form_id, q.ord
		FROM question q
		INNER JOIN form f ON (q.form_id = f.id)
		WHERE q.id = ? AND f.user_id = ?`,
		questionID, userID,
	).Scan(&formID, &ord)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(model.ErrNotFound, "question %d", questionID)
	}
	if err != nil {
		return errors.Wrap(err, "select question")
	}

	// rules pointing at the deleted question go with it; a rule with no
	// target can never be satisfied and would hide its question forever
	_, err = tx.ExecContext(ctx, `
		DELETE FROM conditional_rule WHERE target_question_id = ?`,
		questionID,
	)
	if err != nil {
		return errors.Wrap(err, "delete dependent rules")
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM question WHERE id = ?`, questionID)
	if err != nil {
		return errors.Wrap(err, "delete question")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE question
		SET ord = ord - 1
		WHERE form_id = ? AND ord > ?`,
		formID, ord,
	)
	if err != nil {
		return errors.Wrap(err, "compact order")
	}

	err = touchForm(ctx, tx, formID)
	if err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// Reorder applies a batch of (question, order) pairs atomically. It does not
// verify that the pairs form a dense permutation; the caller owns that.
func Reorder(ctx context.Context, db *sql.DB, userID, formID int, orders []model.QuestionOrder) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var owned bool
	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM form WHERE id = ? AND user_id = ?`,
		formID, userID,
	).Scan(&owned)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}
	if err != nil {
		return errors.Wrap(err, "select form")
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE question SET ord = ? WHERE id = ? AND form_id = ?`)
	if err != nil {
		return errors.Wrap(err, "prepare reorder")
	}
	defer stmt.Close()

	for _, o := range orders {
		_, err = stmt.ExecContext(ctx, o.Order, o.QuestionID, formID)
		if err != nil {
			return errors.Wrap(err, "reorder question")
		}
	}

	err = touchForm(ctx, tx, formID)
	if err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func touchForm(ctx context.Context, tx *sql.Tx, formID int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE form SET updated_at = ? WHERE id = ?`,
		time.Now(), formID,
	)
	return errors.Wrap(err, "touch form")
}

func getQuestion(ctx context.Context, db *sql.DB, formID, questionID int) (model.Question, error) {
	questions, err := LoadQuestions(ctx, db, formID)
	if err != nil {
		return model.Question{}, err
	}
	for _, q := range questions {
		if q.ID == questionID {
			return q, nil
		}
	}
	return model.Question{}, errors.Wrapf(model.ErrNotFound, "question %d", questionID)
}
