package responses

import (
	"context"
	"database/sql"
	"time"

	"github.com/nlodi/formloom/forms"
	"github.com/nlodi/formloom/model"
	"github.com/pkg/errors"
)

// FillView is what a respondent's client renders before starting a session.
type FillView struct {
	ID          int              `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Theme       *model.Theme     `json:"theme,omitempty"`
	Questions   []model.Question `json:"questions"`
}

// FormToFill loads a published form for rendering and records a visit as a
// side effect. An unpublished form is Forbidden (it exists, the respondent
// just may not see it yet), an absent one NotFound.
func FormToFill(ctx context.Context, db *sql.DB, formID int, visit model.VisitInput) (*FillView, error) {
	view := &FillView{}
	var published bool
	err := db.QueryRowContext(ctx, `
		SELECT id, title, description, published FROM form WHERE id = ?`,
		formID,
	).Scan(&view.ID, &view.Title, &view.Description, &published)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select form")
	}
	if !published {
		return nil, errors.Wrapf(model.ErrForbidden, "form %d is not published", formID)
	}

	view.Theme, err = forms.LoadTheme(ctx, db, formID)
	if err != nil {
		return nil, err
	}
	view.Questions, err = forms.LoadQuestions(ctx, db, formID)
	if err != nil {
		return nil, err
	}

	err = insertVisit(ctx, db, formID, visit)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// TrackVisit appends a visit record for a published form. Visit rows are
// never mutated; they only feed analytics counts.
func TrackVisit(ctx context.Context, db *sql.DB, formID int, visit model.VisitInput) error {
	var published bool
	err := db.QueryRowContext(ctx, `
		SELECT published FROM form WHERE id = ?`,
		formID,
	).Scan(&published)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(model.ErrNotFound, "form %d", formID)
	}
	if err != nil {
		return errors.Wrap(err, "select form")
	}
	if !published {
		return errors.Wrapf(model.ErrForbidden, "form %d is not published", formID)
	}

	return insertVisit(ctx, db, formID, visit)
}

func insertVisit(ctx context.Context, db *sql.DB, formID int, visit model.VisitInput) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO form_visit (form_id, visited_at, ip, user_agent, referrer)
		VALUES (?, ?, ?, ?, ?)`,
		formID, time.Now(), visit.IP, visit.UserAgent, visit.Referrer,
	)
	return errors.Wrap(err, "insert visit")
}
