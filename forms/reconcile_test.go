package forms_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/nlodi/formloom/forms"
	"github.com/nlodi/formloom/model"
	"github.com/nlodi/formloom/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedForm(t *testing.T, db *sql.DB, userID int, titles ...string) model.Form {
	t.Helper()
	ctx := context.Background()

	form, err := forms.Create(ctx, db, userID, model.FormInput{Title: "Seed"})
	require.NoError(t, err)
	for _, title := range titles {
		_, err = forms.CreateQuestion(ctx, db, userID, form.ID, model.QuestionEntry{
			Title: title, Type: model.ShortText,
		})
		require.NoError(t, err)
	}

	form, err = forms.Get(ctx, db, userID, form.ID)
	require.NoError(t, err)
	return form
}

func entryOf(q model.Question) model.QuestionEntry {
	id := q.ID
	return model.QuestionEntry{
		ID:          &id,
		Title:       q.Title,
		Description: q.Description,
		Type:        q.Type,
		Required:    q.Required,
		Options:     q.Options,
		Validation:  q.Validation,
		Order:       q.Order,
	}
}

func orders(questions []model.Question) (out []int) {
	for _, q := range questions {
		out = append(out, q.Order)
	}
	return
}

func TestReconcileCreateUpdateDelete(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := seedForm(t, db, userID, "Keep me", "Drop me")

	keep := entryOf(form.Questions[0])
	keep.Title = "Kept and renamed"
	keep.Required = true
	keep.Order = 1

	updated, err := forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:       "Edited form",
		Description: "now with a fresh question",
		Questions: []model.QuestionEntry{
			{Title: "Brand new", Type: model.Paragraph, Order: 0},
			keep,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Edited form", updated.Title)
	require.Len(t, updated.Questions, 2)
	assert.Equal(t, []int{0, 1}, orders(updated.Questions))
	assert.Equal(t, "Brand new", updated.Questions[0].Title)
	assert.Equal(t, model.Paragraph, updated.Questions[0].Type)
	assert.Equal(t, "Kept and renamed", updated.Questions[1].Title)
	assert.True(t, updated.Questions[1].Required)
	assert.Equal(t, form.Questions[0].ID, updated.Questions[1].ID, "update keeps the id")

	// "Drop me" was omitted from the batch, so it is gone
	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM question WHERE id = ?`, form.Questions[1].ID).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReconcileUnknownUpdateIDFailsWholeBatch(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := seedForm(t, db, userID, "Only question")

	ghost := 99999
	_, err := forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title: "Should not stick",
		Questions: []model.QuestionEntry{
			{Title: "New one", Type: model.ShortText, Order: 0},
			{ID: &ghost, Title: "Ghost", Type: model.ShortText, Order: 1},
		},
	})
	assert.ErrorIs(t, err, model.ErrNotFound)

	// nothing from the batch is visible
	got, err := forms.Get(ctx, db, userID, form.ID)
	require.NoError(t, err)
	assert.Equal(t, "Seed", got.Title)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, "Only question", got.Questions[0].Title)
}

func TestReconcileOptionsOnlyForChoiceTypes(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := seedForm(t, db, userID)

	updated, err := forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title: "Seed",
		Questions: []model.QuestionEntry{
			{
				Title: "Pick one", Type: model.Dropdown, Order: 0,
				Options: &model.Options{Choices: []string{"a", "b"}},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Questions, 1)
	q := updated.Questions[0]
	require.NotNil(t, q.Options)
	assert.Equal(t, []string{"a", "b"}, q.Options.Choices)

	// switching to a text type must not clobber the stored choices
	entry := entryOf(q)
	entry.Type = model.ShortText
	entry.Options = nil
	updated, err = forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{entry},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Questions[0].Options)
	assert.Equal(t, []string{"a", "b"}, updated.Questions[0].Options.Choices)
}

func TestReconcileLogicTransitions(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := seedForm(t, db, userID, "Gate", "Conditional")

	gateID := form.Questions[0].ID
	conditional := entryOf(form.Questions[1])

	// enable with rules
	conditional.Logic = &model.LogicInput{
		Enabled: true,
		Rules: []model.RuleInput{
			{Operator: model.Equals, Value: "yes", TargetQuestionID: gateID, Action: model.ActionShow},
		},
	}
	updated, err := forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{entryOf(form.Questions[0]), conditional},
	})
	require.NoError(t, err)
	logicState := updated.Questions[1].Logic
	require.NotNil(t, logicState)
	assert.True(t, logicState.Enabled)
	require.Len(t, logicState.Rules, 1)
	assert.Equal(t, model.Equals, logicState.Rules[0].Operator)
	firstRuleID := logicState.Rules[0].ID

	// resubmit with a different rule list: full replace, not merge
	conditional.Logic = &model.LogicInput{
		Enabled: true,
		Rules: []model.RuleInput{
			{Operator: model.NotEquals, Value: "no", TargetQuestionID: gateID, Action: model.ActionShow},
			{Operator: model.Equals, Value: "maybe", TargetQuestionID: gateID, Action: model.ActionShow},
		},
	}
	updated, err = forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{entryOf(form.Questions[0]), conditional},
	})
	require.NoError(t, err)
	logicState = updated.Questions[1].Logic
	require.Len(t, logicState.Rules, 2)
	assert.Equal(t, model.NotEquals, logicState.Rules[0].Operator)
	for _, rule := range logicState.Rules {
		assert.NotEqual(t, firstRuleID, rule.ID, "old rules are deleted, not reused")
	}

	// disable: rules are dropped and not retained for re-enable
	conditional.Logic = &model.LogicInput{Enabled: false}
	updated, err = forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{entryOf(form.Questions[0]), conditional},
	})
	require.NoError(t, err)
	logicState = updated.Questions[1].Logic
	require.NotNil(t, logicState)
	assert.False(t, logicState.Enabled)
	assert.Empty(t, logicState.Rules)
}

func TestReconcileRejectsForeignRuleTarget(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := seedForm(t, db, userID, "Mine")
	other := seedForm(t, db, userID, "Elsewhere")

	entry := entryOf(form.Questions[0])
	entry.Logic = &model.LogicInput{
		Enabled: true,
		Rules: []model.RuleInput{
			{Operator: model.Equals, Value: "x", TargetQuestionID: other.Questions[0].ID, Action: model.ActionShow},
		},
	}
	_, err := forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{entry},
	})
	assert.ErrorIs(t, err, model.ErrBadRequest)
}

func TestReconcileRejectsRuleTargetDeletedInSameBatch(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := seedForm(t, db, userID, "Gate", "Conditional")

	// give Conditional a rule on Gate, then drop Gate from the batch
	conditional := entryOf(form.Questions[1])
	conditional.Order = 0
	conditional.Logic = &model.LogicInput{
		Enabled: true,
		Rules: []model.RuleInput{
			{Operator: model.Equals, Value: "yes", TargetQuestionID: form.Questions[0].ID, Action: model.ActionShow},
		},
	}
	_, err := forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{conditional},
	})
	assert.ErrorIs(t, err, model.ErrBadRequest)

	// and the batch rolled back: Gate is still there
	got, err := forms.Get(ctx, db, userID, form.ID)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 2)
}

func TestReconcileTheme(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := seedForm(t, db, userID, "Q")

	updated, err := forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{entryOf(form.Questions[0])},
		Theme:     &model.ThemeInput{PrimaryColor: "#112233"},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Theme)
	assert.Equal(t, "#112233", updated.Theme.PrimaryColor)
	assert.Equal(t, model.DefaultBackgroundColor, updated.Theme.BackgroundColor)
	assert.Equal(t, model.DefaultFontFamily, updated.Theme.FontFamily)
	themeID := updated.Theme.ID

	// second pass updates in place
	updated, err = forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{entryOf(updated.Questions[0])},
		Theme:     &model.ThemeInput{FontFamily: "monospace"},
	})
	require.NoError(t, err)
	assert.Equal(t, themeID, updated.Theme.ID)
	assert.Equal(t, "monospace", updated.Theme.FontFamily)
	assert.Equal(t, model.DefaultPrimaryColor, updated.Theme.PrimaryColor)
}

func TestReconcileSettingsEmails(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := seedForm(t, db, userID, "Q")

	updated, err := forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{entryOf(form.Questions[0])},
		Settings: &model.SettingsInput{
			ConfirmationMessage: "Thanks!",
			NotifyOnResponse:    true,
			NotificationEmails:  []string{"a@example.com", "b@example.com"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Settings)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, updated.Settings.NotificationEmails)

	// nil list leaves emails untouched
	updated, err = forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{entryOf(updated.Questions[0])},
		Settings:  &model.SettingsInput{ConfirmationMessage: "Cheers", NotifyOnResponse: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Cheers", updated.Settings.ConfirmationMessage)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, updated.Settings.NotificationEmails)

	// non-nil list is a full replace
	updated, err = forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Seed",
		Questions: []model.QuestionEntry{entryOf(updated.Questions[0])},
		Settings: &model.SettingsInput{
			ConfirmationMessage: "Cheers",
			NotificationEmails:  []string{"c@example.com"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c@example.com"}, updated.Settings.NotificationEmails)
}

func TestReconcileEmptyBatchDeletesEverything(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := seedForm(t, db, userID, "One", "Two", "Three")

	updated, err := forms.Update(ctx, db, userID, form.ID, model.FormUpdate{
		Title:     "Wiped",
		Questions: []model.QuestionEntry{},
	})
	require.NoError(t, err)
	assert.Empty(t, updated.Questions)
}

func TestReconcileNotOwnedForm(t *testing.T) {
	db := testutil.OpenDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	stranger := testutil.CreateUser(t, db, "stranger@example.com")
	ctx := context.Background()
	form := seedForm(t, db, owner, "Q")

	_, err := forms.Update(ctx, db, stranger, form.ID, model.FormUpdate{
		Title:     "Hijack",
		Questions: []model.QuestionEntry{},
	})
	assert.ErrorIs(t, err, model.ErrNotFound)

	got, err := forms.Get(ctx, db, owner, form.ID)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 1)
}
