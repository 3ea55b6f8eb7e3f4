package analytics_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/nlodi/formloom/analytics"
	"github.com/nlodi/formloom/forms"
	"github.com/nlodi/formloom/model"
	"github.com/nlodi/formloom/responses"
	"github.com/nlodi/formloom/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishedForm(t *testing.T, db *sql.DB, userID int, titles ...string) model.Form {
	t.Helper()
	ctx := context.Background()

	form, err := forms.Create(ctx, db, userID, model.FormInput{Title: "Stats"})
	require.NoError(t, err)
	for _, title := range titles {
		_, err = forms.CreateQuestion(ctx, db, userID, form.ID, model.QuestionEntry{
			Title: title, Type: model.ShortText,
		})
		require.NoError(t, err)
	}
	require.NoError(t, forms.Publish(ctx, db, userID, form.ID))

	form, err = forms.Get(ctx, db, userID, form.ID)
	require.NoError(t, err)
	return form
}

// answer walks a session through the first n questions of a linear form.
func answer(t *testing.T, db *sql.DB, form model.Form, n int) *responses.StartResult {
	t.Helper()
	ctx := context.Background()

	started, err := responses.Start(ctx, db, form.ID)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err = responses.SubmitAnswer(ctx, db, started.ResponseID, form.Questions[i].ID, "v", "")
		require.NoError(t, err)
	}
	return started
}

func TestSummary(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := publishedForm(t, db, userID, "Q1", "Q2", "Q3")

	for i := 0; i < 10; i++ {
		require.NoError(t, responses.TrackVisit(ctx, db, form.ID, model.VisitInput{IP: "10.0.0.1"}))
	}

	// 4 sessions: two complete, one stops after Q1, one never answers
	answer(t, db, form, 3)
	answer(t, db, form, 3)
	answer(t, db, form, 1)
	answer(t, db, form, 0)

	stats, err := analytics.Summary(ctx, db, userID, form.ID)
	require.NoError(t, err)

	assert.Equal(t, 10, stats.VisitCount)
	assert.Equal(t, 4, stats.ResponseCount)
	assert.Equal(t, 2, stats.CompletedCount)
	assert.Equal(t, 50.0, stats.CompletionRate)

	require.Len(t, stats.Questions, 3)
	assert.Equal(t, "Q1", stats.Questions[0].Title)
	assert.Equal(t, 3, stats.Questions[0].AnswerCount)
	assert.Equal(t, 0.0, stats.Questions[0].DropOffRate)
	assert.Equal(t, 2, stats.Questions[1].AnswerCount)
	assert.Equal(t, 33.33, stats.Questions[1].DropOffRate)
	assert.Equal(t, 2, stats.Questions[2].AnswerCount)
	assert.Equal(t, 33.33, stats.Questions[2].DropOffRate)
}

func TestSummaryNoResponses(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	form := publishedForm(t, db, userID, "Q1", "Q2")

	stats, err := analytics.Summary(context.Background(), db, userID, form.ID)
	require.NoError(t, err)

	assert.Zero(t, stats.ResponseCount)
	assert.Equal(t, 0.0, stats.CompletionRate, "no division by zero")
	require.Len(t, stats.Questions, 2)
	assert.Equal(t, 0.0, stats.Questions[1].DropOffRate)
}

func TestSummaryAbandonedBeforeFirstAnswer(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	form := publishedForm(t, db, userID, "Q1", "Q2")

	answer(t, db, form, 0)
	answer(t, db, form, 0)

	stats, err := analytics.Summary(context.Background(), db, userID, form.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ResponseCount)
	assert.Zero(t, stats.Questions[0].AnswerCount)
	assert.Equal(t, 0.0, stats.Questions[0].DropOffRate)
	assert.Equal(t, 0.0, stats.Questions[1].DropOffRate)
}

func TestSummaryNotOwned(t *testing.T) {
	db := testutil.OpenDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	stranger := testutil.CreateUser(t, db, "stranger@example.com")
	form := publishedForm(t, db, owner, "Q1")

	_, err := analytics.Summary(context.Background(), db, stranger, form.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = analytics.FormResponses(context.Background(), db, stranger, form.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFormResponses(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()
	form := publishedForm(t, db, userID, "Q1", "Q2")

	full := answer(t, db, form, 2)
	partial := answer(t, db, form, 1)
	answer(t, db, form, 0)

	list, err := analytics.FormResponses(ctx, db, userID, form.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)

	byID := map[int]model.Response{}
	for _, r := range list {
		byID[r.ID] = r
	}

	first := byID[full.ResponseID]
	assert.True(t, first.Completed)
	require.Len(t, first.Answers, 2)
	assert.Equal(t, "Q1", first.Answers[0].QuestionTitle)
	assert.Equal(t, "Q2", first.Answers[1].QuestionTitle)

	second := byID[partial.ResponseID]
	assert.False(t, second.Completed)
	assert.Len(t, second.Answers, 1)

	for _, r := range list {
		if r.ID != full.ResponseID && r.ID != partial.ResponseID {
			assert.Empty(t, r.Answers, "untouched session still listed, no answers")
		}
	}
}
