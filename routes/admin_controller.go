package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/nlodi/formloom/analytics"
	"github.com/nlodi/formloom/app"
	"github.com/nlodi/formloom/forms"
	"github.com/nlodi/formloom/httpx"
	"github.com/nlodi/formloom/log"
	"github.com/nlodi/formloom/model"
	"github.com/nlodi/formloom/routes/middlewares"
)

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in model.FormInput
		err := render.DecodeJSON(r.Body, &in)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := forms.Create(r.Context(), app.DB, middlewares.UserID(r), in)
		if err != nil {
			httpx.LogError(w, "db.insert_form", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, form)
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := forms.List(r.Context(), app.DB, middlewares.UserID(r))
		if err != nil {
			httpx.LogError(w, "db.get_forms", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": list,
		})
	}
}

func GetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		form, err := forms.Get(r.Context(), app.DB, middlewares.UserID(r), formID)
		if err != nil {
			httpx.LogError(w, "db.get_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

// UpdateForm runs the full reconciliation: the payload's question list is the
// desired state, and theme/settings ride along in the same transaction.
func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var in model.FormUpdate
		err = render.DecodeJSON(r.Body, &in)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := forms.Update(r.Context(), app.DB, middlewares.UserID(r), formID, in)
		if err != nil {
			httpx.LogError(w, "db.update_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = forms.Delete(r.Context(), app.DB, middlewares.UserID(r), formID)
		if err != nil {
			httpx.LogError(w, "db.delete_form", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func PublishForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = forms.Publish(r.Context(), app.DB, middlewares.UserID(r), formID)
		if err != nil {
			httpx.LogError(w, "db.publish_form", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func CreateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var entry model.QuestionEntry
		err = render.DecodeJSON(r.Body, &entry)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		question, err := forms.CreateQuestion(r.Context(), app.DB, middlewares.UserID(r), formID, entry)
		if err != nil {
			httpx.LogError(w, "db.insert_question", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, question)
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var entry model.QuestionEntry
		err = render.DecodeJSON(r.Body, &entry)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		question, err := forms.UpdateQuestion(r.Context(), app.DB, middlewares.UserID(r), questionID, entry)
		if err != nil {
			httpx.LogError(w, "db.update_question", err)
			return
		}

		render.JSON(w, r, question)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = forms.DeleteQuestion(r.Context(), app.DB, middlewares.UserID(r), questionID)
		if err != nil {
			httpx.LogError(w, "db.delete_question", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ReorderQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var orders []model.QuestionOrder
		err = render.DecodeJSON(r.Body, &orders)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = forms.Reorder(r.Context(), app.DB, middlewares.UserID(r), formID, orders)
		if err != nil {
			httpx.LogError(w, "db.reorder_questions", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetFormResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		list, err := analytics.FormResponses(r.Context(), app.DB, middlewares.UserID(r), formID)
		if err != nil {
			httpx.LogError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": list,
		})
	}
}

func GetFormAnalytics(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		stats, err := analytics.Summary(r.Context(), app.DB, middlewares.UserID(r), formID)
		if err != nil {
			httpx.LogError(w, "db.get_analytics", err)
			return
		}

		render.JSON(w, r, stats)
	}
}

func SignUpload(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Filename string `json:"filename"`
		}
		err := render.DecodeJSON(r.Body, &in)
		if err != nil || in.Filename == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		signed, err := app.Signer.Sign(in.Filename)
		if err != nil {
			httpx.LogInternalError(w, "files.sign", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"url": signed,
		})
	}
}
