package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/nlodi/formloom/app"
	"github.com/nlodi/formloom/httpx"
	"github.com/nlodi/formloom/log"
	"github.com/nlodi/formloom/model"
	"github.com/nlodi/formloom/responses"
)

func visitInput(r *http.Request) model.VisitInput {
	return model.VisitInput{
		IP:        strings.Split(r.RemoteAddr, ":")[0],
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
}

func GetFormToFill(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		view, err := responses.FormToFill(r.Context(), app.DB, formID, visitInput(r))
		if err != nil {
			httpx.LogError(w, "db.get_form_to_fill", err)
			return
		}

		render.JSON(w, r, view)
	}
}

func TrackFormVisit(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = responses.TrackVisit(r.Context(), app.DB, formID, visitInput(r))
		if err != nil {
			httpx.LogError(w, "db.track_visit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func StartResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		result, err := responses.Start(r.Context(), app.DB, formID)
		if err != nil {
			httpx.LogError(w, "db.start_response", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, result)
	}
}

func SubmitAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var in struct {
			QuestionID int    `json:"questionId"`
			Value      string `json:"value"`
			FileURL    string `json:"fileUrl"`
		}
		err = render.DecodeJSON(r.Body, &in)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		result, err := responses.SubmitAnswer(r.Context(), app.DB, responseID, in.QuestionID, in.Value, in.FileURL)
		if err != nil {
			httpx.LogError(w, "db.submit_answer", err)
			return
		}

		render.JSON(w, r, result)
	}
}

func GetResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		respondentID := r.URL.Query().Get("respondent")
		response, err := responses.Get(r.Context(), app.DB, responseID, respondentID)
		if err != nil {
			httpx.LogError(w, "db.get_response", err)
			return
		}

		render.JSON(w, r, response)
	}
}
