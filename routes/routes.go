package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nlodi/formloom/app"
	"github.com/nlodi/formloom/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	// respondent-facing, no login: the respondent id handed out at session
	// start is the only capability on this side
	api.Get(`/forms/{id:^\d+$}`, GetFormToFill(app))
	api.Post(`/forms/{id:^\d+$}/visits`, TrackFormVisit(app))
	api.Post(`/forms/{id:^\d+$}/responses`, StartResponse(app))
	api.Post(`/responses/{id:^\d+$}/answers`, SubmitAnswer(app))
	api.Get(`/responses/{id:^\d+$}`, GetResponse(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Owner(app.TokenSecret))

		// CRUD form
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Get(`/forms/{id:^\d+$}`, GetForm(app))
		r.Put(`/forms/{id:^\d+$}`, UpdateForm(app))
		r.Delete(`/forms/{id:^\d+$}`, DeleteForm(app))
		r.Post(`/forms/{id:^\d+$}/publish`, PublishForm(app))

		// single-question operations
		r.Post(`/forms/{id:^\d+$}/questions`, CreateQuestion(app))
		r.Put(`/forms/{id:^\d+$}/questions/order`, ReorderQuestions(app))
		r.Put(`/questions/{id:^\d+$}`, UpdateQuestion(app))
		r.Delete(`/questions/{id:^\d+$}`, DeleteQuestion(app))

		r.Get(`/forms/{id:^\d+$}/responses`, GetFormResponses(app))
		r.Get(`/forms/{id:^\d+$}/analytics`, GetFormAnalytics(app))

		r.Post("/uploads/sign", SignUpload(app))
	})

	api.Post("/register", Register(app))
	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
