package routes

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/mattn/go-sqlite3"
	"github.com/nlodi/formloom/app"
	"github.com/nlodi/formloom/httpx"
	"github.com/nlodi/formloom/log"
	"golang.org/x/crypto/bcrypt"
)

type registration struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg registration
		err := render.DecodeJSON(r.Body, &reg)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "register.parse_body")
			return
		}
		if reg.Email == "" || reg.Password == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "register.validate", "email and password are required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.LogInternalError(w, "register.hash", err)
			return
		}

		var userID int
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO user (email, name, password_hash, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			reg.Email, reg.Name, string(hash), time.Now(),
		).Scan(&userID)
		if err != nil {
			if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "register.duplicate_email")
				return
			}
			httpx.LogInternalError(w, "db.insert_user", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": userID,
		})
	}
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}
		r.Body = io.NopCloser(strings.NewReader(body.Encode()))
		r.Header.Set("content-type", "application/x-www-form-urlencoded")
		r.Header.Set("content-length", strconv.Itoa(len(body.Encode())))
		app.UserCredentials(w, r)
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("authorization")
		match := regexp.MustCompile(`(?i)^refresh\s+(.*)`).FindStringSubmatch(auth)
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}
		token := match[1]

		body := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {token},
		}

		req, err := http.NewRequest("POST", "/", strings.NewReader(body.Encode()))
		if err != nil {
			httpx.LogStatus(w, http.StatusInternalServerError, log.DebugLevel, "refresh.new_request")
			return
		}
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
		req.Header.Set("content-length", strconv.Itoa(len(body.Encode())))

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		resp.Flush(w)
	}
}
