package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nlodi/formloom/log"
	"github.com/nlodi/formloom/model"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// LogError maps a domain error to its HTTP status. Taxonomy errors log at
// debug with their wrapped context; anything else is an internal error.
func LogError(w http.ResponseWriter, code string, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		log.Debugf("%s: %s", code, err)
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, model.ErrForbidden):
		log.Debugf("%s: %s", code, err)
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case errors.Is(err, model.ErrBadRequest):
		log.Debugf("%s: %s", code, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrConflict):
		log.Debugf("%s: %s", code, err)
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	default:
		LogInternalError(w, code, err)
	}
}
