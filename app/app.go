package app

import (
	"database/sql"

	"github.com/go-chi/oauth"
	"github.com/nlodi/formloom/config"
	"github.com/nlodi/formloom/files"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
	Signer *files.Signer
}
