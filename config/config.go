package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string
	DBUrl        string
	TokenSecret  string
	TokenTTL     time.Duration
	UploadSecret string
	UploadTTL    time.Duration
	Debug        bool
}

// ParseFlags reads configuration from flags, falling back to a .env file for
// the secrets so local setups do not have to pass them on every run.
func ParseFlags() (cfg Config, err error) {
	_ = godotenv.Load()

	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 80, "listen port number (default 80)")
	flag.StringVar(&cfg.DBUrl, "db-url", "formloom.sqlite", "path to SQLite3 DB file (default formloom.sqlite)")
	flag.StringVar(&cfg.TokenSecret, "token-secret", os.Getenv("FORMLOOM_TOKEN_SECRET"), "secret key for token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", 3600, "token TTL in seconds (default 3600)")
	flag.StringVar(&cfg.UploadSecret, "upload-secret", os.Getenv("FORMLOOM_UPLOAD_SECRET"), "secret key for signing upload URLs")
	var uploadTTL uint
	flag.UintVar(&uploadTTL, "upload-ttl", 900, "upload URL TTL in seconds (default 900)")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.UploadTTL = time.Duration(uploadTTL) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
		return
	}
	if cfg.UploadSecret == "" {
		cfg.UploadSecret = cfg.TokenSecret
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
