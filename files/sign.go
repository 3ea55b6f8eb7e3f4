// Package files hands out signed upload URLs. The rest of the system treats
// the resulting URL as an opaque string stored on an answer; nothing ever
// parses it back.
package files

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// Sign returns an upload URL for the given filename, valid until the TTL
// runs out. A random prefix keeps concurrent uploads of the same filename
// from colliding.
func (s *Signer) Sign(filename string) (string, error) {
	prefix, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "generate upload key")
	}

	key := prefix.String() + "/" + path.Base(filename)
	exp := time.Now().Add(s.ttl).Unix()

	q := url.Values{
		"exp": {strconv.FormatInt(exp, 10)},
		"sig": {s.signature(key, exp)},
	}
	return fmt.Sprintf("/uploads/%s?%s", key, q.Encode()), nil
}

// Verify checks an upload key against its expiry and signature.
func (s *Signer) Verify(key string, exp int64, sig string) bool {
	if time.Now().Unix() > exp {
		return false
	}
	expected := s.signature(key, exp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *Signer) signature(key string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%d", key, exp)
	return hex.EncodeToString(mac.Sum(nil))
}
