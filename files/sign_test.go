package files_test

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nlodi/formloom/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signedParts extracts (key, exp, sig) from a URL produced by Sign.
func signedParts(t *testing.T, signed string) (string, int64, string) {
	t.Helper()

	u, err := url.Parse(signed)
	require.NoError(t, err)
	key := strings.TrimPrefix(u.Path, "/uploads/")
	exp, err := strconv.ParseInt(u.Query().Get("exp"), 10, 64)
	require.NoError(t, err)
	return key, exp, u.Query().Get("sig")
}

func TestSignVerifyRoundtrip(t *testing.T) {
	signer := files.NewSigner("s3cret", time.Hour)

	signed, err := signer.Sign("report.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "/uploads/"))

	key, exp, sig := signedParts(t, signed)
	assert.True(t, strings.HasSuffix(key, "/report.pdf"))
	assert.True(t, signer.Verify(key, exp, sig))
}

func TestSignStripsDirectories(t *testing.T) {
	signer := files.NewSigner("s3cret", time.Hour)

	signed, err := signer.Sign("../../etc/passwd")
	require.NoError(t, err)
	key, _, _ := signedParts(t, signed)
	assert.True(t, strings.HasSuffix(key, "/passwd"))
	assert.NotContains(t, key, "..")
}

func TestSignRandomizesKey(t *testing.T) {
	signer := files.NewSigner("s3cret", time.Hour)

	a, err := signer.Sign("photo.jpg")
	require.NoError(t, err)
	b, err := signer.Sign("photo.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "same filename must not collide")
}

func TestVerifyRejectsExpired(t *testing.T) {
	signer := files.NewSigner("s3cret", -time.Minute)

	signed, err := signer.Sign("late.txt")
	require.NoError(t, err)
	key, exp, sig := signedParts(t, signed)
	assert.False(t, signer.Verify(key, exp, sig))
}

func TestVerifyRejectsTampering(t *testing.T) {
	signer := files.NewSigner("s3cret", time.Hour)

	signed, err := signer.Sign("doc.txt")
	require.NoError(t, err)
	key, exp, sig := signedParts(t, signed)

	assert.False(t, signer.Verify("other/"+key, exp, sig), "key swap")
	assert.False(t, signer.Verify(key, exp+3600, sig), "extended expiry")
	flipped := "0"
	if strings.HasSuffix(sig, "0") {
		flipped = "1"
	}
	assert.False(t, signer.Verify(key, exp, sig[:len(sig)-1]+flipped), "mangled signature")

	other := files.NewSigner("different", time.Hour)
	assert.False(t, other.Verify(key, exp, sig), "wrong secret")
}
