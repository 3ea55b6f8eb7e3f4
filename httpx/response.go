package httpx

import (
	"bytes"
	"net/http"
)

// ResponseBuffer captures a handler's response so it can be inspected before
// being replayed to the real writer. Used to bridge the oauth.BearerServer
// handlers, which only speak http.ResponseWriter.
type ResponseBuffer struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func NewResponseBuffer() *ResponseBuffer {
	return &ResponseBuffer{}
}

func (resp *ResponseBuffer) Status() int {
	return resp.status
}

func (resp *ResponseBuffer) Header() http.Header {
	if resp.header == nil {
		resp.header = http.Header{}
	}
	return resp.header
}

func (resp *ResponseBuffer) Body() []byte {
	return resp.body.Bytes()
}

func (resp *ResponseBuffer) Write(body []byte) (int, error) {
	return resp.body.Write(body)
}

func (resp *ResponseBuffer) WriteHeader(statusCode int) {
	resp.status = statusCode
}

func (resp *ResponseBuffer) Flush(w http.ResponseWriter) error {
	header := w.Header()
	for key, value := range resp.header {
		header[key] = value
	}
	if resp.status != 0 {
		w.WriteHeader(resp.status)
	}
	_, err := w.Write(resp.body.Bytes())
	return err
}
