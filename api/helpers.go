package api

import (
	"encoding/json"
	"net/http"

	"github.com/vocdoni/ballot-relay/log"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(append(jdata, '\n'))
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	log.Debugw("api response", "bytes", n)
}

// httpWriteHeaderJSON writes value in the response header, exposed to
// browsers, and data as the JSON body. The relay fetch endpoints return
// their value both ways.
func httpWriteHeaderJSON(w http.ResponseWriter, header, value string, data any) {
	w.Header().Set(exposeHeadersHeader, header)
	w.Header().Set(header, value)
	httpWriteJSON(w, data)
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}
