package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
)

var (
	errUnsupportedMedia = errors.New("unsupported content type")
	errBadBody          = errors.New("invalid request body")
)

const maxFormMemory = 1 << 20

// decodeBody fills dst from a JSON or form-encoded body. A request without a
// Content-Type is tried as JSON.
func decodeBody(r *http.Request, dst interface{}) error {
	ct := r.Header.Get("Content-Type")
	mediaType := ""
	if ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return errUnsupportedMedia
		}
		mediaType = parsed
	}

	switch mediaType {
	case "", "application/json":
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			if mediaType == "" {
				return errUnsupportedMedia
			}
			return errBadBody
		}
		return nil
	case "application/x-www-form-urlencoded", "multipart/form-data":
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(maxFormMemory)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return errBadBody
		}
		return formInto(r, dst)
	default:
		return errUnsupportedMedia
	}
}

// formInto maps the first value of every form field onto dst's json names.
func formInto(r *http.Request, dst interface{}) error {
	fields := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			fields[k] = strings.TrimSpace(v[0])
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// writeDecodeError reports a body that could not be read.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUnsupportedMedia) {
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported content type. Please use application/json or application/x-www-form-urlencoded")
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request body")
}
