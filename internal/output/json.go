package output

import (
	"encoding/json"
	"io"

	"codesense/internal/core/errors"
)

// JSONRenderer writes one JSON object per response line.
type JSONRenderer struct{}

type jsonResponse struct {
	OK     bool       `json:"ok"`
	Result any        `json:"result,omitempty"`
	Error  *jsonError `json:"error,omitempty"`
}

type jsonError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

func (r *JSONRenderer) Name() string {
	return FormatJSON
}

func (r *JSONRenderer) Render(w io.Writer, result any) error {
	return encodeLine(w, jsonResponse{OK: true, Result: result})
}

func (r *JSONRenderer) RenderError(w io.Writer, err error) error {
	return encodeLine(w, jsonResponse{Error: &jsonError{
		Code:    string(errors.CodeOf(err)),
		Message: errors.MessageOf(err),
	}})
}

func encodeLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode json response")
	}
	return nil
}
