package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends the success envelope {"success":true,"data":...}.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, map[string]any{"success": true, "data": data})
}

// Fail sends the failure envelope. Context entries are merged into the top level.
func Fail(w http.ResponseWriter, status int, f Failure) {
	body := make(map[string]any, 4+len(f.Context))
	for k, v := range f.Context {
		body[k] = v
	}
	body["success"] = false
	body["error"] = f.Error
	body["message"] = f.Message
	body["code"] = f.Code
	JSON(w, status, body)
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", shared.ErrValidation, err)
	}
	return nil
}
