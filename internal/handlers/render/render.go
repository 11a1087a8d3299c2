package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	// Report on 'json' tag name instead of the Go struct field name
	// Look at documentation of 'RegisterTagNameFunc' for more details
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		// skip if tag key says it should be ignored
		if name == "-" {
			return ""
		}
		return name
	})
}

type Struct any

// Response envelope shared by every endpoint
type Response struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Count   *int     `json:"count,omitempty"`
}

func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// Success renders {success: true, data, message}
func Success(w http.ResponseWriter, data any, message string) {
	JSONWithStatus(w, Response{Success: true, Data: data, Message: message}, http.StatusOK)
}

// SuccessList renders a collection together with its count
func SuccessList(w http.ResponseWriter, data any, count int) {
	JSONWithStatus(w, Response{Success: true, Data: data, Count: &count}, http.StatusOK)
}

// ServiceError renders {success: false, message} with the given status code
func ServiceError(w http.ResponseWriter, message string, code int) {
	JSONWithStatus(w, Response{Success: false, Message: message}, code)
}

// Violations renders every collected violation with status 400
func Violations(w http.ResponseWriter, violations []string) {
	JSONWithStatus(w, Response{
		Success: false,
		Message: "Données invalides",
		Errors:  violations,
	}, http.StatusBadRequest)
}

// DecodeError renders a json decoding failure
func DecodeError(w http.ResponseWriter, err error) {
	message := fmt.Sprintf("Failed to parse JSON: %s", err.Error())

	// Try to provide more specific error message based on error type
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		message = fmt.Sprintf("Invalid data type for field '%s'", typeErr.Field)
	}

	JSONWithStatus(w, Response{Success: false, Message: message}, http.StatusBadRequest)
}

// ValidationErrors renders validator violations as a flat list, one entry
// per failed field
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	violations := make([]string, 0, len(errs))

	for _, fieldError := range errs {
		switch fieldError.Tag() {
		case "required":
			violations = append(violations, fmt.Sprintf("%s requis", fieldError.Field()))
		case "min":
			violations = append(violations, fmt.Sprintf("%s: valeur minimale %s", fieldError.Field(), fieldError.Param()))
		default:
			violations = append(violations, fmt.Sprintf("%s invalide", fieldError.Field()))
		}
	}

	Violations(w, violations)
}

// BindAndValidate decodes JSON request body into type T and validates it
// using struct tags. Writes the appropriate error response itself, callers
// only need to stop on error.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		DecodeError(w, err)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		// pretty sure cast will be ok cause expecting T is valid struct
		errs := err.(validator.ValidationErrors)
		ValidationErrors(w, errs)
		return value, err
	}

	return value, nil
}
