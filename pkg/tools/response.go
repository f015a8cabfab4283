package tools

import (
	"encoding/json"
)

// ErrorKind is the machine-matchable failure category carried in error_type.
type ErrorKind string

const (
	// KindValidation marks malformed input caught before any browser work
	KindValidation ErrorKind = "ValidationError"
	// KindElementNotFound marks a selector that resolves to nothing
	KindElementNotFound ErrorKind = "ElementNotFound"
	// KindTimeout marks a backend operation that exceeded its timeout
	KindTimeout ErrorKind = "TimeoutError"
	// KindNetwork marks DNS, connection, or TLS failures during navigation
	KindNetwork ErrorKind = "NetworkError"
	// KindFileSystem marks screenshot write failures
	KindFileSystem ErrorKind = "FileSystemError"
	// KindInvalidElementState marks disabled or read-only elements
	KindInvalidElementState ErrorKind = "InvalidElementState"
	// KindBrowserLaunch marks a failed browser launch
	KindBrowserLaunch ErrorKind = "BrowserLaunchError"
	// KindUnknown marks anything unclassified
	KindUnknown ErrorKind = "UnknownError"
)

// Reserved response keys. Operation fields may not use them.
const (
	keySuccess    = "success"
	keyError      = "error"
	keyErrorType  = "error_type"
	keySuggestion = "suggestion"
)

// Response is the tagged result of a tool call: either a success carrying
// operation fields, or a failure carrying error, error_type, suggestion and
// request context. It is only built through OK and Fail, so the two shapes
// never mix.
type Response struct {
	success    bool
	fields     map[string]any
	message    string
	kind       ErrorKind
	suggestion string
}

// OK builds a success response. Reserved keys in fields are dropped.
func OK(fields map[string]any) Response {
	return Response{
		success: true,
		fields:  copyFields(fields),
	}
}

// Fail builds a failure response. context holds request fields echoed back
// to the caller (url, selector, path). Reserved keys in context are dropped.
func Fail(kind ErrorKind, message, suggestion string, context map[string]any) Response {
	if kind == "" {
		kind = KindUnknown
	}
	return Response{
		success:    false,
		fields:     copyFields(context),
		message:    message,
		kind:       kind,
		suggestion: suggestion,
	}
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch k {
		case keySuccess, keyError, keyErrorType, keySuggestion:
			continue
		}
		out[k] = v
	}
	return out
}

// Success reports whether the call succeeded.
func (r Response) Success() bool {
	return r.success
}

// ErrorType returns the failure kind, or "" for a success.
func (r Response) ErrorType() ErrorKind {
	return r.kind
}

// ErrorMessage returns the human-readable failure message, or "" for a success.
func (r Response) ErrorMessage() string {
	return r.message
}

// Suggestion returns the actionable hint attached to a failure.
func (r Response) Suggestion() string {
	return r.suggestion
}

// Get returns an operation or context field.
func (r Response) Get(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Map flattens the response into its wire shape.
func (r Response) Map() map[string]any {
	out := make(map[string]any, len(r.fields)+4)
	for k, v := range r.fields {
		out[k] = v
	}
	out[keySuccess] = r.success
	if !r.success {
		out[keyError] = r.message
		out[keyErrorType] = r.kind
		out[keySuggestion] = r.suggestion
	}
	return out
}

// MarshalJSON encodes the flattened wire shape.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
