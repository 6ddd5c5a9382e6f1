package commons

// Response is the JSON envelope returned by every API route.
type Response[T any] struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Code      string   `json:"code,omitempty"`
	Retryable bool     `json:"retryable,omitempty"`
	Data      *T       `json:"data,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Message: message,
		Data:    &data,
	}
}

func ErrorResponse[T any](message string, errors ...string) Response[T] {
	return Response[T]{
		Success: false,
		Message: message,
		Errors:  errors,
	}
}

// WithCode tags a failed response with a machine readable reason.
func (r Response[T]) WithCode(code string, retryable bool) Response[T] {
	r.Code = code
	r.Retryable = retryable
	return r
}
