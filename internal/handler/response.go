package handler

// Response is the success envelope every endpoint returns: bookings,
// slot catalogs and crisis alerts all ride in Data. Failures never use
// it; they go through the middleware ErrorResponse, which carries the
// machine-readable kind clients branch on.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

// NewErrorResponse exists for callers outside the middleware chain;
// handlers should abort through the middleware helpers instead.
func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}
