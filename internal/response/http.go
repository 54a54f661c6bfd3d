package response

type APIResponse[T any] struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	Data     T         `json:"data"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Warning reports a non-fatal condition alongside a successful payload.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
