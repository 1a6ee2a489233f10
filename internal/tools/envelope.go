package tools

// Error kinds carried in tool envelopes. The agent retries on retryable
// kinds and reads the message aloud otherwise, so the set is closed.
const (
	KindValidationFailed = "VALIDATION_FAILED"
	KindNotFound         = "NOT_FOUND"
	KindToolFailed       = "TOOL_FAILED"
	KindTimeout          = "TIMEOUT"
)

// ToolError is the error half of a tool envelope.
type ToolError struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Envelope is the uniform tool response shape. Exactly one of Data and
// Error is set.
type Envelope struct {
	OK    bool                   `json:"ok"`
	Data  map[string]interface{} `json:"data,omitempty"`
	Error *ToolError             `json:"error,omitempty"`
}

func Success(data map[string]interface{}) Envelope {
	return Envelope{OK: true, Data: data}
}

func Failure(err *ToolError) Envelope {
	return Envelope{OK: false, Error: err}
}

func ValidationError(message string) *ToolError {
	return &ToolError{Kind: KindValidationFailed, Message: message, Retryable: false}
}

func NotFoundError(message string) *ToolError {
	return &ToolError{Kind: KindNotFound, Message: message, Retryable: false}
}

func ExecutionError(message string) *ToolError {
	return &ToolError{Kind: KindToolFailed, Message: message, Retryable: true}
}

func TimeoutError(message string) *ToolError {
	return &ToolError{Kind: KindTimeout, Message: message, Retryable: true}
}
