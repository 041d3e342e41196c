package types

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// CLIOutput is the JSON envelope every command emits in JSON mode.
type CLIOutput struct {
	SchemaVersion string       `json:"schemaVersion"`
	TraceID       string       `json:"traceId,omitempty"`
	Command       string       `json:"command"`
	Data          interface{}  `json:"data"`
	Warnings      []CLIWarning `json:"warnings"`
	Errors        []CLIError   `json:"errors"`
}

// CLIWarning is a non-fatal notice attached to command output.
type CLIWarning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// CLIError is a structured command error with a stable code.
type CLIError struct {
	Code         string                 `json:"code"`
	Message      string                 `json:"message"`
	HTTPStatus   int                    `json:"httpStatus,omitempty"`
	DeviceDetail string                 `json:"deviceDetail,omitempty"`
	Retryable    bool                   `json:"retryable"`
	Context      map[string]interface{} `json:"context,omitempty"`
}

type TableRenderer interface {
	Headers() []string
	Rows() [][]string
	EmptyMessage() string
}

type TableRenderable interface {
	AsTableRenderer() TableRenderer
}
