// internal/workers/infrastructure/build-report-response/models.go
package buildreportresponse

type Input struct {
	TemplateId string                 `json:"templateId"`
	RequestId  string                 `json:"requestId"`
	Data       map[string]interface{} `json:"data"`
}

type Output struct {
	Response ResponsePayload `json:"response"`
}

// ResponsePayload is the envelope handed back to the process: the filled
// template under data, wrapped with request identity and build metadata.
type ResponsePayload struct {
	RequestId string                 `json:"requestId"`
	Status    string                 `json:"status"`
	Data      map[string]interface{} `json:"data"`
	Metadata  ResponseMetadata       `json:"metadata"`
}

type ResponseMetadata struct {
	Timestamp string `json:"timestamp"` // RFC 3339
	Version   string `json:"version"`
}

// TemplateDefinition is one entry of the response-template registry file.
// Schema validates the incoming data before substitution; Template is the
// envelope structure with {{dot.path}} placeholders.
type TemplateDefinition struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Schema   map[string]interface{} `json:"schema"`
	Template map[string]interface{} `json:"template"`
	Version  string                 `json:"version"`
}
