package gemini

// Part is one unit of request payload: text, inline bytes or a reference to a staged file.
type Part struct {
	Text       string    `json:"text,omitempty"`
	InlineData *Blob     `json:"inlineData,omitempty"`
	FileData   *FileData `json:"fileData,omitempty"`
}

type Blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type FileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func InlinePart(base64Data, mimeType string) Part {
	return Part{InlineData: &Blob{Data: base64Data, MimeType: mimeType}}
}

func FilePart(uri, mimeType string) Part {
	return Part{FileData: &FileData{FileURI: uri, MimeType: mimeType}}
}

// Schema is the OpenAPI subset accepted as responseSchema.
type Schema struct {
	Type             string             `json:"type"`
	Description      string             `json:"description,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
	Required         []string           `json:"required,omitempty"`
	Items            *Schema            `json:"items,omitempty"`
	Minimum          *float64           `json:"minimum,omitempty"`
	Maximum          *float64           `json:"maximum,omitempty"`
	Enum             []string           `json:"enum,omitempty"`
}

// Request is one logical generateContent call.
type Request struct {
	Model          string
	Parts          []Part
	Schema         *Schema
	Search         bool
	ThinkingBudget int
	Temperature    float64
}

type Citation struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

type Response struct {
	Text      string
	Citations []Citation
}

// FileState is the processing state of a staged file.
type FileState string

const (
	FileStatePending    FileState = "pending"
	FileStateProcessing FileState = "processing"
	FileStateReady      FileState = "ready"
	FileStateFailed     FileState = "failed"
)

// File is the handle of a file staged through the Files API.
type File struct {
	Name     string
	URI      string
	MimeType string
	State    FileState
}
