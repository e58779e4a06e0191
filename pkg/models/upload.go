// API request/response types for file ingestion
package models

// UploadSourceKind tags which of the two request shapes an upload is. The
// decision is made once at the request boundary and never re-inferred
// deeper in the call chain.
type UploadSourceKind string

const (
	UploadSourceSingleFile UploadSourceKind = "single_file"
	UploadSourceDirectory  UploadSourceKind = "directory"
)

// UploadCandidate is a filtered local file awaiting upload.
type UploadCandidate struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// UploadFailure is a per-file structured failure inside a batch.
type UploadFailure struct {
	File   string `json:"file"`
	Detail string `json:"detail"`
}

// UploadResult reports a single or batch upload outcome. A batch is an
// overall success when at least one file uploaded; Failures lists the rest.
type UploadResult struct {
	Uploaded int             `json:"uploaded"`
	FileIDs  []string        `json:"file_ids"`
	Failures []UploadFailure `json:"failures,omitempty"`
}

// DirectoryUploadRequest names a server-local directory to ingest.
type DirectoryUploadRequest struct {
	Directory   string `json:"directory"`
	AssistantID string `json:"assistant_id"`
	Purpose     string `json:"purpose"`
}
