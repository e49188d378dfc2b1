package models

import "encoding/json"

// Collection names a set of images sharing one identifier namespace.
type Collection string

const (
	Catalog Collection = "catalog"
	Raw     Collection = "raw"
)

// Synthetic class filters understood by the image listing.
const (
	FilterAll         = ""
	FilterUnannotated = "__unannotated__"
	FilterNull        = NullLabel
)

// FileError reports one failed file in a bulk operation.
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// UnmarshalJSON accepts either {"file","error"} objects or bare identifier
// strings, which some endpoints report.
func (e *FileError) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*e = FileError{File: name}
		return nil
	}
	type plain FileError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = FileError(p)
	return nil
}

// BulkResult is the outcome of a bulk accept/delete/import. Partial failure
// is a normal result, not an error.
type BulkResult struct {
	Done   []string    `json:"done"`
	Failed []FileError `json:"failed"`
}

// FailedNames returns the identifiers that failed.
func (r BulkResult) FailedNames() []string {
	out := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.File)
	}
	return out
}

// ImagePage is one page of an image listing.
type ImagePage struct {
	Images   []string `json:"images"`
	Total    int      `json:"total"`
	Page     int      `json:"page,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
}

// AnnotationResponse is the body of GET /api/annotation. Error reports an
// unreadable stored record; Boxes is then whatever could be read.
type AnnotationResponse struct {
	Boxes []Box  `json:"boxes"`
	W     int    `json:"w"`
	H     int    `json:"h"`
	Error string `json:"error,omitempty"`
}

// AnnotateRequest is the body of POST /api/annotate. Boxes overwrite the
// whole stored list.
type AnnotateRequest struct {
	Image string `json:"image"`
	Boxes []Box  `json:"boxes"`
}

// OKResponse is the generic {ok} acknowledgement.
type OKResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ClassesPayload carries the class list in both directions.
type ClassesPayload struct {
	Classes []string `json:"classes"`
}

// BulkAnnotationsRequest is the body of POST /api/annotations_bulk.
type BulkAnnotationsRequest struct {
	Images []string `json:"images"`
}

// BulkAnnotationsResponse maps image identifiers to their boxes.
type BulkAnnotationsResponse struct {
	Items map[string]struct {
		Boxes []Box `json:"boxes"`
	} `json:"items"`
}

// FilesRequest names the files of a bulk accept or delete. Label is only
// meaningful for accept.
type FilesRequest struct {
	Files []string `json:"files"`
	Label string   `json:"label,omitempty"`
}

// AcceptResponse is returned by POST /api/raw/accept.
type AcceptResponse struct {
	Accepted []string    `json:"accepted"`
	Errors   []FileError `json:"errors"`
}

// DeleteResponse is returned by the delete endpoints.
type DeleteResponse struct {
	Deleted []string    `json:"deleted"`
	Errors  []FileError `json:"errors"`
}

// RemapRule renames every class in From to To during export.
type RemapRule struct {
	From []string `json:"from"`
	To   string   `json:"to"`
}

// Null handling modes for export.
const (
	NullSkip    = "skip"
	NullInclude = "include"
)

// ExportRequest is the body of POST /api/export_voc.
type ExportRequest struct {
	Classes       []string    `json:"classes"`
	Remap         []RemapRule `json:"remap"`
	NullHandling  string      `json:"null_handling"`
	AnnotatedOnly *bool       `json:"annotated_only,omitempty"`
}

// ExportResponse describes a finished export archive.
type ExportResponse struct {
	OK      bool   `json:"ok"`
	Count   int    `json:"count"`
	ZipName string `json:"zip_name"`
	ZipURL  string `json:"zip_url"`
	Error   string `json:"error,omitempty"`
}

// ImportResponse is returned by the zip import endpoints.
type ImportResponse struct {
	OK          bool     `json:"ok"`
	Message     string   `json:"message,omitempty"`
	Imported    int      `json:"imported"`
	FailedFiles []string `json:"failed_files,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// ProjectsResponse lists projects and the active one.
type ProjectsResponse struct {
	Projects []string `json:"projects"`
	Active   string   `json:"active"`
}

// ProjectResponse acknowledges a project switch or create.
type ProjectResponse struct {
	OK    bool   `json:"ok"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error,omitempty"`
}

// ProjectRequest is the body of the project switch/create endpoints.
type ProjectRequest struct {
	Name     string `json:"name"`
	MoveFrom string `json:"move_from,omitempty"`
}
