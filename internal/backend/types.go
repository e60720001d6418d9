package backend

import "fmt"

// MinutesResult is the backend's answer for one uploaded unit (whole file or
// one segment).
type MinutesResult struct {
	Summary      string `json:"summary"`
	DynamicTitle string `json:"dynamic_title"`
}

// Metadata is caller-supplied and attached verbatim to every upload request
// for a given file. All segments of the same file carry identical metadata.
type Metadata struct {
	CreatedDate  string
	Creator      string
	CustomerName string
	MeetingPlace string
}

// DynamicTitle composes the same title the backend derives from the metadata
// fields. Used as a local fallback when a response carries no title.
func (m Metadata) DynamicTitle() string {
	return fmt.Sprintf("%s_%s_%s_%s_議事録", m.CreatedDate, m.Creator, m.CustomerName, m.MeetingPlace)
}

// UploadTicket is a short-lived write handle: a pre-authorized storage URL
// plus the opaque blob name the backend will process afterwards.
type UploadTicket struct {
	UploadURL string `json:"upload_url"`
	BlobName  string `json:"blob_name"`
}
