// Package common contains shared constants and sentinel errors used across
// gophfiles components.
package common

// Request header names understood by the upload and download endpoints.
const (
	// AuthorizationHeaderName carries the bearer credential.
	AuthorizationHeaderName = "Authorization"
	// PrivateHeaderName marks uploaded files as private when present.
	PrivateHeaderName = "W-Private"
	// TagsHeaderName carries a ';'-separated list of tags for uploaded files.
	TagsHeaderName = "W-Tags"
	// DomainsHeaderName overrides the host alias list used to build public URLs.
	DomainsHeaderName = "W-Domains"
)

// DefaultUploadTag is applied when an upload request carries no tags.
const DefaultUploadTag = "api upload"

// MaxBatchSize is the maximum number of files accepted by one upload request.
const MaxBatchSize = 10
