// Package constants provides shared constants used across the codebase.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum upload request size in bytes (32MB)
	MaxUploadSize = 32 << 20

	// MaxMultipartMemory is the part of a multipart form kept in memory before spilling to disk
	MaxMultipartMemory = 8 << 20
)

// Multipart form fields
const (
	// FormFieldUsername carries the target username
	FormFieldUsername = "username"

	// FormFieldFile carries the uploaded image
	FormFieldFile = "file"
)

// Messaging constants
const (
	// DefaultEnrollmentQueue is the RabbitMQ queue receiving enrollment events
	DefaultEnrollmentQueue = "facial.template.enrolled"
)
