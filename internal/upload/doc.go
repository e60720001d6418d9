// Package upload selects and executes the upload strategy for one recording:
// a single direct request, a signed storage write followed by a processing
// notification, or local decomposition into per-segment direct uploads.
package upload
