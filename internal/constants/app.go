// Package constants provides shared constants for the focustime calendar engine
package constants

// AppIdentifier is the marker embedded in every calendar event created by
// this application. Events carrying it in their private extended properties
// are "managed" and may be replaced wholesale on resync; events without it
// were authored by the user and are never touched.
const AppIdentifier = "EntryPath FocusTime"

// ProviderGoogle is the only calendar provider currently wired in.
const ProviderGoogle = "google"
