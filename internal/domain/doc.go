// Package domain contains the core entities of the application: documents
// and their extraction state, artifact keys and records with their typed
// payloads, and scheduled review entries. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
