// Package corpus builds and serves a retrieval corpus for a
// question-answering assistant. It crawls a seed site, extracts text and
// embedded assets from heterogeneous formats, splits text into bounded
// chunks, ranks chunks against a query, and resolves asset markers emitted
// by a language model back to binary payloads.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, ollama/).
package corpus
