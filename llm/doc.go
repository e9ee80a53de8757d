// Package llm defines the abstract generation contract the pipeline depends
// on: blocking generation and streaming generation of text fragments. The
// concrete provider is selected once at startup through llm/factory; nothing
// in the pipeline re-resolves providers per call.
package llm
