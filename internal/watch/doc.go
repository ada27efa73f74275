// Package watch runs the live-authoring loop for a deck. A Source reports
// batches of changed paths, a Relevance predicate filters them and an
// Orchestrator regenerates the page, the slide images and the presentation,
// then tells connected preview pages to reload.
package watch
