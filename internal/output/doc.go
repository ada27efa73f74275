// Package output writes generated documents to their destinations.
//
// [FileWriter] replaces its target atomically so the preview server never
// serves a half-written page; [StdoutWriter] backs the "-" output path.
package output
