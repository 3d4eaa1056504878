// Package chapter provides the document model for one manuscript chapter.
//
// A chapter is plain text carrying beat markers (see package marker). Parse
// builds a Document: an optional chapter summary, an ordered list of beats
// and an optional closing sentinel. Serialize turns it back into text.
//
// # Round-trip
//
// Parse keeps the exact source bytes of every marker, summary and the
// whitespace around each beat's prose. Serialize reuses those bytes for any
// field that did not change, so
//
//	doc, _ := chapter.Parse(text)
//	doc.Serialize() == text
//
// holds for every accepted text, and an edit to one beat leaves every other
// byte of the file alone.
//
// # Editing
//
// Insert, Remove, ReplaceProse, Patch and Reorder return a new Document and
// never modify the receiver. Each beat's marker, summary and prose travel as
// one unit. A Document is meant to live for a single read-modify-write cycle:
// parse, edit, serialize, discard.
package chapter
