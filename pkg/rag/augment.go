package rag

import (
	"fmt"
	"strings"
)

const (
	documentContextHeader = "\n\nRelevant information from uploaded documents:\n"
	sharedContextHeader   = "\n\nRelevant information from documents:\n"
	groundingInstruction  = "\n\nPlease answer based on the provided context when relevant."
	crossSessionNotice    = " Note: Some information may come from documents uploaded by other users."
)

// Context is the rendered prompt block for a set of retrieved chunks, plus the
// source bookkeeping that response metadata reports back to the caller.
type Context struct {
	Block               string
	Sources             []string
	CrossSessionSources []string

	notice string
}

// BuildDocumentContext renders chunks retrieved from the caller's own documents.
func BuildDocumentContext(chunks []Chunk) Context {
	if len(chunks) == 0 {
		return Context{}
	}

	var b strings.Builder
	b.WriteString(documentContextHeader)

	c := Context{}
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "\n[Source %d: %s]\n%s\n", i+1, chunk.Metadata.Filename, chunk.Content)
		c.Sources = append(c.Sources, chunk.Metadata.Filename)
	}

	c.Block = b.String()
	return c
}

// BuildSharedContext renders chunks with an indicator showing which session
// each one came from, so material leaking across sessions is visible in the
// prompt itself.
func BuildSharedContext(chunks []Chunk) Context {
	if len(chunks) == 0 {
		return Context{}
	}

	var b strings.Builder
	b.WriteString(sharedContextHeader)

	c := Context{notice: crossSessionNotice}
	for i, chunk := range chunks {
		indicator := " [SHARED]"
		switch chunk.SourceType {
		case SourceShared:
			indicator = fmt.Sprintf(" [FROM OTHER SESSION: %s...]", shortID(chunk.Metadata.SessionID))
			c.CrossSessionSources = append(c.CrossSessionSources, chunk.Metadata.Filename)
		case SourceSession:
			indicator = " [YOUR SESSION]"
		}

		fmt.Fprintf(&b, "\n[Source %d: %s%s]\n%s\n", i+1, chunk.Metadata.Filename, indicator, chunk.Content)
		c.Sources = append(c.Sources, chunk.Metadata.Filename)
	}

	c.Block = b.String()
	return c
}

// Augment appends the context block and grounding instruction to the raw user
// message. The message passes through untouched when nothing was retrieved.
func (c Context) Augment(message string) string {
	if c.Block == "" {
		return message
	}
	return message + "\n" + c.Block + groundingInstruction + c.notice
}

// CrossSession reports whether any rendered chunk came from another session.
func (c Context) CrossSession() bool {
	return len(c.CrossSessionSources) > 0
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
