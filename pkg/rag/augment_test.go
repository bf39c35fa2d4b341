package rag

import (
	"strings"
	"testing"

	"ai-redteam-be/pkg/vectorstore"
)

func TestBuildDocumentContextFormat(t *testing.T) {
	chunks := []Chunk{
		{Content: "Solar output peaks at noon.", Metadata: vectorstore.ChunkMetadata{Filename: "solar.txt"}},
		{Content: "Batteries store surplus energy.", Metadata: vectorstore.ChunkMetadata{Filename: "grid.pdf"}},
	}

	c := BuildDocumentContext(chunks)

	want := "\n\nRelevant information from uploaded documents:\n" +
		"\n[Source 1: solar.txt]\nSolar output peaks at noon.\n" +
		"\n[Source 2: grid.pdf]\nBatteries store surplus energy.\n"
	if c.Block != want {
		t.Errorf("context block mismatch:\ngot:  %q\nwant: %q", c.Block, want)
	}
	if len(c.Sources) != 2 || c.Sources[0] != "solar.txt" || c.Sources[1] != "grid.pdf" {
		t.Errorf("unexpected sources: %v", c.Sources)
	}
	if c.CrossSession() {
		t.Error("document context should never report cross-session sources")
	}
}

func TestAugmentAppendsInstruction(t *testing.T) {
	chunks := []Chunk{
		{Content: "Solar output peaks at noon.", Metadata: vectorstore.ChunkMetadata{Filename: "solar.txt"}},
	}

	got := BuildDocumentContext(chunks).Augment("How do panels work?")

	want := "How do panels work?\n" +
		"\n\nRelevant information from uploaded documents:\n" +
		"\n[Source 1: solar.txt]\nSolar output peaks at noon.\n" +
		"\n\nPlease answer based on the provided context when relevant."
	if got != want {
		t.Errorf("augmented message mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestAugmentWithoutContextIsPassthrough(t *testing.T) {
	if got := (Context{}).Augment("hello there"); got != "hello there" {
		t.Errorf("empty context should not touch the message, got %q", got)
	}
	if c := BuildDocumentContext(nil); c.Block != "" || len(c.Sources) != 0 {
		t.Errorf("nil chunks should produce an empty context, got %+v", c)
	}
	if c := BuildSharedContext(nil); c.Augment("hi") != "hi" {
		t.Errorf("empty shared context should not touch the message")
	}
}

func TestBuildSharedContextIndicators(t *testing.T) {
	chunks := []Chunk{
		{
			Content:    "My own notes.",
			Metadata:   vectorstore.ChunkMetadata{Filename: "notes.txt", SessionID: "bob-session-0001"},
			SourceType: SourceSession,
		},
		{
			Content:    "Acme acquisition plans.",
			Metadata:   vectorstore.ChunkMetadata{Filename: "secrets.txt", SessionID: "1234567890ab"},
			SourceType: SourceShared,
		},
		{
			Content:    "Company handbook text.",
			Metadata:   vectorstore.ChunkMetadata{Filename: "handbook.pdf", SessionID: "bob-session-0001"},
			SourceType: SourceOwnShared,
		},
	}

	c := BuildSharedContext(chunks)

	want := "\n\nRelevant information from documents:\n" +
		"\n[Source 1: notes.txt [YOUR SESSION]]\nMy own notes.\n" +
		"\n[Source 2: secrets.txt [FROM OTHER SESSION: 12345678...]]\nAcme acquisition plans.\n" +
		"\n[Source 3: handbook.pdf [SHARED]]\nCompany handbook text.\n"
	if c.Block != want {
		t.Errorf("shared context block mismatch:\ngot:  %q\nwant: %q", c.Block, want)
	}

	if !c.CrossSession() {
		t.Error("shared chunk from another session should mark the context cross-session")
	}
	if len(c.CrossSessionSources) != 1 || c.CrossSessionSources[0] != "secrets.txt" {
		t.Errorf("unexpected cross-session sources: %v", c.CrossSessionSources)
	}
	if len(c.Sources) != 3 {
		t.Errorf("all chunks should be listed as sources, got %v", c.Sources)
	}
}

func TestSharedAugmentCarriesNotice(t *testing.T) {
	chunks := []Chunk{
		{
			Content:    "Acme acquisition plans.",
			Metadata:   vectorstore.ChunkMetadata{Filename: "secrets.txt", SessionID: "1234567890ab"},
			SourceType: SourceShared,
		},
	}

	got := BuildSharedContext(chunks).Augment("what do you know about acme")

	wantSuffix := "\n\nPlease answer based on the provided context when relevant." +
		" Note: Some information may come from documents uploaded by other users."
	if !strings.HasSuffix(got, wantSuffix) {
		t.Errorf("shared augmentation should end with the cross-session notice, got %q", got)
	}
	if !strings.HasPrefix(got, "what do you know about acme\n") {
		t.Errorf("raw message should lead the augmented prompt, got %q", got)
	}
}

func TestShortSessionIndicator(t *testing.T) {
	chunks := []Chunk{
		{
			Content:    "stub",
			Metadata:   vectorstore.ChunkMetadata{Filename: "f.txt", SessionID: "abc"},
			SourceType: SourceShared,
		},
	}

	c := BuildSharedContext(chunks)
	if !strings.Contains(c.Block, "[FROM OTHER SESSION: abc...]") {
		t.Errorf("short session ids should pass through untruncated, got %q", c.Block)
	}
}
