package service

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ai-redteam-be/internal/dto"
	"ai-redteam-be/internal/entity"
	"ai-redteam-be/internal/repository/contract"
	repomem "ai-redteam-be/internal/repository/memory"
	"ai-redteam-be/pkg/apperr"
	"ai-redteam-be/pkg/chunker"
	"ai-redteam-be/pkg/embedding"
	"ai-redteam-be/pkg/events"
	"ai-redteam-be/pkg/extract"
	"ai-redteam-be/pkg/vectorstore"
	vsmemory "ai-redteam-be/pkg/vectorstore/memory"
)

type documentFixture struct {
	svc        IDocumentService
	store      vectorstore.Store
	publisher  *fakePublisher
	registries map[string]contract.DocumentRepository
	uploadDir  string
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()

	ch, err := chunker.New(500, 50)
	if err != nil {
		t.Fatalf("chunker.New: %v", err)
	}

	store := vsmemory.NewStore(embedding.NewHashingProvider(0))
	publisher := &fakePublisher{}
	registries := map[string]contract.DocumentRepository{
		entity.ModeRag:       repomem.NewDocumentRepository(),
		entity.ModeMultiuser: repomem.NewDocumentRepository(),
	}
	dir := t.TempDir()

	return &documentFixture{
		svc:        NewDocumentService(extract.New(), ch, store, registries, publisher, dir, nopLogger{}),
		store:      store,
		publisher:  publisher,
		registries: registries,
		uploadDir:  dir,
	}
}

// uploadFile builds a real multipart file header the way fiber hands them to
// the controller.
func uploadFile(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("files", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"][0]
}

func TestUploadInvalidMode(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.Upload(context.Background(), nil, "alice", entity.ModeSimple)
	if !errors.Is(err, apperr.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestUploadRagFile(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()
	content := []byte("The vault code is 9143.")

	res, err := f.svc.Upload(ctx, []*multipart.FileHeader{uploadFile(t, "notes.txt", content)}, "alice", entity.ModeRag)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if res.SessionId != "alice" {
		t.Errorf("session id changed: %q", res.SessionId)
	}
	if len(res.UploadedFiles) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res.UploadedFiles))
	}

	r := res.UploadedFiles[0]
	if r.Status != dto.UploadStatusReady {
		t.Fatalf("expected ready, got %q (%s)", r.Status, r.Error)
	}
	if r.ChunkCount != 1 || r.Size != len(content) || r.FileId == "" {
		t.Errorf("unexpected result %+v", r)
	}

	// Raw file kept on disk next to the index.
	if _, err := os.Stat(filepath.Join(f.uploadDir, r.FileId+"_notes.txt")); err != nil {
		t.Errorf("uploaded file not saved: %v", err)
	}

	hits, err := f.store.Collection(vectorstore.NamespaceForSession("alice")).Query(ctx, "vault code", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 indexed chunk, got %d", len(hits))
	}
	if hits[0].Metadata.Filename != "notes.txt" || hits[0].Metadata.Shared {
		t.Errorf("unexpected chunk metadata %+v", hits[0].Metadata)
	}

	// Rag uploads must never touch the shared namespace.
	sharedHits, _ := f.store.Collection(vectorstore.SharedNamespace).Query(ctx, "vault code", 3)
	if len(sharedHits) != 0 {
		t.Errorf("rag upload leaked into shared namespace: %d hits", len(sharedHits))
	}

	docs, _ := f.registries[entity.ModeRag].BySession(ctx, "alice")
	if len(docs) != 1 || docs[0].ChunkCount != 1 || docs[0].Shared {
		t.Errorf("unexpected registry state %+v", docs)
	}

	if !f.publisher.has(events.TypeDocumentIndexed) {
		t.Error("expected a document.indexed event")
	}
}

func TestUploadGeneratesSessionId(t *testing.T) {
	f := newDocumentFixture(t)

	res, err := f.svc.Upload(context.Background(), []*multipart.FileHeader{uploadFile(t, "a.txt", []byte("hello"))}, "", entity.ModeRag)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.SessionId == "" {
		t.Error("expected a generated session id")
	}
}

func TestUploadMultiuserWritesBothNamespaces(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, []*multipart.FileHeader{
		uploadFile(t, "secrets.txt", []byte("The admin password is hunter2.")),
	}, "alice", entity.ModeMultiuser)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.UploadedFiles[0].Status != dto.UploadStatusReady {
		t.Fatalf("upload failed: %s", res.UploadedFiles[0].Error)
	}

	sessionHits, _ := f.store.Collection(vectorstore.NamespaceForSession("alice")).Query(ctx, "admin password", 3)
	if len(sessionHits) != 1 {
		t.Fatalf("expected session chunk, got %d", len(sessionHits))
	}
	if !strings.Contains(sessionHits[0].ChunkID, "_session_alice") {
		t.Errorf("unexpected session chunk id %q", sessionHits[0].ChunkID)
	}

	sharedHits, _ := f.store.Collection(vectorstore.SharedNamespace).Query(ctx, "admin password", 3)
	if len(sharedHits) != 1 {
		t.Fatalf("expected shared chunk, got %d", len(sharedHits))
	}
	if !strings.HasSuffix(sharedHits[0].ChunkID, "_shared") {
		t.Errorf("unexpected shared chunk id %q", sharedHits[0].ChunkID)
	}
	if !sharedHits[0].Metadata.Shared || sharedHits[0].Metadata.SessionID != "alice" {
		t.Errorf("unexpected shared metadata %+v", sharedHits[0].Metadata)
	}

	shared, _ := f.registries[entity.ModeMultiuser].Shared(ctx)
	if len(shared) != 1 || !shared[0].Shared {
		t.Errorf("shared registry wrong: %+v", shared)
	}
}

func TestUploadBadFileDoesNotFailBatch(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, []*multipart.FileHeader{
		uploadFile(t, "readme.txt", []byte("plain text content")),
		uploadFile(t, "broken.docx", []byte("not a zip archive")),
	}, "alice", entity.ModeRag)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if len(res.UploadedFiles) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.UploadedFiles))
	}
	if res.UploadedFiles[0].Status != dto.UploadStatusReady {
		t.Errorf("good file not indexed: %+v", res.UploadedFiles[0])
	}
	if res.UploadedFiles[1].Status != dto.UploadStatusError || res.UploadedFiles[1].Error == "" {
		t.Errorf("bad file not reported: %+v", res.UploadedFiles[1])
	}

	docs, _ := f.registries[entity.ModeRag].BySession(ctx, "alice")
	if len(docs) != 1 || docs[0].Filename != "readme.txt" {
		t.Errorf("registry should hold only the good file: %+v", docs)
	}
}

func TestSessionDocumentsRag(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Upload(ctx, []*multipart.FileHeader{uploadFile(t, "notes.txt", []byte("hello world"))}, "alice", entity.ModeRag); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	resp, err := f.svc.SessionDocuments(ctx, "alice", entity.ModeRag)
	if err != nil {
		t.Fatalf("SessionDocuments: %v", err)
	}
	docs, ok := resp.Documents.([]entity.Document)
	if !ok {
		t.Fatalf("expected []entity.Document, got %T", resp.Documents)
	}
	if len(docs) != 1 || docs[0].Filename != "notes.txt" {
		t.Errorf("unexpected documents %+v", docs)
	}
}

func TestSessionDocumentsMultiuser(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Upload(ctx, []*multipart.FileHeader{uploadFile(t, "secrets.txt", []byte("classified"))}, "alice", entity.ModeMultiuser); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	bob, err := f.svc.SessionDocuments(ctx, "bob", entity.ModeMultiuser)
	if err != nil {
		t.Fatalf("SessionDocuments: %v", err)
	}
	bobDocs, ok := bob.Documents.(dto.MultiuserDocuments)
	if !ok {
		t.Fatalf("expected MultiuserDocuments, got %T", bob.Documents)
	}
	if len(bobDocs.OwnDocuments) != 0 {
		t.Errorf("bob owns nothing, got %+v", bobDocs.OwnDocuments)
	}
	if len(bobDocs.AccessibleShared) != 1 {
		t.Fatalf("expected 1 accessible shared doc, got %d", len(bobDocs.AccessibleShared))
	}
	if bobDocs.AccessibleShared[0].AccessType != "shared_cross_session" || bobDocs.AccessibleShared[0].Filename != "secrets.txt" {
		t.Errorf("unexpected shared doc %+v", bobDocs.AccessibleShared[0])
	}

	// The uploader sees the document as their own, never as foreign.
	alice, _ := f.svc.SessionDocuments(ctx, "alice", entity.ModeMultiuser)
	aliceDocs := alice.Documents.(dto.MultiuserDocuments)
	if len(aliceDocs.OwnDocuments) != 1 || len(aliceDocs.AccessibleShared) != 0 {
		t.Errorf("unexpected uploader view %+v", aliceDocs)
	}
}

func TestSessionDocumentsInvalidMode(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.SessionDocuments(context.Background(), "alice", entity.ModeGuardrails)
	if !errors.Is(err, apperr.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}
