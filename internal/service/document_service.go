package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"ai-redteam-be/internal/dto"
	"ai-redteam-be/internal/entity"
	"ai-redteam-be/internal/pkg/logger"
	"ai-redteam-be/internal/repository/contract"
	"ai-redteam-be/pkg/apperr"
	"ai-redteam-be/pkg/chunker"
	"ai-redteam-be/pkg/extract"
	"ai-redteam-be/pkg/vectorstore"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Upload(ctx context.Context, files []*multipart.FileHeader, sessionId, mode string) (*dto.UploadResponse, error)
	SessionDocuments(ctx context.Context, sessionId, mode string) (*dto.SessionDocumentsResponse, error)
}

type documentService struct {
	extractor  *extract.Extractor
	chunker    *chunker.Chunker
	store      vectorstore.Store
	registries map[string]contract.DocumentRepository
	publisher  IPublisherService
	uploadDir  string
	logger     logger.ILogger
}

// NewDocumentService wires the upload pipeline. registries must hold one
// repository per document-capable mode ("rag" and "multiuser"); other modes
// are rejected.
func NewDocumentService(
	extractor *extract.Extractor,
	chunker *chunker.Chunker,
	store vectorstore.Store,
	registries map[string]contract.DocumentRepository,
	publisher IPublisherService,
	uploadDir string,
	logger logger.ILogger,
) IDocumentService {
	return &documentService{
		extractor:  extractor,
		chunker:    chunker,
		store:      store,
		registries: registries,
		publisher:  publisher,
		uploadDir:  uploadDir,
		logger:     logger,
	}
}

func (d *documentService) Upload(ctx context.Context, files []*multipart.FileHeader, sessionId, mode string) (*dto.UploadResponse, error) {
	repo, ok := d.registries[mode]
	if !ok {
		return nil, apperr.ErrInvalidMode
	}
	if sessionId == "" {
		sessionId = uuid.New().String()
	}

	if err := os.MkdirAll(d.uploadDir, 0o755); err != nil {
		return nil, err
	}

	// One bad file must not fail the batch, so every file gets its own
	// result with a status.
	results := make([]dto.UploadedFileResult, 0, len(files))
	for _, fh := range files {
		results = append(results, d.processFile(ctx, fh, sessionId, mode, repo))
	}

	return &dto.UploadResponse{
		UploadedFiles: results,
		SessionId:     sessionId,
	}, nil
}

func (d *documentService) processFile(
	ctx context.Context,
	fh *multipart.FileHeader,
	sessionId, mode string,
	repo contract.DocumentRepository,
) dto.UploadedFileResult {
	fileId := uuid.New().String()
	res := dto.UploadedFileResult{
		FileId:   fileId,
		Filename: fh.Filename,
	}

	fail := func(err error) dto.UploadedFileResult {
		d.logger.Error("DOCUMENT", "Upload failed", map[string]interface{}{
			"filename":   fh.Filename,
			"session_id": sessionId,
			"mode":       mode,
			"error":      err.Error(),
		})
		res.Status = dto.UploadStatusError
		res.Error = err.Error()
		return res
	}

	src, err := fh.Open()
	if err != nil {
		return fail(err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return fail(err)
	}
	res.Size = len(data)

	// The raw file is kept on disk next to the index, named after its id so
	// duplicate filenames never clash.
	path := filepath.Join(d.uploadDir, fileId+"_"+filepath.Base(fh.Filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fail(err)
	}

	doc, err := d.index(ctx, data, filepath.Base(fh.Filename), path, sessionId, mode)
	if err != nil {
		return fail(err)
	}

	if err := repo.Save(ctx, doc); err != nil {
		return fail(err)
	}

	d.publisher.PublishDocumentIndexed(ctx, mode, sessionId, doc.DocumentID, doc.Filename, doc.ChunkCount, doc.Shared)
	d.logger.Info("DOCUMENT", "Document indexed", map[string]interface{}{
		"document_id": doc.DocumentID,
		"filename":    doc.Filename,
		"chunk_count": doc.ChunkCount,
		"session_id":  sessionId,
		"shared":      doc.Shared,
	})

	res.Status = dto.UploadStatusReady
	res.ChunkCount = doc.ChunkCount
	return res
}

// index extracts, chunks and embeds one file. In multiuser mode chunks are
// written twice: into the session namespace and into the shared one, which
// is what makes cross-session retrieval possible.
func (d *documentService) index(ctx context.Context, data []byte, filename, path, sessionId, mode string) (entity.Document, error) {
	text, err := d.extractor.Text(filename, data)
	if err != nil {
		return entity.Document{}, err
	}

	chunks := d.chunker.Split(text)
	docId := uuid.New().String()
	shared := mode == entity.ModeMultiuser

	sessionColl := d.store.Collection(vectorstore.NamespaceForSession(sessionId))
	for i, chunk := range chunks {
		chunkId := fmt.Sprintf("%s_chunk_%d", docId, i)
		if shared {
			chunkId += "_session_" + sessionId
		}
		meta := vectorstore.ChunkMetadata{
			DocumentID: docId,
			Filename:   filename,
			ChunkIndex: i,
			SessionID:  sessionId,
			Shared:     shared,
		}
		if err := sessionColl.Add(ctx, chunkId, chunk, meta); err != nil {
			return entity.Document{}, err
		}
	}

	if shared {
		sharedColl := d.store.Collection(vectorstore.SharedNamespace)
		for i, chunk := range chunks {
			meta := vectorstore.ChunkMetadata{
				DocumentID: docId,
				Filename:   filename,
				ChunkIndex: i,
				SessionID:  sessionId,
				Shared:     true,
			}
			if err := sharedColl.Add(ctx, fmt.Sprintf("%s_chunk_%d_shared", docId, i), chunk, meta); err != nil {
				return entity.Document{}, err
			}
		}
	}

	return entity.Document{
		DocumentID: docId,
		Filename:   filename,
		ChunkCount: len(chunks),
		UploadTime: time.Now(),
		FilePath:   path,
		SessionID:  sessionId,
		Shared:     shared,
	}, nil
}

func (d *documentService) SessionDocuments(ctx context.Context, sessionId, mode string) (*dto.SessionDocumentsResponse, error) {
	repo, ok := d.registries[mode]
	if !ok {
		return nil, apperr.ErrInvalidMode
	}

	own, err := repo.BySession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if own == nil {
		own = []entity.Document{}
	}

	if mode != entity.ModeMultiuser {
		return &dto.SessionDocumentsResponse{SessionId: sessionId, Documents: own}, nil
	}

	shared, err := repo.Shared(ctx)
	if err != nil {
		return nil, err
	}

	// Other sessions' shared documents are reachable on purpose; the access
	// type labels them so the frontend can show what leaked.
	accessible := make([]dto.SharedDocumentInfo, 0, len(shared))
	for _, doc := range shared {
		if doc.SessionID == sessionId {
			continue
		}
		accessible = append(accessible, dto.SharedDocumentInfo{
			Document:   doc,
			AccessType: "shared_cross_session",
		})
	}

	return &dto.SessionDocumentsResponse{
		SessionId: sessionId,
		Documents: dto.MultiuserDocuments{
			OwnDocuments:     own,
			AccessibleShared: accessible,
		},
	}, nil
}
