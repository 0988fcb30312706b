package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/ragchat-backend/internal/types"
)

type fakeBucket struct {
	uploadedKeys []string
	deletedKeys  []string
	uploadErr    error
	deleteErr    error
}

func (f *fakeBucket) UploadFile(ctx context.Context, key string, file io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploadedKeys = append(f.uploadedKeys, key)
	return nil
}

func (f *fakeBucket) DeleteFile(ctx context.Context, key string) error {
	f.deletedKeys = append(f.deletedKeys, key)
	return f.deleteErr
}

func (f *fakeBucket) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeBucket) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func (f *fakeBucket) GetPublicURL(key string) string {
	return "https://storage.example/" + key
}

type fakePipeline struct {
	asyncCalls     int
	extractedCalls int
	extractedText  string
	extractedErr   error
}

func (f *fakePipeline) Ingest(ctx context.Context, fileID uuid.UUID, userID uuid.UUID) error {
	return nil
}

func (f *fakePipeline) IngestExtracted(ctx context.Context, fileID uuid.UUID, userID uuid.UUID, extractedText string) error {
	f.extractedCalls++
	f.extractedText = extractedText
	return f.extractedErr
}

func (f *fakePipeline) IngestAsync(fileID uuid.UUID, userID uuid.UUID) {
	f.asyncCalls++
}

func (f *fakePipeline) IngestExtractedAsync(fileID uuid.UUID, userID uuid.UUID, extractedText string) {
}

type recordingDocIndex struct {
	fakeDocIndex
	deleteCalls  int
	deleteResult DeleteResult
}

func (r *recordingDocIndex) DeleteFileVectors(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, chunkCount int) DeleteResult {
	r.deleteCalls++
	return r.deleteResult
}

func TestUploadDocumentStartsIngestion(t *testing.T) {
	fileRepo := newFakeFileRepo()
	bucket := &fakeBucket{}
	pipe := &fakePipeline{}
	svc := NewFileService(testLogger(t), fileRepo, bucket, pipe, &fakeDocIndex{})

	userID := uuid.New()
	record, err := svc.Upload(context.Background(), userID, nil, "report.pdf", "application/pdf", 1234, strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if record.Status != types.FileStatusProcessing {
		t.Fatalf("reported status = %q, want processing", record.Status)
	}
	if pipe.asyncCalls != 1 {
		t.Fatalf("ingestion not started")
	}
	if len(bucket.uploadedKeys) != 1 || !strings.HasPrefix(bucket.uploadedKeys[0], "chat_uploads/") {
		t.Fatalf("uploaded keys = %#v", bucket.uploadedKeys)
	}
	if !strings.HasSuffix(bucket.uploadedKeys[0], "/report.pdf") {
		t.Fatalf("key should end with the file name: %q", bucket.uploadedKeys[0])
	}

	stored := fileRepo.files[record.ID]
	if stored == nil {
		t.Fatalf("record not persisted")
	}
	if stored.StorageURL != "https://storage.example/"+stored.StorageKey {
		t.Fatalf("storage url = %q", stored.StorageURL)
	}
}

func TestUploadImageParksForClientOCR(t *testing.T) {
	fileRepo := newFakeFileRepo()
	pipe := &fakePipeline{}
	svc := NewFileService(testLogger(t), fileRepo, &fakeBucket{}, pipe, &fakeDocIndex{})

	record, err := svc.Upload(context.Background(), uuid.New(), nil, "scan.png", "image/png", 100, strings.NewReader("png"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if record.Status != types.FileStatusUploaded {
		t.Fatalf("image status = %q, want uploaded", record.Status)
	}
	if pipe.asyncCalls != 0 {
		t.Fatalf("server-side ingestion must not start for images")
	}
	if fileRepo.files[record.ID].Status != types.FileStatusUploaded {
		t.Fatalf("stored status = %q", fileRepo.files[record.ID].Status)
	}
}

func TestUploadSanitizesFileName(t *testing.T) {
	fileRepo := newFakeFileRepo()
	svc := NewFileService(testLogger(t), fileRepo, &fakeBucket{}, &fakePipeline{}, &fakeDocIndex{})

	record, err := svc.Upload(context.Background(), uuid.New(), nil, `C:\Users\me\..\notes.txt`, "text/plain", 10, strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if record.FileName != "notes.txt" {
		t.Fatalf("file name = %q", record.FileName)
	}
	if strings.Contains(record.StorageKey, "..") {
		t.Fatalf("storage key carries path traversal: %q", record.StorageKey)
	}
}

func TestSubmitExtractedTextRunsSynchronously(t *testing.T) {
	userID := uuid.New()
	parked := &types.File{ID: uuid.New(), UserID: userID, FileName: "scan.png", Status: types.FileStatusUploaded}
	fileRepo := newFakeFileRepo(parked)
	pipe := &fakePipeline{}
	svc := NewFileService(testLogger(t), fileRepo, &fakeBucket{}, pipe, &fakeDocIndex{})

	if err := svc.SubmitExtractedText(context.Background(), userID, parked.ID, "ocr output"); err != nil {
		t.Fatalf("SubmitExtractedText: %v", err)
	}
	if pipe.extractedCalls != 1 || pipe.extractedText != "ocr output" {
		t.Fatalf("pipeline not invoked with the text: %d %q", pipe.extractedCalls, pipe.extractedText)
	}

	err := svc.SubmitExtractedText(context.Background(), userID, parked.ID, "   ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank text should be rejected, got %v", err)
	}
	err = svc.SubmitExtractedText(context.Background(), userID, uuid.New(), "text")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing file should 404, got %v", err)
	}
}

func TestDeleteCleansVectorsBlobAndRecord(t *testing.T) {
	userID := uuid.New()
	completed := &types.File{
		ID: uuid.New(), UserID: userID, FileName: "doc.pdf",
		Status: types.FileStatusCompleted, ChunkCount: 3, StorageKey: "chat_uploads/a/doc.pdf",
	}
	fileRepo := newFakeFileRepo(completed)
	bucket := &fakeBucket{}
	docIndex := &recordingDocIndex{deleteResult: DeleteResult{DeletedCount: 3}}
	svc := NewFileService(testLogger(t), fileRepo, bucket, &fakePipeline{}, docIndex)

	result, err := svc.Delete(context.Background(), userID, completed.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if result.DeletedVectors != 3 {
		t.Fatalf("deleted vectors = %d", result.DeletedVectors)
	}
	if docIndex.deleteCalls != 1 {
		t.Fatalf("vector cleanup not invoked")
	}
	if len(bucket.deletedKeys) != 1 || bucket.deletedKeys[0] != completed.StorageKey {
		t.Fatalf("blob not deleted: %#v", bucket.deletedKeys)
	}
	if _, exists := fileRepo.files[completed.ID]; exists {
		t.Fatalf("record still present")
	}
}

func TestDeleteSkipsVectorsForUnindexedFile(t *testing.T) {
	userID := uuid.New()
	pending := &types.File{
		ID: uuid.New(), UserID: userID, FileName: "doc.pdf",
		Status: types.FileStatusUploading, StorageKey: "chat_uploads/b/doc.pdf",
	}
	fileRepo := newFakeFileRepo(pending)
	docIndex := &recordingDocIndex{}
	svc := NewFileService(testLogger(t), fileRepo, &fakeBucket{}, &fakePipeline{}, docIndex)

	if _, err := svc.Delete(context.Background(), userID, pending.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if docIndex.deleteCalls != 0 {
		t.Fatalf("vector cleanup should be skipped for files that never indexed")
	}
}

func TestDeleteBlobFailureDoesNotBlockRecordDeletion(t *testing.T) {
	userID := uuid.New()
	completed := &types.File{
		ID: uuid.New(), UserID: userID, FileName: "doc.pdf",
		Status: types.FileStatusCompleted, ChunkCount: 1, StorageKey: "chat_uploads/c/doc.pdf",
	}
	fileRepo := newFakeFileRepo(completed)
	bucket := &fakeBucket{deleteErr: errors.New("bucket unavailable")}
	svc := NewFileService(testLogger(t), fileRepo, bucket, &fakePipeline{}, &recordingDocIndex{})

	if _, err := svc.Delete(context.Background(), userID, completed.ID); err != nil {
		t.Fatalf("Delete should survive blob failure: %v", err)
	}
	if _, exists := fileRepo.files[completed.ID]; exists {
		t.Fatalf("record not deleted after blob failure")
	}
}
