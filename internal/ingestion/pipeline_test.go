package ingestion

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/ragchat-backend/internal/repos"
	"github.com/yungbote/ragchat-backend/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ddl := `CREATE TABLE file (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		chat_id TEXT,
		file_name TEXT NOT NULL,
		file_type TEXT NOT NULL,
		file_size INTEGER,
		storage_url TEXT NOT NULL,
		storage_key TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'uploading',
		extracted_text TEXT,
		vector_namespace TEXT,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		error TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("create file table: %v", err)
	}
	return db
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(ctx context.Context, fileURL string, fileType string) (string, error) {
	return f.text, f.err
}

type fakeIndexer struct {
	err   error
	calls int
}

func (f *fakeIndexer) StoreFileChunks(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, fileName string, fileType string, chunks []string) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return len(chunks), nil
}

func seedFile(t *testing.T, fileRepo repos.FileRepo, userID uuid.UUID, status string) *types.File {
	t.Helper()
	f := &types.File{
		ID:         uuid.New(),
		UserID:     userID,
		FileName:   "notes.txt",
		FileType:   "text/plain",
		StorageURL: "https://storage.example/notes.txt",
		StorageKey: "chat_uploads/x/notes.txt",
		Status:     status,
	}
	if _, err := fileRepo.Create(context.Background(), nil, []*types.File{f}); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	return f
}

func TestIngestHappyPath(t *testing.T) {
	db := openTestDB(t)
	log := testLogger(t)
	fileRepo := repos.NewFileRepo(db, log)
	userID := uuid.New()
	seeded := seedFile(t, fileRepo, userID, types.FileStatusUploading)

	indexer := &fakeIndexer{}
	p := NewPipeline(log, fileRepo, &fakeExtractor{text: "some extracted text for the index"}, indexer)

	if err := p.Ingest(context.Background(), seeded.ID, userID); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	got, err := fileRepo.GetByID(context.Background(), nil, seeded.ID, userID)
	if err != nil || got == nil {
		t.Fatalf("reload file: %v", err)
	}
	if got.Status != types.FileStatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.ChunkCount != 1 {
		t.Fatalf("chunk count = %d, want 1", got.ChunkCount)
	}
	if got.VectorNamespace != "user-"+userID.String() {
		t.Fatalf("namespace = %q", got.VectorNamespace)
	}
	if got.ExtractedText != "some extracted text for the index" {
		t.Fatalf("preview = %q", got.ExtractedText)
	}
	if indexer.calls != 1 {
		t.Fatalf("indexer calls = %d, want 1", indexer.calls)
	}
}

func TestIngestEmptyTextCompletesWithZeroChunks(t *testing.T) {
	db := openTestDB(t)
	log := testLogger(t)
	fileRepo := repos.NewFileRepo(db, log)
	userID := uuid.New()
	seeded := seedFile(t, fileRepo, userID, types.FileStatusUploading)

	indexer := &fakeIndexer{}
	p := NewPipeline(log, fileRepo, &fakeExtractor{text: "   \n  "}, indexer)

	if err := p.Ingest(context.Background(), seeded.ID, userID); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	got, _ := fileRepo.GetByID(context.Background(), nil, seeded.ID, userID)
	if got.Status != types.FileStatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.ChunkCount != 0 {
		t.Fatalf("chunk count = %d, want 0", got.ChunkCount)
	}
	if indexer.calls != 0 {
		t.Fatalf("indexer should not run for empty text")
	}
	if !strings.Contains(string(got.Metadata), "no extractable text") {
		t.Fatalf("metadata missing warning: %s", got.Metadata)
	}
}

func TestIngestExtractionFailureMarksFailed(t *testing.T) {
	db := openTestDB(t)
	log := testLogger(t)
	fileRepo := repos.NewFileRepo(db, log)
	userID := uuid.New()
	seeded := seedFile(t, fileRepo, userID, types.FileStatusUploading)

	p := NewPipeline(log, fileRepo, &fakeExtractor{err: fmt.Errorf("failed to open pdf: broken")}, &fakeIndexer{})

	if err := p.Ingest(context.Background(), seeded.ID, userID); err == nil {
		t.Fatalf("expected ingestion error")
	}

	got, _ := fileRepo.GetByID(context.Background(), nil, seeded.ID, userID)
	if got.Status != types.FileStatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if !strings.Contains(got.Error, "broken") {
		t.Fatalf("error cause not recorded: %q", got.Error)
	}
}

func TestIngestIndexingFailureMarksFailed(t *testing.T) {
	db := openTestDB(t)
	log := testLogger(t)
	fileRepo := repos.NewFileRepo(db, log)
	userID := uuid.New()
	seeded := seedFile(t, fileRepo, userID, types.FileStatusUploading)

	p := NewPipeline(log, fileRepo, &fakeExtractor{text: "content"}, &fakeIndexer{err: fmt.Errorf("upsert exploded")})

	if err := p.Ingest(context.Background(), seeded.ID, userID); err == nil {
		t.Fatalf("expected ingestion error")
	}
	got, _ := fileRepo.GetByID(context.Background(), nil, seeded.ID, userID)
	if got.Status != types.FileStatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
}

func TestIngestSkipsTerminalStatuses(t *testing.T) {
	db := openTestDB(t)
	log := testLogger(t)
	fileRepo := repos.NewFileRepo(db, log)
	userID := uuid.New()

	for _, status := range []string{types.FileStatusProcessing, types.FileStatusCompleted, types.FileStatusFailed} {
		seeded := seedFile(t, fileRepo, userID, status)
		indexer := &fakeIndexer{}
		p := NewPipeline(log, fileRepo, &fakeExtractor{text: "content"}, indexer)

		if err := p.Ingest(context.Background(), seeded.ID, userID); err != nil {
			t.Fatalf("Ingest from %q: %v", status, err)
		}
		got, _ := fileRepo.GetByID(context.Background(), nil, seeded.ID, userID)
		if got.Status != status {
			t.Fatalf("status changed from %q to %q", status, got.Status)
		}
		if indexer.calls != 0 {
			t.Fatalf("indexer ran for status %q", status)
		}
	}
}

func TestIngestExtractedFromUploaded(t *testing.T) {
	db := openTestDB(t)
	log := testLogger(t)
	fileRepo := repos.NewFileRepo(db, log)
	userID := uuid.New()
	seeded := seedFile(t, fileRepo, userID, types.FileStatusUploaded)

	indexer := &fakeIndexer{}
	p := NewPipeline(log, fileRepo, &fakeExtractor{err: fmt.Errorf("must not be called")}, indexer)

	if err := p.IngestExtracted(context.Background(), seeded.ID, userID, "ocr text from the client"); err != nil {
		t.Fatalf("IngestExtracted: %v", err)
	}
	got, _ := fileRepo.GetByID(context.Background(), nil, seeded.ID, userID)
	if got.Status != types.FileStatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.ExtractedText != "ocr text from the client" {
		t.Fatalf("preview = %q", got.ExtractedText)
	}
	if indexer.calls != 1 {
		t.Fatalf("indexer calls = %d, want 1", indexer.calls)
	}
}

type panickingIndexer struct{}

func (panickingIndexer) StoreFileChunks(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, fileName string, fileType string, chunks []string) (int, error) {
	panic("malformed input blew up the parser")
}

func TestIngestAsyncSurvivesPanic(t *testing.T) {
	db := openTestDB(t)
	log := testLogger(t)
	fileRepo := repos.NewFileRepo(db, log)
	userID := uuid.New()
	seeded := seedFile(t, fileRepo, userID, types.FileStatusUploading)

	p := NewPipeline(log, fileRepo, &fakeExtractor{text: "content"}, panickingIndexer{})
	p.IngestAsync(seeded.ID, userID)

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := fileRepo.GetByID(context.Background(), nil, seeded.ID, userID)
		if err != nil {
			t.Fatalf("reload file: %v", err)
		}
		if got.Status == types.FileStatusFailed {
			if !strings.Contains(got.Error, "panic") {
				t.Fatalf("panic cause not recorded: %q", got.Error)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("file never marked failed after panic, status %q", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIngestPreviewTruncatedToLimit(t *testing.T) {
	db := openTestDB(t)
	log := testLogger(t)
	fileRepo := repos.NewFileRepo(db, log)
	userID := uuid.New()
	seeded := seedFile(t, fileRepo, userID, types.FileStatusUploading)

	longText := strings.Repeat("a", types.ExtractedTextPreviewLimit+500)
	p := NewPipeline(log, fileRepo, &fakeExtractor{text: longText}, &fakeIndexer{})

	if err := p.Ingest(context.Background(), seeded.ID, userID); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	got, _ := fileRepo.GetByID(context.Background(), nil, seeded.ID, userID)
	if len(got.ExtractedText) != types.ExtractedTextPreviewLimit {
		t.Fatalf("preview length = %d, want %d", len(got.ExtractedText), types.ExtractedTextPreviewLimit)
	}
}
