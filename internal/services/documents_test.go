package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/models"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]bool
}

func (m *memoryUserRepo) CreateIfAbsent(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = map[string]bool{}
	}
	if m.users[userID] {
		return false, nil
	}
	m.users[userID] = true
	return true, nil
}

func (m *memoryUserRepo) Exists(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID], nil
}

type memoryDocumentRepo struct {
	mu        sync.Mutex
	docs      []models.UserDocument
	createErr error
	clock     time.Time
}

func (m *memoryDocumentRepo) Create(ctx context.Context, document *models.UserDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if document.ID == uuid.Nil {
		document.ID = uuid.New()
	}
	m.clock = m.clock.Add(time.Second)
	document.CreatedAt = m.clock
	document.UpdatedAt = m.clock
	m.docs = append(m.docs, *document)
	return nil
}

func (m *memoryDocumentRepo) ListByUser(ctx context.Context, userID string) ([]models.UserDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserDocument
	for _, d := range m.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryDocumentRepo) FindLatest(ctx context.Context, userID string) (*models.UserDocument, error) {
	docs, _ := m.ListByUser(ctx, userID)
	if len(docs) == 0 {
		return nil, apperrors.New(apperrors.ErrDocumentNotFound, "FindLatest", "no documents for %s", userID)
	}
	return &docs[0], nil
}

func (m *memoryDocumentRepo) UpdateCVData(ctx context.Context, userID string, cv models.CVData) error {
	latest, err := m.FindLatest(ctx, userID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].ID == latest.ID {
			m.docs[i].CVData = datatypes.NewJSONType(cv)
			m.docs[i].UpdatedAt = m.docs[i].UpdatedAt.Add(time.Minute)
		}
	}
	return nil
}

type documentFixture struct {
	svc       DocumentService
	users     *memoryUserRepo
	docs      *memoryDocumentRepo
	store     *memoryVectorStore
	generator *fakeGenerator
	uploadDir string
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	f := &documentFixture{
		users:     &memoryUserRepo{},
		docs:      &memoryDocumentRepo{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		store:     &memoryVectorStore{},
		generator: &fakeGenerator{reply: acmeCVJSON},
		uploadDir: t.TempDir(),
	}
	embeddings := NewEmbeddingService(&hashEmbedder{}, f.store, 0, nil)
	f.svc = NewDocumentService(
		f.users,
		f.docs,
		NewStorageService(f.uploadDir),
		NewDocumentParserService(),
		NewCVAnalyzer(f.generator, nil),
		embeddings,
		nil,
	)
	return f
}

func acmeFile() models.DocumentFile {
	return models.DocumentFile{
		FileName: "jane.txt",
		MIMEType: "text/plain",
		Content:  []byte("Jane Doe\nSenior Engineer at Acme 2019-2023\nLed the billing migration"),
	}
}

func TestStoreDocumentCreatesOneRecordAndEmbedding(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	cv, err := f.svc.StoreDocument(ctx, acmeFile(), "u1")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if cv.PersonalInfo.Name != "Jane Doe" {
		t.Errorf("cv = %+v", cv)
	}

	docs, _ := f.svc.ListDocuments(ctx, "u1")
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(docs))
	}
	if docs[0].FileName != "jane.txt" || docs[0].FileType != MIMETypeText || docs[0].FilePath == "" {
		t.Errorf("document = %+v", docs[0])
	}

	records := f.store.all()
	if len(records) != 1 {
		t.Fatalf("embeddings = %d, want 1", len(records))
	}
	if records[0].Metadata.Type != models.EmbeddingTypeCVDocument || records[0].Metadata.UserID != "u1" {
		t.Errorf("metadata = %+v", records[0].Metadata)
	}
}

func TestStoreDocumentUnsupportedType(t *testing.T) {
	f := newDocumentFixture(t)

	file := models.DocumentFile{FileName: "cv.docx", MIMEType: "application/msword", Content: []byte("x")}
	_, err := f.svc.StoreDocument(context.Background(), file, "u1")
	if !errors.Is(err, apperrors.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if len(f.store.all()) != 0 || len(f.docs.docs) != 0 {
		t.Error("nothing should be stored")
	}
}

func TestStoreDocumentAnalysisFailureStoresNoRecord(t *testing.T) {
	f := newDocumentFixture(t)
	f.generator.err = errFake

	_, err := f.svc.StoreDocument(context.Background(), acmeFile(), "u1")
	if !errors.Is(err, errFake) {
		t.Fatalf("expected cause surfaced, got %v", err)
	}
	if len(f.store.all()) != 0 || len(f.docs.docs) != 0 {
		t.Error("nothing should be stored after a failed analysis")
	}
}

func TestStoreDocumentPersistenceFailure(t *testing.T) {
	f := newDocumentFixture(t)
	f.docs.createErr = errFake

	_, err := f.svc.StoreDocument(context.Background(), acmeFile(), "u1")
	if !errors.Is(err, apperrors.ErrStorageFailed) || !errors.Is(err, errFake) {
		t.Fatalf("expected ErrStorageFailed wrapping cause, got %v", err)
	}
	// earlier stages are not rolled back
	if len(f.store.all()) != 1 {
		t.Errorf("embedding should remain after a failed record write")
	}
}

func TestInitializeUserIdempotent(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.svc.InitializeUser(ctx, "u1"); err != nil {
			t.Fatalf("initialize #%d: %v", i, err)
		}
	}
	if len(f.users.users) != 1 {
		t.Errorf("users = %d, want 1", len(f.users.users))
	}
	if err := f.svc.InitializeUser(ctx, ""); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty id, got %v", err)
	}
}

func TestUpdateDocumentReplacesNewest(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	if _, err := f.svc.StoreDocument(ctx, acmeFile(), "u1"); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := f.svc.StoreDocument(ctx, acmeFile(), "u1"); err != nil {
		t.Fatalf("store: %v", err)
	}

	updated := models.CVData{PersonalInfo: models.PersonalInfo{Name: "Jane D.", Summary: "Edited"}}
	if err := f.svc.UpdateDocument(ctx, updated, "u1"); err != nil {
		t.Fatalf("update: %v", err)
	}

	docs, _ := f.svc.ListDocuments(ctx, "u1")
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want 2", len(docs))
	}
	if docs[0].CVData.Data().PersonalInfo.Name != "Jane D." || docs[1].CVData.Data().PersonalInfo.Name != "Jane Doe" {
		t.Error("only the newest document should change")
	}

	latest, err := f.svc.LatestCV(ctx, "u1")
	if err != nil || latest.PersonalInfo.Summary != "Edited" {
		t.Fatalf("latest = %+v, err = %v", latest, err)
	}
}

func TestUpdateDocumentWithoutDocuments(t *testing.T) {
	f := newDocumentFixture(t)

	err := f.svc.UpdateDocument(context.Background(), models.CVData{}, "nobody")
	if !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if _, err := f.svc.LatestCV(context.Background(), "nobody"); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}
