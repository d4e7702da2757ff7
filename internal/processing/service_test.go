package processing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/RMahshie/bridgesim/internal/archive"
	"github.com/RMahshie/bridgesim/internal/repository/postgres"
	"github.com/RMahshie/bridgesim/internal/solver"
	"github.com/RMahshie/bridgesim/internal/storage"
	"github.com/RMahshie/bridgesim/pkg/models"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MockRunRepository implements repository.RunRepository for testing
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Create(ctx context.Context, run *models.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Run), args.Error(1)
}

func (m *MockRunRepository) List(ctx context.Context, limit int) ([]*models.Run, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.Run), args.Error(1)
}

func (m *MockRunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	args := m.Called(ctx, id, status, progress)
	return args.Error(0)
}

func (m *MockRunRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	args := m.Called(ctx, id, errorMsg)
	return args.Error(0)
}

func (m *MockRunRepository) SetArchive(ctx context.Context, id uuid.UUID, archiveKey string, nonConvergent bool) error {
	args := m.Called(ctx, id, archiveKey, nonConvergent)
	return args.Error(0)
}

func (m *MockRunRepository) StoreResults(ctx context.Context, results *models.RunResults) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}

func (m *MockRunRepository) GetResults(ctx context.Context, runID uuid.UUID) (*models.RunResults, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(*models.RunResults), args.Error(1)
}

// MockArchiveStore implements storage.ArchiveStore for testing
type MockArchiveStore struct {
	mock.Mock
	uploaded []byte
}

func (m *MockArchiveStore) UploadFile(ctx context.Context, key string, contentType string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.uploaded = data
	args := m.Called(ctx, key, contentType, size)
	return args.Error(0)
}

func (m *MockArchiveStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockArchiveStore) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockArchiveStore) DeleteFile(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func testRun(id uuid.UUID) *models.Run {
	return &models.Run{
		ID:     id.String(),
		Label:  "reference",
		Status: models.StatusPending,
		Params: models.RunParams{
			SourceUnit:    "um",
			InternalUnit:  "um",
			Gap:           2500,
			BridgeWidth:   8000,
			Resolution:    0.02,
			FreqCenterGHz: 5,
			FreqWidthGHz:  4,
		},
	}
}

func TestProcessRun(t *testing.T) {
	ctx := context.Background()
	runID := uuid.New()

	repo := new(MockRunRepository)
	store := new(MockArchiveStore)

	for _, progress := range []int{10, 20, 40, 70, 80, 90} {
		repo.On("UpdateStatus", mock.Anything, runID, models.StatusProcessing, progress).Return(nil).Once()
	}
	repo.On("GetByID", mock.Anything, runID).Return(testRun(runID), nil)
	key := storage.ArchiveKey(runID.String(), "results.npz")
	store.On("UploadFile", mock.Anything, key, "application/zip", mock.AnythingOfType("int64")).Return(nil)
	repo.On("SetArchive", mock.Anything, runID, key, false).Return(nil)

	var stored *models.RunResults
	repo.On("StoreResults", mock.Anything, mock.AnythingOfType("*models.RunResults")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.RunResults) }).
		Return(nil)
	repo.On("UpdateStatus", mock.Anything, runID, models.StatusCompleted, 100).Return(nil).Once()

	svc := NewProcessingService(store, repo, solver.NewSynthetic(), t.TempDir(), archive.FormatNPZ)
	require.NoError(t, svc.ProcessRun(ctx, runID))

	repo.AssertExpectations(t)
	store.AssertExpectations(t)
	repo.AssertNotCalled(t, "UpdateError", mock.Anything, mock.Anything, mock.Anything)

	require.NotNil(t, stored)
	assert.Equal(t, runID.String(), stored.RunID)
	require.Len(t, stored.Points, 50)
	for _, p := range stored.Points {
		assert.LessOrEqual(t, p.S11dB, 0.0)
		assert.LessOrEqual(t, p.S21dB, 0.0)
	}
	assert.InDelta(t, 1.0, stored.Points[0].FrequencyGHz, 1e-9)
	assert.Greater(t, stored.TraceLength, 1)
	assert.Greater(t, stored.ScatteredEndTime, 0.0)
	assert.False(t, stored.NonConvergent)

	// npz files are zip archives
	require.NotEmpty(t, store.uploaded)
	assert.Equal(t, []byte("PK"), store.uploaded[:2])
}

func TestProcessRun_NonConvergent(t *testing.T) {
	runID := uuid.New()
	run := testRun(runID)
	run.Params.MaxTime = 500

	repo := new(MockRunRepository)
	store := new(MockArchiveStore)
	repo.On("UpdateStatus", mock.Anything, runID, mock.Anything, mock.Anything).Return(nil)
	repo.On("GetByID", mock.Anything, runID).Return(run, nil)
	store.On("UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("SetArchive", mock.Anything, runID, mock.Anything, true).Return(nil)
	repo.On("StoreResults", mock.Anything, mock.MatchedBy(func(r *models.RunResults) bool {
		return r.NonConvergent
	})).Return(nil)

	constant := solver.NewSynthetic(solver.WithSignal(func(float64) float64 { return 1 }))
	svc := NewProcessingService(store, repo, constant, t.TempDir(), archive.FormatXLSX)
	require.NoError(t, svc.ProcessRun(context.Background(), runID))

	repo.AssertExpectations(t)
	store.AssertCalled(t, "UploadFile", mock.Anything, storage.ArchiveKey(runID.String(), "results.xlsx"),
		archive.FormatXLSX.ContentType(), mock.Anything)
}

func TestProcessRun_InvalidParams(t *testing.T) {
	runID := uuid.New()
	run := testRun(runID)
	run.Params.SourceUnit = "furlong"

	repo := new(MockRunRepository)
	repo.On("UpdateStatus", mock.Anything, runID, models.StatusProcessing, mock.Anything).Return(nil)
	repo.On("GetByID", mock.Anything, runID).Return(run, nil)
	repo.On("UpdateError", mock.Anything, runID, mock.MatchedBy(func(msg string) bool {
		return len(msg) > 0
	})).Return(nil)

	svc := NewProcessingService(new(MockArchiveStore), repo, solver.NewSynthetic(), t.TempDir(), archive.FormatNPZ)
	assert.NoError(t, svc.ProcessRun(context.Background(), runID))

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "StoreResults", mock.Anything, mock.Anything)
}

type crashingSolver struct{}

func (crashingSolver) Run(context.Context, models.SimulationConfig, ...solver.StepHook) (*models.SimulationResult, error) {
	return nil, errors.New("driver exited")
}

func TestProcessRun_SolverFailure(t *testing.T) {
	runID := uuid.New()

	repo := new(MockRunRepository)
	repo.On("UpdateStatus", mock.Anything, runID, models.StatusProcessing, mock.Anything).Return(nil)
	repo.On("GetByID", mock.Anything, runID).Return(testRun(runID), nil)
	repo.On("UpdateError", mock.Anything, runID, mock.Anything).Return(nil)

	svc := NewProcessingService(new(MockArchiveStore), repo, crashingSolver{}, t.TempDir(), archive.FormatNPZ)
	err := svc.ProcessRun(context.Background(), runID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver exited")

	repo.AssertCalled(t, "UpdateError", mock.Anything, runID, mock.Anything)
}

func TestProcessRun_UploadFailure(t *testing.T) {
	runID := uuid.New()

	repo := new(MockRunRepository)
	store := new(MockArchiveStore)
	repo.On("UpdateStatus", mock.Anything, runID, models.StatusProcessing, mock.Anything).Return(nil)
	repo.On("GetByID", mock.Anything, runID).Return(testRun(runID), nil)
	repo.On("UpdateError", mock.Anything, runID, "Failed to upload result archive").Return(nil)
	store.On("UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

	svc := NewProcessingService(store, repo, solver.NewSynthetic(), t.TempDir(), archive.FormatNPZ)
	assert.Error(t, svc.ProcessRun(context.Background(), runID))

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "SetArchive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestFullRunPipeline_Integration runs a synthetic study against real PostgreSQL and MinIO
func TestFullRunPipeline_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	pg, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("bridgesim_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, pg.Terminate(ctx)) }()

	mc, err := minio.Run(ctx,
		"minio/minio:RELEASE.2024-10-29T16-01-48Z",
		minio.WithUsername("minioadmin"),
		minio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, mc.Terminate(ctx)) }()

	dbURL, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	defer db.Close()

	schema, err := os.ReadFile("../../migrations/001_init.up.sql")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, string(schema))
	require.NoError(t, err)

	minioURL, err := mc.ConnectionString(ctx)
	require.NoError(t, err)
	store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
		Endpoint:  minioURL,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "bridgesim-test-" + uuid.New().String()[:8],
	})
	require.NoError(t, err)

	repo := postgres.NewPostgresRunRepository(db)
	run := testRun(uuid.Nil)
	run.ID = ""
	require.NoError(t, repo.Create(ctx, run))
	runID := uuid.MustParse(run.ID)

	svc := NewProcessingService(store, repo, solver.NewSynthetic(), t.TempDir(), archive.FormatNPZ)
	require.NoError(t, svc.ProcessRun(ctx, runID))

	final, err := repo.GetByID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.NotNil(t, final.CompletedAt)
	require.NotNil(t, final.ArchiveKey)

	results, err := repo.GetResults(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, results.Points, 50)

	data, err := store.DownloadFile(ctx, *final.ArchiveKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), data[:2])
}
