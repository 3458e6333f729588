package datastore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qiotlabs/aqimport/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, localPath string) (string, error) {
	args := m.Called(ctx, localPath)
	return args.String(0), args.Error(1)
}

func exportFixture() (*MockTelemetryStore, []schema.ImportRun) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []schema.ImportRun{{
		RunID: "r1", Period: "2020Q1", Format: schema.PollutionFormat, Status: schema.RunSucceeded,
		Items: 1, StartTime: start, EndTime: start.Add(time.Second),
	}}

	store := &MockTelemetryStore{}
	store.On("GetStatus").Return(schema.StoreStatus{Backend: "sqlite", Connected: true, TotalRuns: 1}, nil)
	store.On("ListRuns", mock.Anything).Return(runs, nil)
	store.On("ListMeasurements", mock.Anything, schema.GasFormat).Return([]schema.Measurement(nil), nil)
	store.On("ListMeasurements", mock.Anything, schema.PollutionFormat).Return([]schema.Measurement{milanPM25("2020-01-02")}, nil)
	store.On("ListMeasurements", mock.Anything, schema.WeatherFormat).Return([]schema.Measurement(nil), nil)
	return store, runs
}

func TestExecuteExport(t *testing.T) {
	store, _ := exportFixture()
	base := filepath.Join(t.TempDir(), "export")
	var out bytes.Buffer

	written, err := ExecuteExport(context.Background(), store, base, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{base + ".import_runs.parquet", base + ".pollution.parquet"}, written)

	for _, file := range written {
		_, err := os.Stat(file)
		assert.NoError(t, err)
	}
	_, err = os.Stat(base + ".gas.parquet")
	assert.True(t, os.IsNotExist(err), "Empty formats should not produce files")

	assert.Contains(t, out.String(), "Exported 1 import runs")
	assert.Contains(t, out.String(), "Exported 1 pollution measurements")
	store.AssertExpectations(t)
}

func TestExecuteExportUploads(t *testing.T) {
	store, _ := exportFixture()
	base := filepath.Join(t.TempDir(), "export")

	uploader := &mockUploader{}
	uploader.On("Upload", mock.Anything, base+".import_runs.parquet").Return("s3://bucket/export.import_runs.parquet", nil)
	uploader.On("Upload", mock.Anything, base+".pollution.parquet").Return("s3://bucket/export.pollution.parquet", nil)

	var out bytes.Buffer
	_, err := ExecuteExport(context.Background(), store, base, &out, uploader)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "s3://bucket/export.pollution.parquet")
	uploader.AssertExpectations(t)
}

func TestExecuteExportUploadFailure(t *testing.T) {
	store, _ := exportFixture()
	base := filepath.Join(t.TempDir(), "export")

	uploader := &mockUploader{}
	uploader.On("Upload", mock.Anything, mock.Anything).Return("", errors.New("access denied")).Once()

	_, err := ExecuteExport(context.Background(), store, base, &bytes.Buffer{}, uploader)
	assert.EqualError(t, err, "access denied")
}

func TestExecuteExportErrors(t *testing.T) {
	t.Run("missing output file", func(t *testing.T) {
		_, err := ExecuteExport(context.Background(), &MockTelemetryStore{}, "", &bytes.Buffer{}, nil)
		assert.Error(t, err)
	})

	t.Run("no runs", func(t *testing.T) {
		store := &MockTelemetryStore{}
		store.On("GetStatus").Return(schema.StoreStatus{Backend: "sqlite", Connected: true}, nil)
		_, err := ExecuteExport(context.Background(), store, filepath.Join(t.TempDir(), "x"), &bytes.Buffer{}, nil)
		assert.EqualError(t, err, "no import runs found to export")
	})

	t.Run("status failure", func(t *testing.T) {
		store := &MockTelemetryStore{}
		store.On("GetStatus").Return(schema.StoreStatus{}, errors.New("locked"))
		_, err := ExecuteExport(context.Background(), store, filepath.Join(t.TempDir(), "x"), &bytes.Buffer{}, nil)
		assert.ErrorContains(t, err, "locked")
	})
}

func TestExecuteExportFromSQLite(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	insertAll(t, store, schema.PollutionFormat, milanPM25("2020-01-02"))
	require.NoError(t, store.RecordRun(ctx, schema.ImportRun{RunID: "r1", Period: "2020Q1", Format: schema.PollutionFormat, Status: schema.RunSucceeded, Items: 1, StartTime: time.Now(), EndTime: time.Now()}))

	written, err := ExecuteExport(ctx, store, filepath.Join(t.TempDir(), "export"), &bytes.Buffer{}, nil)
	require.NoError(t, err)
	assert.Len(t, written, 2)
}
