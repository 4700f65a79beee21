package incremental

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/acs-loader/internal/model"
)

// --- Watermark Mock ---

type mockWatermark struct {
	mock.Mock
}

func (m *mockWatermark) MaxYear(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// --- Prober Mock ---

type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, year int, region string) error {
	args := m.Called(ctx, year, region)
	return args.Error(0)
}

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, year int, layout model.Layout, region string) ([]model.Record, error) {
	args := m.Called(ctx, year, layout, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Record), args.Error(1)
}

// --- Loader Mock ---

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Append(ctx context.Context, batch *model.Batch) (int64, error) {
	args := m.Called(ctx, batch)
	return args.Get(0).(int64), args.Error(1)
}

// --- RunLog Mock ---

type mockRunLog struct {
	mock.Mock
}

func (m *mockRunLog) Start(ctx context.Context, target string) (uuid.UUID, error) {
	args := m.Called(ctx, target)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockRunLog) Complete(ctx context.Context, id uuid.UUID, year int, rows int64, metadata map[string]any) error {
	args := m.Called(ctx, id, year, rows, metadata)
	return args.Error(0)
}

func (m *mockRunLog) NoNewData(ctx context.Context, id uuid.UUID, year int) error {
	args := m.Called(ctx, id, year)
	return args.Error(0)
}

func (m *mockRunLog) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}
