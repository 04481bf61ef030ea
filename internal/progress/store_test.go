package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCellStore struct {
	mock.Mock
}

func (m *MockCellStore) WorksheetRowCount(ctx context.Context, spreadsheetID, worksheet string) (int, bool, error) {
	args := m.Called(ctx, spreadsheetID, worksheet)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockCellStore) CreateWorksheet(ctx context.Context, spreadsheetID, worksheet string, header []string) error {
	args := m.Called(ctx, spreadsheetID, worksheet, header)
	return args.Error(0)
}

func (m *MockCellStore) ReadCell(ctx context.Context, spreadsheetID, a1 string) (string, bool, error) {
	args := m.Called(ctx, spreadsheetID, a1)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCellStore) UpdateRow(ctx context.Context, spreadsheetID, a1 string, values []string) error {
	args := m.Called(ctx, spreadsheetID, a1, values)
	return args.Error(0)
}

const sheetID = "control-1"

func existingWorksheet(cells *MockCellStore) {
	cells.On("WorksheetRowCount", mock.Anything, sheetID, "System_Memory").Return(2, true, nil)
}

func TestStore_Load(t *testing.T) {
	cells := new(MockCellStore)
	existingWorksheet(cells)
	cells.On("ReadCell", mock.Anything, sheetID, "System_Memory!B2").
		Return(`{"state_idx":0,"dist_idx":3,"city_idx":1,"cat_idx":2}`, true, nil)

	p := New(cells, sheetID).Load(context.Background())
	assert.Equal(t, Position{StateIdx: 0, DistIdx: 3, CityIdx: 1, CatIdx: 2}, p)
}

func TestStore_Load_EmptyCellMeansZero(t *testing.T) {
	cells := new(MockCellStore)
	existingWorksheet(cells)
	cells.On("ReadCell", mock.Anything, sheetID, "System_Memory!B2").Return("", false, nil)

	p := New(cells, sheetID).Load(context.Background())
	assert.Equal(t, Position{}, p)
}

func TestStore_Load_ReadErrorMeansZero(t *testing.T) {
	cells := new(MockCellStore)
	existingWorksheet(cells)
	cells.On("ReadCell", mock.Anything, sheetID, "System_Memory!B2").
		Return("", false, errors.New("storage unavailable"))

	p := New(cells, sheetID).Load(context.Background())
	assert.Equal(t, Position{}, p)
}

func TestStore_Load_CorruptPayloadMeansZero(t *testing.T) {
	cells := new(MockCellStore)
	existingWorksheet(cells)
	cells.On("ReadCell", mock.Anything, sheetID, "System_Memory!B2").Return("{broken", true, nil)

	p := New(cells, sheetID).Load(context.Background())
	assert.Equal(t, Position{}, p)
}

func TestStore_Load_IgnoresUnknownKeys(t *testing.T) {
	cells := new(MockCellStore)
	existingWorksheet(cells)
	cells.On("ReadCell", mock.Anything, sheetID, "System_Memory!B2").
		Return(`{"dist_idx":5,"surprise_field":"ignored","city_idx":1}`, true, nil)

	p := New(cells, sheetID).Load(context.Background())
	assert.Equal(t, Position{DistIdx: 5, CityIdx: 1}, p)
}

func TestStore_Load_CreatesWorksheetLazily(t *testing.T) {
	cells := new(MockCellStore)
	cells.On("WorksheetRowCount", mock.Anything, sheetID, "System_Memory").Return(0, false, nil)
	cells.On("CreateWorksheet", mock.Anything, sheetID, "System_Memory",
		[]string{"KEY", "VALUE", "LAST_UPDATED", "DESCRIPTION"}).Return(nil)
	cells.On("ReadCell", mock.Anything, sheetID, "System_Memory!B2").Return("", false, nil)

	p := New(cells, sheetID).Load(context.Background())
	assert.Equal(t, Position{}, p)
	cells.AssertExpectations(t)
}

func TestStore_Save(t *testing.T) {
	cells := new(MockCellStore)
	existingWorksheet(cells)
	cells.On("UpdateRow", mock.Anything, sheetID, "System_Memory!A2", mock.MatchedBy(func(row []string) bool {
		return len(row) == 4 &&
			row[0] == "CURRENT_PROGRESS" &&
			row[1] == `{"state_idx":0,"dist_idx":2,"city_idx":0,"cat_idx":1}` &&
			row[2] == "2026-08-24 10:30:00"
	})).Return(nil)

	s := New(cells, sheetID)
	s.now = func() time.Time { return time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC) }
	s.Save(context.Background(), Position{DistIdx: 2, CatIdx: 1})
	cells.AssertExpectations(t)
}

func TestStore_Save_WriteErrorIsSwallowed(t *testing.T) {
	cells := new(MockCellStore)
	existingWorksheet(cells)
	cells.On("UpdateRow", mock.Anything, sheetID, "System_Memory!A2", mock.Anything).
		Return(errors.New("storage unavailable"))

	require.NotPanics(t, func() {
		New(cells, sheetID).Save(context.Background(), Position{DistIdx: 1})
	})
}

func TestStore_SaveThenLoadRoundTrip(t *testing.T) {
	cells := new(MockCellStore)
	existingWorksheet(cells)

	var stored string
	cells.On("UpdateRow", mock.Anything, sheetID, "System_Memory!A2", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
			stored = args.Get(3).([]string)[1]
		})

	s := New(cells, sheetID)
	want := Position{StateIdx: 1, DistIdx: 7, CityIdx: 2, CatIdx: 3}
	s.Save(context.Background(), want)

	cells.On("ReadCell", mock.Anything, sheetID, "System_Memory!B2").Return(stored, true, nil)
	assert.Equal(t, want, s.Load(context.Background()))
}
