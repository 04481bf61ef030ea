package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) OpenByTitle(ctx context.Context, title string) (string, bool, error) {
	args := m.Called(ctx, title)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockDirectory) CreateSpreadsheet(ctx context.Context, title string) (string, error) {
	args := m.Called(ctx, title)
	return args.String(0), args.Error(1)
}

func (m *MockDirectory) Share(ctx context.Context, spreadsheetID, email string) error {
	args := m.Called(ctx, spreadsheetID, email)
	return args.Error(0)
}

func TestSheetTitle(t *testing.T) {
	assert.Equal(t, "IBD_Maharashtra", SheetTitle("Maharashtra"))
	assert.Equal(t, "IBD_Andhra_Pradesh", SheetTitle("Andhra Pradesh"))
	assert.Equal(t, "IBD_Dadra___Nagar_Haveli", SheetTitle("Dadra & Nagar Haveli"))
}

func TestRouter_ForState_OpensExisting(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("OpenByTitle", mock.Anything, "IBD_Kerala").Return("ss-9", true, nil)

	r := NewRouter(dir, "admin@example.com")
	tctx, err := r.ForState(context.Background(), "Kerala")
	require.NoError(t, err)
	assert.Equal(t, TableContext{SpreadsheetID: "ss-9", Title: "IBD_Kerala"}, tctx)
	dir.AssertNotCalled(t, "CreateSpreadsheet", mock.Anything, mock.Anything)
}

func TestRouter_ForState_CreatesAndSharesOnFirstEncounter(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("OpenByTitle", mock.Anything, "IBD_Goa").Return("", false, nil)
	dir.On("CreateSpreadsheet", mock.Anything, "IBD_Goa").Return("ss-new", nil)
	dir.On("Share", mock.Anything, "ss-new", "admin@example.com").Return(nil)

	r := NewRouter(dir, "admin@example.com")
	tctx, err := r.ForState(context.Background(), "Goa")
	require.NoError(t, err)
	assert.Equal(t, "ss-new", tctx.SpreadsheetID)
	dir.AssertExpectations(t)
}

func TestRouter_ForState_ShareFailureIsNotFatal(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("OpenByTitle", mock.Anything, "IBD_Goa").Return("", false, nil)
	dir.On("CreateSpreadsheet", mock.Anything, "IBD_Goa").Return("ss-new", nil)
	dir.On("Share", mock.Anything, "ss-new", "admin@example.com").Return(errors.New("permission api down"))

	r := NewRouter(dir, "admin@example.com")
	tctx, err := r.ForState(context.Background(), "Goa")
	require.NoError(t, err)
	assert.Equal(t, "ss-new", tctx.SpreadsheetID)
}

func TestRouter_ForState_NoAdminEmailSkipsSharing(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("OpenByTitle", mock.Anything, "IBD_Goa").Return("", false, nil)
	dir.On("CreateSpreadsheet", mock.Anything, "IBD_Goa").Return("ss-new", nil)

	r := NewRouter(dir, "")
	_, err := r.ForState(context.Background(), "Goa")
	require.NoError(t, err)
	dir.AssertNotCalled(t, "Share", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_ForState_Memoizes(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("OpenByTitle", mock.Anything, "IBD_Kerala").Return("ss-9", true, nil).Once()

	r := NewRouter(dir, "")
	first, err := r.ForState(context.Background(), "Kerala")
	require.NoError(t, err)
	second, err := r.ForState(context.Background(), "Kerala")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	dir.AssertNumberOfCalls(t, "OpenByTitle", 1)
}

func TestRouter_ForState_LookupErrorPropagates(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("OpenByTitle", mock.Anything, "IBD_Kerala").Return("", false, errors.New("drive unavailable"))

	r := NewRouter(dir, "")
	_, err := r.ForState(context.Background(), "Kerala")
	assert.Error(t, err)
}
