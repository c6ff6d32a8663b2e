//go:build unit

package readstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"freshfold/internal/infra"
	"freshfold/tests/common/builder"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDBTX struct {
	mock.Mock
}

func (m *MockDBTX) Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error) {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(pgconn.CommandTag), mockArgs.Error(1)
}

func (m *MockDBTX) Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error) {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(pgx.Rows), mockArgs.Error(1)
}

func (m *MockDBTX) QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(pgx.Row)
}

// fakeRow copies fixed values into Scan destinations
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case *string:
			*p = r.values[i].(string)
		case *bool:
			*p = r.values[i].(bool)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFindByEmail(t *testing.T) {
	testUser := builder.NewUserBuilder()
	inactiveUser := builder.NewUserBuilder().AsInactive()

	tests := []struct {
		name      string
		email     string
		row       fakeRow
		wantUser  bool
		wantHash  string
		wantKind  infra.RepositoryErrorKind
		wantError bool
	}{
		{
			name:     "success - active user",
			email:    testUser.Email,
			row:      fakeRow{values: []any{testUser.ID, testUser.Email, testUser.Role, true, testUser.PasswordHash}},
			wantUser: true,
			wantHash: testUser.PasswordHash,
		},
		{
			name:     "success - inactive user (for validation)",
			email:    inactiveUser.Email,
			row:      fakeRow{values: []any{inactiveUser.ID, inactiveUser.Email, inactiveUser.Role, false, inactiveUser.PasswordHash}},
			wantUser: true,
			wantHash: inactiveUser.PasswordHash,
		},
		{
			name:      "user not found",
			email:     "notfound@example.com",
			row:       fakeRow{err: pgx.ErrNoRows},
			wantKind:  infra.KindNotFound,
			wantError: true,
		},
		{
			name:      "database error",
			email:     testUser.Email,
			row:       fakeRow{err: assert.AnError},
			wantKind:  infra.KindDBFailure,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB := new(MockDBTX)
			mockDB.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []interface{}{tt.email}).Return(tt.row)

			readStore := NewUserReadStore(mockDB, discardLogger())

			view, hash, err := readStore.FindByEmail(context.Background(), tt.email)

			if tt.wantError {
				assert.Error(t, err)
				assert.Nil(t, view)
				assert.Empty(t, hash)
				assert.True(t, infra.IsKind(err, tt.wantKind))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.email, view.Email)
				assert.Equal(t, tt.wantHash, hash)
			}

			mockDB.AssertExpectations(t)
		})
	}
}

func TestFindByID(t *testing.T) {
	testUser := builder.NewUserBuilder()

	tests := []struct {
		name      string
		row       fakeRow
		wantKind  infra.RepositoryErrorKind
		wantError bool
	}{
		{
			name: "success",
			row:  fakeRow{values: []any{testUser.ID, testUser.Email, testUser.Role, true}},
		},
		{
			name:      "user not found",
			row:       fakeRow{err: pgx.ErrNoRows},
			wantKind:  infra.KindNotFound,
			wantError: true,
		},
		{
			name:      "database error",
			row:       fakeRow{err: assert.AnError},
			wantKind:  infra.KindDBFailure,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB := new(MockDBTX)
			mockDB.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []interface{}{testUser.ID}).Return(tt.row)

			view, err := NewUserReadStore(mockDB, discardLogger()).FindByID(context.Background(), testUser.ID)

			if tt.wantError {
				assert.Nil(t, view)
				assert.True(t, infra.IsKind(err, tt.wantKind))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, testUser.BuildReadModel(), view)
			}

			mockDB.AssertExpectations(t)
		})
	}
}
