package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyInTx_EmptyRows(t *testing.T) {
	n, err := CopyInTx(context.TODO(), nil, "scratch.t", []string{"a"}, [][]any{})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyInTx_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"scratch", "t"}, []string{"a", "b"}).WillReturnResult(2)
	mock.ExpectCommit()

	n, err := CopyInTx(context.Background(), mock, "scratch.t", []string{"a", "b"}, [][]any{{1, "x"}, {2, "y"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInTx_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(fmt.Errorf("connection refused"))

	_, err = CopyInTx(context.Background(), mock, "scratch.t", []string{"a"}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInTx_CopyErrorRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"scratch", "t"}, []string{"a"}).WillReturnError(fmt.Errorf("permission denied"))
	mock.ExpectRollback()

	_, err = CopyInTx(context.Background(), mock, "scratch.t", []string{"a"}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO scratch.t")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInTx_CommitError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"scratch", "t"}, []string{"a"}).WillReturnResult(1)
	mock.ExpectCommit().WillReturnError(fmt.Errorf("serialization failure"))

	_, err = CopyInTx(context.Background(), mock, "scratch.t", []string{"a"}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit tx")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"scratch.census_commute", `"scratch"."census_commute"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := QuoteAndJoin([]string{"name", "b08303_001e", "year"})
	assert.Equal(t, `"name", "b08303_001e", "year"`, result)
}
