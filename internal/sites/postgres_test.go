package sites

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/auditkit/seopipeline/internal/audit"
)

func TestActiveSitesReturnsOrderedRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	source, err := NewPostgresSourceWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT domain, COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"domain", "label"}).
			AddRow("alpha.example", "Alpha Store").
			AddRow("beta.example", "beta.example"))

	got, err := source.ActiveSites(context.Background())
	require.NoError(t, err)
	require.Equal(t, []audit.Site{
		{Domain: "alpha.example", Label: "Alpha Store"},
		{Domain: "beta.example", Label: "beta.example"},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveSitesWrapsQueryError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	source, err := NewPostgresSourceWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT domain, COALESCE").
		WillReturnError(context.DeadlineExceeded)

	_, err = source.ActiveSites(context.Background())
	require.ErrorContains(t, err, "query active sites")
}

func TestNewPostgresSourceRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresSource(context.Background(), PostgresConfig{})
	require.Error(t, err)
}

func TestNewPostgresSourceWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresSourceWithPool(nil)
	require.Error(t, err)
}
