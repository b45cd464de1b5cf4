package identity

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("HANDLEAUTH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HANDLEAUTH_TEST_POSTGRES_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresRepositoryTenantScopedLookup(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	suffix := time.Now().UnixNano()
	table := fmt.Sprintf("office_user_test_%d", suffix)
	fileTable := "file"

	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+fileTable+` (
	id uuid PRIMARY KEY, filename text, mimetype text, size bigint, url text)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `CREATE TABLE `+table+` (
	id uuid PRIMARY KEY, tenant_id uuid NOT NULL, email text NOT NULL, password text NOT NULL,
	name text NOT NULL, phone text, image_file_id uuid)`)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DROP TABLE `+table) })

	const (
		tenantID = "0b8a3f4e-1c2d-4e5f-9a6b-7c8d9e0f1a2b"
		userID   = "3f1c2a4e-5b6d-4e7f-8a9b-0c1d2e3f4a5b"
	)
	_, err = pool.Exec(ctx, `INSERT INTO `+table+` (id, tenant_id, email, password, name)
VALUES ($1, $2, 'ops@x.com', 'hash', 'Ops')`, userID, tenantID)
	require.NoError(t, err)

	repo := NewPostgresRepository(pool, Table{Name: table, TenantScoped: true})

	p, err := repo.FindByEmail(ctx, tenantID, "ops@x.com")
	require.NoError(t, err)
	assert.Equal(t, userID, p.ID)
	assert.Equal(t, tenantID, p.TenantID)
	assert.Equal(t, "hash", p.PasswordHash)
	assert.Nil(t, p.Image)

	_, err = repo.FindByID(ctx, "1c9b4f5e-2d3e-4f6a-8b7c-8d9e0f1a2b3c", userID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByID(ctx, "not-a-uuid", userID)
	assert.ErrorIs(t, err, ErrNotFound)
}
