package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool used by PostgresRepository.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Table describes one principal table.
type Table struct {
	// Name is the unquoted table name, e.g. "super_admin" or "user".
	Name string
	// TenantScoped tables carry a tenant_id column that every lookup filters on.
	TenantScoped bool
}

// Tables used by the four roles.
var (
	SuperAdminTable  = Table{Name: "super_admin"}
	TenantAdminTable = Table{Name: "tenant_admin", TenantScoped: true}
	OfficeUserTable  = Table{Name: "office_user", TenantScoped: true}
	UserTable        = Table{Name: "user"}
)

// PostgresRepository reads principals from one table, joining the optional
// profile image from the file table.
type PostgresRepository struct {
	db           Querier
	selectSQL    string
	tenantScoped bool
}

// NewPostgresRepository returns a Repository over table.
func NewPostgresRepository(db Querier, table Table) *PostgresRepository {
	name := pgx.Identifier{table.Name}.Sanitize()
	tenantCol := "NULL::text"
	if table.TenantScoped {
		tenantCol = "p.tenant_id::text"
	}
	return &PostgresRepository{
		db: db,
		selectSQL: `SELECT p.id::text, ` + tenantCol + `, p.email, p.password, p.name, COALESCE(p.phone, ''),
	f.id::text, f.filename, f.mimetype, f.size, f.url
FROM ` + name + ` p
LEFT JOIN file f ON f.id = p.image_file_id
WHERE `,
		tenantScoped: table.TenantScoped,
	}
}

func (r *PostgresRepository) FindByID(ctx context.Context, tenantID, id string) (Principal, error) {
	return r.findOne(ctx, "p.id = $1::text::uuid", tenantID, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, tenantID, email string) (Principal, error) {
	return r.findOne(ctx, "lower(p.email) = lower($1)", tenantID, email)
}

// findOne casts uuid parameters on the server so malformed input surfaces as
// InvalidTextRepresentation rather than a client-side encode error.
func (r *PostgresRepository) findOne(ctx context.Context, cond, tenantID, value string) (Principal, error) {
	query := r.selectSQL + cond
	args := []any{value}
	if r.tenantScoped {
		query += ` AND p.tenant_id = $2::text::uuid`
		args = append(args, tenantID)
	} else if tenantID != "" {
		return Principal{}, ErrNotFound
	}

	var (
		p                                   Principal
		tenant                              *string
		fileID, filename, mimetype, fileURL *string
		fileSize                            *int64
	)
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&p.ID, &tenant, &p.Email, &p.PasswordHash, &p.Name, &p.Phone,
		&fileID, &filename, &mimetype, &fileSize, &fileURL,
	)
	if err != nil {
		return Principal{}, mapError(err)
	}
	if tenant != nil {
		p.TenantID = *tenant
	}
	if fileID != nil {
		p.Image = &Image{
			ID:       *fileID,
			Filename: deref(filename),
			Mimetype: deref(mimetype),
			URL:      deref(fileURL),
		}
		if fileSize != nil {
			p.Image.Size = *fileSize
		}
	}
	return p, nil
}

// mapError folds "no row" and malformed UUID input into ErrNotFound. A handle
// can only carry a syntactically valid UUID, but route tenant ids and emails
// reach this layer unchecked.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
		return ErrNotFound
	}
	return fmt.Errorf("identity: query principal: %w", err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
