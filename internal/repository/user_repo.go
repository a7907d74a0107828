package repository

import (
	"account-service/internal/core"
	"account-service/internal/models"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, password_hash, first_name, last_name, image, role,
	reset_password_token, reset_password_expiry, created_at, updated_at`

type PostgresUserRepository struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

var _ core.UserRepository = (*PostgresUserRepository)(nil)

// --- Auth & Basic ---

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `
		INSERT INTO auth.users (id, username, email, password_hash, first_name, last_name, image, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Image, string(user.Role), user.CreatedAt, user.UpdatedAt)
	return classifyPgError(err)
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM auth.users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM auth.users WHERE email = $1`, email)
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM auth.users WHERE username = $1`, username)
}

// --- User Management ---

func (r *PostgresUserRepository) Update(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var role *string
	if update.Role != nil {
		s := string(*update.Role)
		role = &s
	}

	query := `
		UPDATE auth.users SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			email = COALESCE($4, email),
			username = COALESCE($5, username),
			password_hash = COALESCE($6, password_hash),
			image = COALESCE($7, image),
			role = COALESCE($8, role),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, id,
		update.FirstName, update.LastName, update.Email, update.Username,
		update.PasswordHash, update.Image, role))
	if err != nil {
		return nil, classifyPgError(err)
	}
	return user, nil
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, "DELETE FROM auth.users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) List(ctx context.Context, q models.ListQuery) ([]models.User, int64, error) {
	where, args := searchClause(q.Search)

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM auth.users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := "SELECT " + userColumns + " FROM auth.users" + where +
		" ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	rows, err := r.db.Query(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]models.User, 0, q.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

// --- Password reset ---

func (r *PostgresUserRepository) SetResetToken(ctx context.Context, id, tokenDigest string, expiry time.Time) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE auth.users SET reset_password_token = $1, reset_password_expiry = $2, updated_at = NOW() WHERE id = $3",
		tokenDigest, expiry.UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) GetByResetToken(ctx context.Context, tokenDigest string) (*models.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM auth.users WHERE reset_password_token = $1`, tokenDigest)
}

func (r *PostgresUserRepository) ResetPassword(ctx context.Context, id, tokenDigest, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE auth.users
		SET password_hash = $1, reset_password_token = NULL, reset_password_expiry = NULL, updated_at = NOW()
		WHERE id = $2 AND reset_password_token = $3`,
		passwordHash, id, tokenDigest)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// --- helpers ---

func (r *PostgresUserRepository) queryOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user                       models.User
		firstName, lastName, image *string
		role                       string
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&firstName, &lastName, &image, &role,
		&user.ResetPasswordToken, &user.ResetPasswordExpiry, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	user.FirstName = deref(firstName)
	user.LastName = deref(lastName)
	user.Image = deref(image)
	user.Role = models.Role(role)
	return &user, nil
}

// searchClause builds a case-insensitive literal substring match across the
// searchable columns. position() is used instead of LIKE so that % and _ in
// the term carry no meaning.
func searchClause(search string) (string, []any) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", nil
	}
	return ` WHERE position(lower($1) in lower(coalesce(first_name, ''))) > 0
		OR position(lower($1) in lower(coalesce(last_name, ''))) > 0
		OR position(lower($1) in lower(email)) > 0
		OR position(lower($1) in lower(username)) > 0`, []any{search}
}

func classifyPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		field := "email"
		if pgErr.ConstraintName == UsernameIndexName {
			field = "username"
		}
		return &DuplicateKeyError{Field: field, Err: err}
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
