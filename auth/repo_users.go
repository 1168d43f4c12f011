package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStore is the credential-store surface the auth flows depend on.
// Selects exclude the password hash and reset-token fields unless the
// method name says otherwise.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDWithPassword(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, name, email string) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SaveResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expire time.Time) error
	ClearResetToken(ctx context.Context, id uuid.UUID) error
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// Users is the full repository, adding the admin management surface on top
// of the flow-facing store.
type Users interface {
	UserStore

	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	Update(ctx context.Context, record *User) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users     = (*users)(nil)
	_ UserStore = (*users)(nil)
)

// NewUsersRepository builds the bun-backed users repository.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

// publicUserQuery applies the default projection: everything except the
// password hash and the reset-token pair.
func publicUserQuery(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		ExcludeColumn("password_hash").
		ExcludeColumn("reset_password_token").
		ExcludeColumn("reset_password_expire")
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := publicUserQuery(a.db.NewSelect().Model(record)).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	return checkedUser(record, err, map[string]any{"id": id.String()})
}

func (a *users) GetByIDWithPassword(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	return checkedUser(record, err, map[string]any{"id": id.String()})
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := publicUserQuery(a.db.NewSelect().Model(record)).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	return checkedUser(record, err, map[string]any{"email": email})
}

func (a *users) GetByEmailWithPassword(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	return checkedUser(record, err, map[string]any{"email": email})
}

// GetByResetToken matches on hash equality and an expiry still in the
// future. Both conditions live in the query so there is no window where an
// expired token matches.
func (a *users) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.reset_password_token = ?", tokenHash).
		Where("?TableAlias.reset_password_expire > ?", now).
		Limit(1).
		Scan(ctx)
	return checkedUser(record, err, nil)
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	if err := prepareUserDefaults(user); err != nil {
		return nil, err
	}
	return a.Repository.CreateTx(ctx, a.db, user)
}

func (a *users) UpdateDetails(ctx context.Context, id uuid.UUID, name, email string) (*User, error) {
	res, err := a.db.NewUpdate().Model((*User)(nil)).
		Set("name = ?", name).
		Set("email = ?", email).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureAffected(res, map[string]any{"id": id.String()}); err != nil {
		return nil, err
	}
	return a.GetByID(ctx, id)
}

func (a *users) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := a.db.NewUpdate().Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return ensureAffected(res, map[string]any{"id": id.String()})
}

func (a *users) SaveResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expire time.Time) error {
	res, err := a.db.NewUpdate().Model((*User)(nil)).
		Set("reset_password_token = ?", tokenHash).
		Set("reset_password_expire = ?", expire).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return ensureAffected(res, map[string]any{"id": id.String()})
}

func (a *users) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewUpdate().Model((*User)(nil)).
		Set("reset_password_token = NULL").
		Set("reset_password_expire = NULL").
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ResetPassword sets the new hash and clears the reset-token pair in a
// single statement.
func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := a.db.NewUpdate().Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("reset_password_token = NULL").
		Set("reset_password_expire = NULL").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return ensureAffected(res, map[string]any{"id": id.String()})
}

func (a *users) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	if limit <= 0 {
		limit = 25
	}

	var records []*User
	count, err := publicUserQuery(a.db.NewSelect().Model(&records)).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, count, nil
}

// Update writes the admin-editable columns only, so a record loaded through
// the public projection never clobbers the password hash or reset fields.
func (a *users) Update(ctx context.Context, record *User) (*User, error) {
	if record.Role != "" && !ValidRole(record.Role) {
		return nil, invalidRoleError(record.Role)
	}

	res, err := a.db.NewUpdate().Model((*User)(nil)).
		Set("name = ?", record.Name).
		Set("email = ?", record.Email).
		Set("user_role = ?", record.Role).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", record.ID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureAffected(res, map[string]any{"id": record.ID.String()}); err != nil {
		return nil, err
	}
	return a.GetByID(ctx, record.ID)
}

func (a *users) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return ensureAffected(res, map[string]any{"id": id.String()})
}

// prepareUserDefaults runs before every insert: assigns an id, applies the
// role default, and enforces the closed role set at the store boundary.
func prepareUserDefaults(record *User) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.EnsureRole()
	if !ValidRole(record.Role) {
		return invalidRoleError(record.Role)
	}
	return nil
}

func invalidRoleError(role UserRole) error {
	return goerrors.New("user has an unknown or invalid role", goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"role": role})
}
