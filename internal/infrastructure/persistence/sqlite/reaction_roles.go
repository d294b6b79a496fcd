package sqlite

import (
	"context"
	"database/sql"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"reactbot/internal/domain"
)

const selectReactionRole = `
SELECT message_id, reaction, role_id, type, channel_id
FROM reaction_roles`

func (s *Store) Get(ctx context.Context, messageID, reaction string) (*domain.ReactionRole, error) {
	row := s.db.QueryRowContext(ctx, selectReactionRole+`
WHERE message_id = ? AND reaction = ?
LIMIT 1;`, messageID, reaction)

	rr, err := scanReactionRole(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.NewIOError("sqlite: get reaction role", err)
	}
	return rr, nil
}

func (s *Store) ListByMessage(ctx context.Context, messageID string) ([]*domain.ReactionRole, error) {
	rows, err := s.db.QueryContext(ctx, selectReactionRole+`
WHERE message_id = ?
ORDER BY rowid ASC;`, messageID)
	if err != nil {
		return nil, domain.NewIOError("sqlite: list reaction roles by message", err)
	}
	return collectReactionRoles(rows)
}

func (s *Store) List(ctx context.Context) ([]*domain.ReactionRole, error) {
	rows, err := s.db.QueryContext(ctx, selectReactionRole+`
ORDER BY message_id ASC;`)
	if err != nil {
		return nil, domain.NewIOError("sqlite: list reaction roles", err)
	}
	return collectReactionRoles(rows)
}

func (s *Store) Begin(ctx context.Context) (domain.ReactionRoleTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewIOError("sqlite: begin", err)
	}
	return &reactionRoleTx{tx: tx}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReactionRole(row scanner) (*domain.ReactionRole, error) {
	var rr domain.ReactionRole
	var bindingType string
	if err := row.Scan(&rr.MessageID, &rr.Reaction, &rr.RoleID, &bindingType, &rr.ChannelID); err != nil {
		return nil, err
	}
	rr.Type = domain.BindingType(bindingType)
	return &rr, nil
}

func collectReactionRoles(rows *sql.Rows) ([]*domain.ReactionRole, error) {
	defer rows.Close()

	var out []*domain.ReactionRole
	for rows.Next() {
		rr, err := scanReactionRole(rows)
		if err != nil {
			return nil, domain.NewIOError("sqlite: scan reaction role", err)
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewIOError("sqlite: reaction role rows", err)
	}
	return out, nil
}

type reactionRoleTx struct {
	tx *sql.Tx
}

func (t *reactionRoleTx) Insert(ctx context.Context, rr *domain.ReactionRole) error {
	if rr == nil {
		return errors.Wrap(domain.ErrInvalidArguments, "sqlite: reaction role nil")
	}

	const stmt = `
INSERT INTO reaction_roles (message_id, reaction, role_id, type, channel_id)
VALUES (?, ?, ?, ?, ?);`

	_, err := t.tx.ExecContext(ctx, stmt, rr.MessageID, rr.Reaction, rr.RoleID, string(rr.Type), rr.ChannelID)
	if err != nil {
		if isConstraintViolation(err) {
			return errors.Wrapf(domain.ErrDuplicateKey, "message %s reaction %s", rr.MessageID, rr.Reaction)
		}
		return domain.NewIOError("sqlite: insert reaction role", err)
	}
	return nil
}

func (t *reactionRoleTx) UpdateRole(ctx context.Context, messageID, reaction, roleID string) error {
	const stmt = `UPDATE reaction_roles SET role_id = ? WHERE message_id = ? AND reaction = ?;`

	res, err := t.tx.ExecContext(ctx, stmt, roleID, messageID, reaction)
	if err != nil {
		return domain.NewIOError("sqlite: update reaction role", err)
	}
	return expectAffected(res, "message %s reaction %s", messageID, reaction)
}

func (t *reactionRoleTx) Delete(ctx context.Context, messageID, reaction string) error {
	const stmt = `DELETE FROM reaction_roles WHERE message_id = ? AND reaction = ?;`

	res, err := t.tx.ExecContext(ctx, stmt, messageID, reaction)
	if err != nil {
		return domain.NewIOError("sqlite: delete reaction role", err)
	}
	return expectAffected(res, "message %s reaction %s", messageID, reaction)
}

func (t *reactionRoleTx) DeleteByMessage(ctx context.Context, messageID string) (int64, error) {
	const stmt = `DELETE FROM reaction_roles WHERE message_id = ?;`

	res, err := t.tx.ExecContext(ctx, stmt, messageID)
	if err != nil {
		return 0, domain.NewIOError("sqlite: delete reaction role group", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.NewIOError("sqlite: delete reaction role group", err)
	}
	return n, nil
}

func (t *reactionRoleTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return domain.NewIOError("sqlite: commit", err)
	}
	return nil
}

func (t *reactionRoleTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return domain.NewIOError("sqlite: rollback", err)
	}
	return nil
}

func expectAffected(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewIOError("sqlite: rows affected", err)
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrNotFound, format, args...)
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code == sqlite3.ErrConstraint
	}
	return false
}

var _ domain.ReactionRoleRepository = (*Store)(nil)
var _ domain.ReactionRoleTx = (*reactionRoleTx)(nil)
