package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/pinmap/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
// markers/visitsはJSONB配列として1行に埋め込み、追記は `||` 連結の
// 単一UPDATE/INSERT文で行う。単一ドキュメントへの配列追記は
// ステートメント単位で原子的であり、上位でのトランザクションは張らない。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	var markersJSON, visitsJSON []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT email, name, markers, visits, created_at, updated_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&user.Email, &user.Name, &markersJSON, &visitsJSON, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	// 旧レコードでは配列列がNULLの可能性がある。NULLは空配列として扱う。
	if err := unmarshalArray(markersJSON, &user.Markers); err != nil {
		return nil, fmt.Errorf("failed to decode markers: %w", err)
	}
	if err := unmarshalArray(visitsJSON, &user.Visits); err != nil {
		return nil, fmt.Errorf("failed to decode visits: %w", err)
	}

	return user, nil
}

// CreateWithIdentity はユーザードキュメントとidentityを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (email, name, markers, visits, created_at, updated_at)
		 VALUES ($1, $2, '[]', '[]', $3, $4)`,
		user.Email, user.Name, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_email, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserEmail, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AppendMarker は指定ユーザーのmarkers配列へマーカーを1件追記する。
// ドキュメントが存在しない場合は作成した上で追記する（upsert-on-append）。
func (r *PostgresUserRepo) AppendMarker(ctx context.Context, email string, marker model.Marker) error {
	payload, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("failed to encode marker: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (email, markers, visits)
		 VALUES ($1, jsonb_build_array($2::jsonb), '[]')
		 ON CONFLICT (email) DO UPDATE
		 SET markers = coalesce(users.markers, '[]'::jsonb) || $2::jsonb,
		     updated_at = now()`,
		email, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append marker: %w", err)
	}
	return nil
}

// AppendVisit は指定ユーザーのvisits配列へ来訪記録を1件追記する。
func (r *PostgresUserRepo) AppendVisit(ctx context.Context, email string, visit model.Visit) error {
	payload, err := json.Marshal(visit)
	if err != nil {
		return fmt.Errorf("failed to encode visit: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (email, markers, visits)
		 VALUES ($1, '[]', jsonb_build_array($2::jsonb))
		 ON CONFLICT (email) DO UPDATE
		 SET visits = coalesce(users.visits, '[]'::jsonb) || $2::jsonb,
		     updated_at = now()`,
		email, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append visit: %w", err)
	}
	return nil
}

// unmarshalArray はJSONB列の値をデコードする。NULL（空バイト列）は空のまま返す。
func unmarshalArray(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
