package user

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nao1215/taskcal/pkg/middleware"
	"github.com/nao1215/taskcal/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound は指定したユーザーが存在しないことを表す。
var ErrNotFound = errors.New("user not found")

// User はユーザーレコードを表す。
type User struct {
	// ID はユーザーの一意識別子。
	ID string
	// Email は小文字に正規化したメールアドレス。
	Email string
	// PasswordHash はbcryptでハッシュ化したパスワード。
	PasswordHash string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Store はSQLiteに保存したユーザーレコードへのアクセスを提供する。
// database/sqlの接続プールを介するため、複数のgoroutineから同時に利用できる。
type Store struct {
	db *sql.DB
}

// Open はpathのSQLiteデータベースを開き、マイグレーションを適用したStoreを返す。
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	s, err := NewStore(ctx, sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewStore は既存の接続にマイグレーションを適用したStoreを返す。
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := migration.Run(ctx, db, migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &Store{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping はデータベースへの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create は新しいユーザーを作成する。
// メールアドレスが既に使われている場合はErrEmailTakenを返す。
func (s *Store) Create(ctx context.Context, email, passwordHash string) (User, error) {
	u := User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return u, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。
func (s *Store) FindByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?",
		normalizeEmail(email),
	)
	return scanUser(row)
}

// FindByID はIDでユーザーを検索する。
func (s *Store) FindByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE id = ?",
		id,
	)
	return scanUser(row)
}

// LookupIdentity はIDだけを射影してユーザーを検索する。
// 認証ゲートのユーザー検索として使われ、存在しない場合は (nil, nil) を返す。
func (s *Store) LookupIdentity(ctx context.Context, userID string) (*middleware.Identity, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ?", userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗: %w", err)
	}
	return &middleware.Identity{UserID: id}, nil
}

// scanUser は1行をUserに変換する。行が無い場合はErrNotFoundを返す。
func scanUser(row *sql.Row) (User, error) {
	var (
		u         User
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return User{}, fmt.Errorf("作成日時の解析に失敗: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

// normalizeEmail はメールアドレスの前後の空白を除き小文字にする。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isUniqueViolation はエラーが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	// 拡張エラーコードが返らない場合は主コードで判定する
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code&0xff == sqlite3.SQLITE_CONSTRAINT
}
