package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// HeaderAuthorization はBearerトークンを運ぶリクエストヘッダー。
const HeaderAuthorization = "Authorization"

// クライアントに返すエラーメッセージ。
// ヘッダー欠落以外の失敗理由はクライアントに区別させない。
const (
	MessageTokenRequired = "Authorization token required"
	MessageNotAuthorized = "Request not authorized"
)

var (
	// ErrMissingCredential はAuthorizationヘッダーが無いことを表す。
	ErrMissingCredential = errors.New("認証トークンがありません")
	// ErrInvalidCredential はトークンの形式・署名・有効期限の検証に失敗したことを表す。
	ErrInvalidCredential = errors.New("認証トークンが無効です")
	// ErrLookupFailure はユーザーストアの検索自体が失敗したことを表す。
	ErrLookupFailure = errors.New("ユーザーの検索に失敗しました")
	// ErrUnknownSubject はサブジェクト識別子に対応するユーザーが存在しないことを表す。
	ErrUnknownSubject = errors.New("サブジェクトに対応するユーザーが存在しません")
)

// Reason は認証ゲートがリクエストを拒否した理由。
type Reason string

const (
	// ReasonMissingCredential はAuthorizationヘッダーが無いことによる拒否。
	ReasonMissingCredential Reason = "MissingCredential"
	// ReasonInvalidCredential はトークン検証の失敗による拒否。
	ReasonInvalidCredential Reason = "InvalidCredential"
	// ReasonLookupFailure はユーザー検索の失敗による拒否。
	ReasonLookupFailure Reason = "LookupFailure"
)

// Identity は検証済みリクエストに付与される最小限のユーザー情報。
// リクエストの処理中だけ有効で、永続化もリクエスト間の共有もしない。
type Identity struct {
	// UserID はユーザーの一意識別子。
	UserID string `json:"id"`
}

// IdentityLookup はサブジェクト識別子からユーザーを解決する。
// ユーザーが存在しない場合は (nil, nil) を返す。
// 複数のリクエストから同時に呼び出されるため、実装は並行安全であること。
type IdentityLookup interface {
	LookupIdentity(ctx context.Context, userID string) (*Identity, error)
}

// IdentityLookupFunc は関数をIdentityLookupとして扱うためのアダプタ。
type IdentityLookupFunc func(ctx context.Context, userID string) (*Identity, error)

// LookupIdentity はf(ctx, userID)を呼び出す。
func (f IdentityLookupFunc) LookupIdentity(ctx context.Context, userID string) (*Identity, error) {
	return f(ctx, userID)
}

// Rejection はリクエストを拒否する際のレスポンス内容。
type Rejection struct {
	// Reason は拒否の理由。
	Reason Reason
	// Status はHTTPステータスコード。常に401。
	Status int
	// Message はレスポンスボディのerrorフィールドに入れるメッセージ。
	Message string
	// Err はログ出力用の元のエラー。クライアントには返さない。
	Err error
}

// Decision は認証ゲートの判定結果。
// Rejectionがnilなら後続の処理へ進む。その場合でもIdentityは
// ユーザーが見つからなかったときにnilとなり得る。
type Decision struct {
	// Identity は解決されたユーザー情報。
	Identity *Identity
	// Rejection は拒否時のレスポンス内容。
	Rejection *Rejection
}

// Continue は後続の処理へ進むべきかどうかを返す。
func (d Decision) Continue() bool {
	return d.Rejection == nil
}

// UserID は解決されたユーザーIDを返す。未解決の場合は空文字列。
func (d Decision) UserID() string {
	if d.Identity == nil {
		return ""
	}
	return d.Identity.UserID
}

// Gate はBearerトークンを検証し、リクエストにユーザー情報を付与する認証ゲート。
// 生成後は読み取り専用であり、複数のgoroutineから同時に利用できる。
type Gate struct {
	secret               string
	lookup               IdentityLookup
	lookupTimeout        time.Duration
	rejectUnknownSubject bool
	logger               *log.Logger
}

// GateOption はGateの挙動を変更するオプション。
type GateOption func(*Gate)

// WithLookupTimeout はユーザー検索のタイムアウトを設定する。0以下なら無制限。
func WithLookupTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		g.lookupTimeout = d
	}
}

// WithRejectUnknownSubject はユーザーが存在しないサブジェクトを拒否するかどうかを設定する。
// 既定では拒否せず、空のIdentityのまま後続へ進める。
func WithRejectUnknownSubject(reject bool) GateOption {
	return func(g *Gate) {
		g.rejectUnknownSubject = reject
	}
}

// WithLogger は失敗理由の出力先を設定する。既定はlog.Default()。
func WithLogger(logger *log.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate は新しい認証ゲートを生成する。
// secretはトークン検証用の共有シークレット、lookupはユーザー検索の実装。
func NewGate(secret string, lookup IdentityLookup, opts ...GateOption) (*Gate, error) {
	if secret == "" {
		return nil, errors.New("JWTシークレットが空です")
	}
	if lookup == nil {
		return nil, errors.New("ユーザー検索の実装が指定されていません")
	}

	g := &Gate{
		secret: secret,
		lookup: lookup,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Evaluate はリクエストヘッダーを検査し、後続へ進むか拒否するかを判定する。
// 判定は以下の順で行う。
//  1. Authorizationヘッダーの存在
//  2. ヘッダー値の2番目の要素をトークンとして取り出す（スキームは検証しない）
//  3. 署名と有効期限の検証
//  4. サブジェクト識別子によるユーザー検索
func (g *Gate) Evaluate(ctx context.Context, header http.Header) Decision {
	authorization := header.Get(HeaderAuthorization)
	if authorization == "" {
		return g.reject(ReasonMissingCredential, ErrMissingCredential)
	}

	subject, err := VerifyJWT(bearerToken(authorization), g.secret)
	if err != nil {
		return g.reject(ReasonInvalidCredential, err)
	}

	identity, err := g.lookupIdentity(ctx, subject)
	if err != nil {
		return g.reject(ReasonLookupFailure, fmt.Errorf("%w: subject=%s: %w", ErrLookupFailure, subject, err))
	}

	if identity == nil {
		unknown := fmt.Errorf("%w: subject=%s", ErrUnknownSubject, subject)
		if g.rejectUnknownSubject {
			return g.reject(ReasonInvalidCredential, unknown)
		}
		// 有効なトークンを持つ削除済みユーザーもここを通過する。
		g.logger.Printf("[AUTH] 警告: %v (空のユーザー情報で処理を継続します)", unknown)
		return Decision{}
	}

	return Decision{Identity: identity}
}

// lookupIdentity はタイムアウト付きでユーザーを検索する。
func (g *Gate) lookupIdentity(ctx context.Context, subject string) (*Identity, error) {
	if g.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.lookupTimeout)
		defer cancel()
	}
	return g.lookup.LookupIdentity(ctx, subject)
}

// reject は拒否の判定を生成し、原因をログに出力する。
func (g *Gate) reject(reason Reason, err error) Decision {
	message := MessageNotAuthorized
	if reason == ReasonMissingCredential {
		message = MessageTokenRequired
	}

	g.logger.Printf("[AUTH] 認証に失敗: reason=%s error=%v", reason, err)

	return Decision{
		Rejection: &Rejection{
			Reason:  reason,
			Status:  http.StatusUnauthorized,
			Message: message,
			Err:     err,
		},
	}
}

// bearerToken はAuthorizationヘッダー値を空白で分割し、2番目の要素を返す。
// 要素が足りない場合は空文字列を返し、後続の検証で失敗させる。
func bearerToken(authorization string) string {
	fields := strings.Fields(authorization)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}
