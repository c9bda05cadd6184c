package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DatabaseURL string        `envconfig:"DATABASE_URL" split_words:"true"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

type toolInvocation struct {
	bun.BaseModel `bun:"table:tool_invocations,alias:ti"`

	ID         int64          `bun:"id,pk,autoincrement"`
	Tool       string         `bun:"tool,notnull"`
	Status     string         `bun:"status,notnull"`
	Message    string         `bun:"message"`
	Args       map[string]any `bun:"args,type:jsonb"`
	Payload    map[string]any `bun:"payload,type:jsonb"`
	ExecutedAt time.Time      `bun:"executed_at,notnull"`
}

func newToolInvocation(e Entry) *toolInvocation {
	executedAt := e.ExecutedAt
	if executedAt.IsZero() {
		executedAt = time.Now()
	}
	return &toolInvocation{
		Tool:       e.Tool,
		Status:     e.Status,
		Message:    e.Message,
		Args:       e.Args,
		Payload:    e.Payload,
		ExecutedAt: executedAt.UTC(),
	}
}

// BunRecorder appends tool invocations to Postgres. Patient records themselves
// stay in memory; only the trail of what the assistant did is kept.
type BunRecorder struct {
	db      *bun.DB
	timeout time.Duration
}

func NewBunRecorder(ctx context.Context, cfg Config) (*BunRecorder, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("audit database url is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &BunRecorder{db: db, timeout: timeout}

	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := db.NewCreateTable().Model((*toolInvocation)(nil)).IfNotExists().Exec(initCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}
	return r, nil
}

func (r *BunRecorder) Record(ctx context.Context, e Entry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.NewInsert().Model(newToolInvocation(e)).Exec(ctx); err != nil {
		return fmt.Errorf("insert tool invocation: %w", err)
	}
	return nil
}

func (r *BunRecorder) Close() error {
	return r.db.Close()
}
