package components

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"MarketPrompt/internal/model"
	"MarketPrompt/internal/prompt"
)

const sqlError = `{"error": "Error querying data from database"}`

// SQLConfig configures a database query component. Driver is "sqlite" or
// "postgres".
type SQLConfig struct {
	Description string `yaml:"description"`
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	Query       string `yaml:"query"`
	Args        []any  `yaml:"args"`
	MaxRows     int    `yaml:"max_rows"`
}

// SQL renders the rows of a query as JSON objects with columns in select
// order.
type SQL struct {
	prompt.Base
	cfg SQLConfig
}

// NewSQL creates a database query component.
func NewSQL(cfg SQLConfig) *SQL {
	return &SQL{
		Base: prompt.Base{Template: cfg.Description, Vars: map[string]any{
			"driver": cfg.Driver,
			"query":  cfg.Query,
		}},
		cfg: cfg,
	}
}

func (s *SQL) Name() string { return "sql" }

func (s *SQL) Content(ctx context.Context) (string, error) {
	out, err := s.query(ctx)
	if err != nil {
		return "", prompt.Fail(sqlError, fmt.Errorf("driver=%s query=%q: %w", s.cfg.Driver, s.cfg.Query, err))
	}
	return out, nil
}

func (s *SQL) query(ctx context.Context) (string, error) {
	db, err := sql.Open(s.cfg.Driver, s.cfg.DSN)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, s.cfg.Query, s.cfg.Args...)
	if err != nil {
		return "", fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("columns: %w", err)
	}
	keys := make([]string, len(cols))
	for i, c := range cols {
		k, _ := json.Marshal(c)
		keys[i] = string(k)
	}

	objects := []string{}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if s.cfg.MaxRows > 0 && len(objects) >= s.cfg.MaxRows {
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("scan: %w", err)
		}
		fields := make([]string, len(cols))
		for i, v := range vals {
			data, err := json.Marshal(sqlValue(v))
			if err != nil {
				return "", fmt.Errorf("encode column %s: %w", cols[i], err)
			}
			fields[i] = keys[i] + ":" + string(data)
		}
		objects = append(objects, "{"+strings.Join(fields, ",")+"}")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("rows: %w", err)
	}
	return "[" + strings.Join(objects, ",") + "]", nil
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return model.FormatTime(x)
	default:
		return x
	}
}

func buildSQL(opts *yaml.Node, _ Deps) (prompt.Component, error) {
	cfg := SQLConfig{Driver: "sqlite"}
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if cfg.DSN == "" || cfg.Query == "" {
		return nil, fmt.Errorf("dsn and query are required")
	}
	return NewSQL(cfg), nil
}
