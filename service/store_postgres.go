package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Srijanomar3094/parser-server/model"
)

// PostgresStore persists contract records in PostgreSQL. Extracted
// data groups and gaps are stored as JSONB columns.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS contracts (
			id                     TEXT PRIMARY KEY,
			object_name            TEXT NOT NULL DEFAULT '',
			original_filename      TEXT NOT NULL,
			uploaded_at            TIMESTAMPTZ NOT NULL,
			status                 TEXT NOT NULL,
			progress               INT NOT NULL DEFAULT 0,
			error_message          TEXT NOT NULL DEFAULT '',
			parties                JSONB NOT NULL DEFAULT '{}',
			account_info           JSONB NOT NULL DEFAULT '{}',
			financial_details      JSONB NOT NULL DEFAULT '{}',
			payment_structure      JSONB NOT NULL DEFAULT '{}',
			revenue_classification JSONB NOT NULL DEFAULT '{}',
			sla                    JSONB NOT NULL DEFAULT '{}',
			score                  INT NOT NULL DEFAULT 0,
			gaps                   JSONB NOT NULL DEFAULT '[]'
		);
		CREATE INDEX IF NOT EXISTS contracts_status_idx ON contracts (status);
		CREATE INDEX IF NOT EXISTS contracts_uploaded_at_idx ON contracts (uploaded_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, contract *model.Contract) error {
	groups, gaps, err := encodeContractJSON(contract)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO contracts (
			id,
			object_name,
			original_filename,
			uploaded_at,
			status,
			progress,
			error_message,
			parties,
			account_info,
			financial_details,
			payment_structure,
			revenue_classification,
			sla,
			score,
			gaps
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		contract.ID,
		contract.ObjectName,
		contract.OriginalFilename,
		contract.UploadedAt,
		string(contract.Status),
		contract.Progress,
		contract.ErrorMessage,
		groups[0], groups[1], groups[2], groups[3], groups[4], groups[5],
		contract.Score,
		gaps,
	)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, contract *model.Contract) error {
	groups, gaps, err := encodeContractJSON(contract)
	if err != nil {
		return err
	}

	command, err := s.pool.Exec(ctx, `
		UPDATE contracts
		SET status = $2,
			progress = $3,
			error_message = $4,
			parties = $5,
			account_info = $6,
			financial_details = $7,
			payment_structure = $8,
			revenue_classification = $9,
			sla = $10,
			score = $11,
			gaps = $12
		WHERE id = $1
	`,
		contract.ID,
		string(contract.Status),
		contract.Progress,
		contract.ErrorMessage,
		groups[0], groups[1], groups[2], groups[3], groups[4], groups[5],
		contract.Score,
		gaps,
	)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Contract, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, object_name, original_filename, uploaded_at, status, progress, error_message,
			parties, account_info, financial_details, payment_structure, revenue_classification, sla,
			score, gaps
		FROM contracts
		WHERE id = $1
	`, id)

	contract, err := scanContract(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query contract: %w", err)
	}
	return contract, nil
}

func (s *PostgresStore) List(ctx context.Context, status model.Status, offset, limit int) ([]*model.Contract, error) {
	query := `
		SELECT id, object_name, original_filename, uploaded_at, status, progress, error_message,
			parties, account_info, financial_details, payment_structure, revenue_classification, sla,
			score, gaps
		FROM contracts
	`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += fmt.Sprintf(` ORDER BY uploaded_at DESC OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, offset, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	contracts := make([]*model.Contract, 0)
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contracts = append(contracts, contract)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	return contracts, nil
}

func (s *PostgresStore) Count(ctx context.Context, status model.Status) (int, error) {
	var count int
	var err error
	if status != "" {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contracts WHERE status = $1`, string(status)).Scan(&count)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contracts`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count contracts: %w", err)
	}
	return count, nil
}

// encodeContractJSON marshals the six data groups (in column order)
// and the gaps list for JSONB parameters.
func encodeContractJSON(contract *model.Contract) ([6][]byte, []byte, error) {
	var groups [6][]byte
	sources := []map[string]any{
		contract.Parties,
		contract.AccountInfo,
		contract.FinancialDetails,
		contract.PaymentStructure,
		contract.RevenueClassification,
		contract.SLA,
	}
	for i, src := range sources {
		if src == nil {
			src = map[string]any{}
		}
		data, err := json.Marshal(src)
		if err != nil {
			return groups, nil, fmt.Errorf("encode data group: %w", err)
		}
		groups[i] = data
	}

	gapsList := contract.Gaps
	if gapsList == nil {
		gapsList = []string{}
	}
	gaps, err := json.Marshal(gapsList)
	if err != nil {
		return groups, nil, fmt.Errorf("encode gaps: %w", err)
	}
	return groups, gaps, nil
}

func scanContract(row pgx.Row) (*model.Contract, error) {
	var (
		contract model.Contract
		status   string
		groups   [6][]byte
		gaps     []byte
	)

	err := row.Scan(
		&contract.ID,
		&contract.ObjectName,
		&contract.OriginalFilename,
		&contract.UploadedAt,
		&status,
		&contract.Progress,
		&contract.ErrorMessage,
		&groups[0], &groups[1], &groups[2], &groups[3], &groups[4], &groups[5],
		&contract.Score,
		&gaps,
	)
	if err != nil {
		return nil, err
	}

	contract.Status = model.Status(status)
	targets := []*map[string]any{
		&contract.Parties,
		&contract.AccountInfo,
		&contract.FinancialDetails,
		&contract.PaymentStructure,
		&contract.RevenueClassification,
		&contract.SLA,
	}
	for i, target := range targets {
		if len(groups[i]) == 0 {
			continue
		}
		if err := json.Unmarshal(groups[i], target); err != nil {
			return nil, fmt.Errorf("decode data group: %w", err)
		}
	}
	if len(gaps) > 0 {
		if err := json.Unmarshal(gaps, &contract.Gaps); err != nil {
			return nil, fmt.Errorf("decode gaps: %w", err)
		}
	}
	return &contract, nil
}
