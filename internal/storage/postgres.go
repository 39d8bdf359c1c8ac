// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"consignment-api/internal/model"
)

// cpf11Expr normalizes a stored CPF to its 11-digit form inside SQL, so
// punctuation or whitespace in the column never prevents a match.
const cpf11Expr = `lpad(right(regexp_replace(coalesce(%s, ''), '\D', '', 'g'), 11), 11, '0')`

type Storage struct {
	DB *sql.DB
}

func NewStorage(dsn string) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{DB: db}, nil
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// EnsureColumns adds the columns written by the job when an older schema
// does not have them yet.
func (s *Storage) EnsureColumns(ctx context.Context) error {
	stmts := []string{
		`ALTER TABLE clientes_clt ADD COLUMN IF NOT EXISTS descricao TEXT`,
		`ALTER TABLE clientes_clt ADD COLUMN IF NOT EXISTS token_usado TEXT`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure column: %w", err)
		}
	}
	return nil
}

// GetLatestTokensByEmpresa returns one token per empresa, the most recently
// created, ordered by id ascending.
func (s *Storage) GetLatestTokensByEmpresa(ctx context.Context) ([]model.Token, error) {
	query := `
		WITH x AS (
			SELECT
				t.id, t.access_token, t.expires_in, t.created_at, t.empresa,
				ROW_NUMBER() OVER (PARTITION BY t.empresa ORDER BY t.created_at DESC, t.id DESC) AS rn
			FROM tokens_v8 t
		)
		SELECT id, access_token, coalesce(expires_in, 0), created_at, coalesce(empresa, '')
		FROM x
		WHERE rn = 1
		ORDER BY id ASC
	`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		var t model.Token
		if err := rows.Scan(&t.ID, &t.AccessToken, &t.ExpiresIn, &t.CreatedAt, &t.Empresa); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// GetPendingClientsBatch returns up to limit pending clients, one row per
// normalized CPF, ranked Consentimento Aprovado > Aguardando Consulta >
// Aguardando and randomized within each rank.
func (s *Storage) GetPendingClientsBatch(ctx context.Context, limit int) ([]model.Client, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		WITH pending AS (
			SELECT
				id, cliente_cpf, cliente_nome, cliente_sexo, nascimento,
				email, telefone, status_consulta_v8,
				CASE status_consulta_v8
					WHEN 'Consentimento Aprovado' THEN 3
					WHEN 'Aguardando Consulta' THEN 2
					WHEN 'Aguardando' THEN 1
					ELSE 0
				END AS status_rank,
				ROW_NUMBER() OVER (
					PARTITION BY `+cpf11Expr+`
					ORDER BY
						CASE status_consulta_v8
							WHEN 'Consentimento Aprovado' THEN 3
							WHEN 'Aguardando Consulta' THEN 2
							WHEN 'Aguardando' THEN 1
							ELSE 0
						END DESC,
						random()
				) AS cpf_rownum
			FROM clientes_clt
			WHERE status_consulta_v8 IN ('Aguardando', 'Aguardando Consulta', 'Consentimento Aprovado')
		)
		SELECT id, coalesce(cliente_cpf, ''), coalesce(cliente_nome, ''),
		       coalesce(cliente_sexo, ''), nascimento, coalesce(email, ''),
		       coalesce(telefone, ''), coalesce(status_consulta_v8, '')
		FROM pending
		WHERE cpf_rownum = 1
		ORDER BY status_rank DESC, random()
		LIMIT $1
	`, "cliente_cpf")

	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending clients: %w", err)
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		var nascimento sql.NullTime
		if err := rows.Scan(&c.ID, &c.CPF, &c.Nome, &c.Sexo, &nascimento, &c.Email, &c.Telefone, &c.Status); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		if nascimento.Valid {
			t := nascimento.Time
			c.Nascimento = &t
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// UpdateClientByCPF merges the consult result into every row whose
// normalized CPF equals payload.CPF11. Nil values keep the stored column
// except descricao, which is always overwritten.
func (s *Storage) UpdateClientByCPF(ctx context.Context, payload model.ClientUpdate) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE clientes_clt
		SET
			valor_liberado = COALESCE($2, valor_liberado),
			created_at = NOW(),
			status_consulta_v8 = COALESCE($3, status_consulta_v8),
			descricao = $4,
			token_usado = COALESCE($5, token_usado)
		WHERE `+cpf11Expr+` = $1
	`, "cliente_cpf")

	res, err := s.DB.ExecContext(ctx, query,
		payload.CPF11,
		nullFloat(payload.ValorLiberado),
		nullString(payload.Status),
		nullString(payload.Descricao),
		nullString(payload.TokenUsado),
	)
	if err != nil {
		return 0, fmt.Errorf("update client by cpf: %w", err)
	}
	return res.RowsAffected()
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
