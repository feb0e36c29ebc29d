package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"verity/internal/platform/postgres"
	"verity/internal/trust"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
	txcontext "verity/pkg/platform/tx"
	"verity/pkg/requestcontext"
)

const recordColumns = `user_id, email_verified, phone_verified, id_verified, company_verified,
	tax_id, tax_id_validated, company_name, legal_status, profession,
	trust_score, notes, channels, sources, verified_at, version, created_at, updated_at`

// Postgres persists records in verification_records. Apply locks the row
// with SELECT ... FOR UPDATE for the duration of the mutation.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*trust.Record, error) {
	var (
		rec        trust.Record
		userID     uuid.UUID
		notes      []byte
		channels   []byte
		sources    pq.StringArray
		verifiedAt sql.NullTime
	)
	err := row.Scan(&userID, &rec.EmailVerified, &rec.PhoneVerified, &rec.IDVerified, &rec.CompanyVerified,
		&rec.TaxID, &rec.TaxIDValidated, &rec.CompanyName, &rec.LegalStatus, &rec.Profession,
		&rec.TrustScore, &notes, &channels, &sources, &verifiedAt, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan trust record: %w", err)
	}
	rec.UserID = id.UserID(userID)
	if err := json.Unmarshal(notes, &rec.Notes); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	if err := json.Unmarshal(channels, &rec.Channels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	rec.Sources = []string(sources)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		rec.VerifiedAt = &t
	}
	rec.Normalize()
	return &rec, nil
}

func (s *Postgres) Find(ctx context.Context, userID id.UserID) (*trust.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM verification_records WHERE user_id = $1`, uuid.UUID(userID))
	return scanRecord(row)
}

func (s *Postgres) Apply(ctx context.Context, userID id.UserID, fn trust.MutateFunc) (*trust.Record, error) {
	var out *trust.Record
	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		now := requestcontext.Now(ctx)
		// Insert-if-missing first so concurrent creators serialize on the row lock.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO verification_records (user_id, created_at, updated_at) VALUES ($1, $2, $2)
			 ON CONFLICT (user_id) DO NOTHING`, uuid.UUID(userID), now); err != nil {
			return fmt.Errorf("ensure trust record: %w", err)
		}
		rec, err := scanRecord(tx.QueryRowContext(ctx,
			`SELECT `+recordColumns+` FROM verification_records WHERE user_id = $1 FOR UPDATE`, uuid.UUID(userID)))
		if err != nil {
			return err
		}
		if err := fn(txcontext.WithTx(ctx, tx), rec); err != nil {
			return err
		}
		rec.Version++

		notes, err := json.Marshal(rec.Notes)
		if err != nil {
			return fmt.Errorf("encode notes: %w", err)
		}
		channels, err := json.Marshal(rec.Channels)
		if err != nil {
			return fmt.Errorf("encode channels: %w", err)
		}
		var verifiedAt sql.NullTime
		if rec.VerifiedAt != nil {
			verifiedAt = sql.NullTime{Time: *rec.VerifiedAt, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE verification_records SET
				email_verified = $2, phone_verified = $3, id_verified = $4, company_verified = $5,
				tax_id = $6, tax_id_validated = $7, company_name = $8, legal_status = $9, profession = $10,
				trust_score = $11, notes = $12, channels = $13, sources = $14, verified_at = $15,
				version = $16, updated_at = $17
			WHERE user_id = $1`,
			uuid.UUID(userID), rec.EmailVerified, rec.PhoneVerified, rec.IDVerified, rec.CompanyVerified,
			rec.TaxID, rec.TaxIDValidated, rec.CompanyName, rec.LegalStatus, rec.Profession,
			rec.TrustScore, notes, channels, pq.Array(rec.Sources), verifiedAt,
			rec.Version, rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update trust record: %w", err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Postgres) FindByTaxID(ctx context.Context, taxID string) (*trust.Record, error) {
	if taxID == "" {
		return nil, sentinel.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM verification_records
		WHERE tax_id = $1 ORDER BY company_verified DESC, updated_at DESC LIMIT 1`, taxID)
	return scanRecord(row)
}

func (s *Postgres) IsCompanyVerified(ctx context.Context, taxID string) (bool, error) {
	if taxID == "" {
		return false, nil
	}
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM verification_records WHERE tax_id = $1 AND company_verified)`, taxID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("company verified lookup: %w", err)
	}
	return ok, nil
}

func (s *Postgres) ListUnverified(ctx context.Context, limit int) ([]*trust.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM verification_records
		WHERE NOT company_verified AND tax_id <> '' ORDER BY updated_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unverified: %w", err)
	}
	defer rows.Close()

	out := make([]*trust.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unverified: %w", err)
	}
	return out, nil
}
