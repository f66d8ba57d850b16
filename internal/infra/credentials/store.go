package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"charity/internal/infra"
	"charity/internal/sqlinline"
)

// ProviderMidtrans keys the payment gateway server key in integration_tokens.
const ProviderMidtrans = "midtrans"

// Store reads and writes integration secrets kept in the database so operators can
// rotate them without redeploying.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// MidtransServerKey returns the stored server key, or "" when none is stored.
func (s *Store) MidtransServerKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderMidtrans)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetMidtransServerKey stores the key together with the environment it belongs to.
func (s *Store) SetMidtransServerKey(ctx context.Context, key string, production bool) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("midtrans server key is required")
	}
	return s.upsert(ctx, ProviderMidtrans, key, map[string]any{"production": production})
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
