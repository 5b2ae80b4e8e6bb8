package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/model"
)

// LatestDealKey is the local storage key holding the most recently processed deal.
const LatestDealKey = "latestDeal"

// LatestDeal returns the stored latest-deal pointer, or nil when none exists.
// A corrupt record is treated as absent.
func (s *SQLiteStorage) LatestDeal(ctx context.Context) (*model.LatestDeal, error) {
	raw, err := s.GetValue(ctx, LatestDealKey)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var deal model.LatestDeal
	if err := json.Unmarshal([]byte(raw), &deal); err != nil {
		return nil, nil //nolint:nilerr // unreadable pointer means no highlight
	}
	return &deal, nil
}

// SaveLatestDeal replaces the latest-deal pointer.
func (s *SQLiteStorage) SaveLatestDeal(ctx context.Context, deal *model.LatestDeal) error {
	if deal == nil {
		return fmt.Errorf("%w: latest deal", ErrNilParameter)
	}
	data, err := json.Marshal(deal)
	if err != nil {
		return fmt.Errorf("failed to encode latest deal: %w", err)
	}
	return s.SetValue(ctx, LatestDealKey, string(data))
}
