package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/i474232898/sunny-weather/internal/async"
	"github.com/i474232898/sunny-weather/internal/weather"
)

const placeKey = "place"

// Selection persists the single selected place as JSON under one key.
type Selection struct {
	kv KV
}

var _ weather.SelectionStore = (*Selection)(nil)

func NewSelection(kv KV) *Selection {
	return &Selection{kv: kv}
}

// Save overwrites the selected place.
func (s *Selection) Save(ctx context.Context, place weather.Place) error {
	raw, err := json.Marshal(place)
	if err != nil {
		return fmt.Errorf("encode place: %w", err)
	}
	if err := s.kv.Set(ctx, placeKey, raw); err != nil {
		return fmt.Errorf("save place: %w", err)
	}
	return nil
}

// Load returns the selected place, or an async.KindNotFound failure wrapping
// ErrNotFound when none was saved.
func (s *Selection) Load(ctx context.Context) (weather.Place, error) {
	raw, err := s.kv.Get(ctx, placeKey)
	if errors.Is(err, ErrNotFound) {
		return weather.Place{}, async.WrapFailure(async.KindNotFound, "no place saved", err)
	}
	if err != nil {
		return weather.Place{}, fmt.Errorf("load place: %w", err)
	}

	var place weather.Place
	if err := json.Unmarshal(raw, &place); err != nil {
		return weather.Place{}, fmt.Errorf("decode place: %w", err)
	}
	return place, nil
}

// Exists reports whether a place has been saved.
func (s *Selection) Exists(ctx context.Context) (bool, error) {
	return s.kv.Has(ctx, placeKey)
}
