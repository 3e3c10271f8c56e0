// Package store persists generated spike lists and sweep summaries.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// SpikeStore holds spike lists and JSON summaries by key.
type SpikeStore interface {
	Put(ctx context.Context, key string, sl *signals.SpikeList) error
	Get(ctx context.Context, key string) (*signals.SpikeList, error)
	Delete(ctx context.Context, key string) error
	// Keys lists the spike list keys starting with prefix, in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	PutSummary(ctx context.Context, key string, summary []byte) error
	GetSummary(ctx context.Context, key string) ([]byte, error)
}

const (
	spikesPrefix  = "spikes/"
	summaryPrefix = "summary/"
)

func spikesKey(key string) []byte  { return []byte(spikesPrefix + key) }
func summaryKey(key string) []byte { return []byte(summaryPrefix + key) }

func trimSpikesKey(raw []byte) string {
	return strings.TrimPrefix(string(raw), spikesPrefix)
}
