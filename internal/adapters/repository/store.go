// Package repository holds the live performance table and the recent run history.
package repository

import (
	"context"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
)

// TableReader provides lock-free reads of the published table.
type TableReader interface {
	// Current returns the live table, or nil before the first publication.
	Current() *model.PerformanceTable
	// Ranking returns a copy of the ranked stats for category c.
	Ranking(c types.Category) []model.CategoryStat
}

// TablePublisher swaps in a new table.
type TablePublisher interface {
	// Publish stamps t with the next version and makes it live atomically.
	Publish(ctx context.Context, t *model.PerformanceTable) (*model.PerformanceTable, error)
}
