// Package archive stores terminal test results for later inspection.
//
// The live registry is pure process memory; the archive is an external
// collaborator that only ever receives results after they reach a terminal
// state, so losing it never affects correctness of in-flight correlation.
package archive

import (
	"context"
	"errors"

	"github.com/kart-io/smsprobe/pkg/report"
)

// Error definitions for the archive package.
var (
	// ErrResultNotFound is returned when no archived result exists.
	ErrResultNotFound = errors.New("archived result not found")

	// ErrArchiveClosed is returned after Close.
	ErrArchiveClosed = errors.New("archive is closed")
)

// Archive defines the interface for result persistence.
type Archive interface {
	StoreTest(ctx context.Context, result *report.TestResult) error
	StoreBatch(ctx context.Context, status *report.BatchStatus) error
	GetTest(ctx context.Context, testID string) (*report.TestResult, error)
	GetBatch(ctx context.Context, batchID string) (*report.BatchStatus, error)
	Close() error
}
