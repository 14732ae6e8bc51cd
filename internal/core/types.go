package core

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// FileUnit is one uploaded file: its declared name and raw bytes.
type FileUnit struct {
	Name string
	Ext  string // lower-cased, with leading dot
	Size int64
	Data []byte
}

// NewFileUnit derives the extension and size from name and data.
func NewFileUnit(name string, data []byte) FileUnit {
	return FileUnit{
		Name: name,
		Ext:  strings.ToLower(filepath.Ext(name)),
		Size: int64(len(data)),
		Data: data,
	}
}

// SizeKB is the file size in kilobytes (1024 bytes).
func (u FileUnit) SizeKB() float64 {
	return float64(u.Size) / 1024
}

// Stage indicates where a file is in the pipeline.
type Stage string

const (
	StageUploaded  Stage = "uploaded"
	StageDecoded   Stage = "decoded"
	StageCleaned   Stage = "cleaned"
	StageProjected Stage = "projected"
	StageExported  Stage = "exported"
)
