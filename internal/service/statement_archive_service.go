package service

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

type statementExporter interface {
	Export(ctx context.Context, tenantID string, req dto.ChargeExportRequest) (*dto.ExportFile, error)
}

type statementStore interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type statementSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

var statementContentTypes = map[string]string{
	".csv": "text/csv",
	".pdf": "application/pdf",
}

// StatementArchiveConfig governs archived statement links and retention.
type StatementArchiveConfig struct {
	DownloadPath string
	Retention    time.Duration
}

// StatementArchiveService stores rendered statements and hands out signed download links.
type StatementArchiveService struct {
	exporter statementExporter
	store    statementStore
	signer   statementSigner
	logger   *zap.Logger
	cfg      StatementArchiveConfig
}

// NewStatementArchiveService constructs the archive.
func NewStatementArchiveService(exporter statementExporter, store statementStore, signer statementSigner, logger *zap.Logger, cfg StatementArchiveConfig) *StatementArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	return &StatementArchiveService{exporter: exporter, store: store, signer: signer, logger: logger, cfg: cfg}
}

// Archive renders the statement, stores it under the academy and returns a signed link.
// Archiving the same period and format again replaces the stored file.
func (s *StatementArchiveService) Archive(ctx context.Context, tenantID string, req dto.ChargeExportRequest) (*dto.StatementLink, error) {
	file, err := s.exporter.Export(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	name, err := s.store.Save(path.Join(req.AcademyID, file.Filename), file.Body)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to archive statement")
	}
	token, expiresAt, err := s.signer.Generate(req.AcademyID, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign statement link")
	}
	s.logger.Info("statement archived", zap.String("academy_id", req.AcademyID), zap.String("file", name), zap.Time("expires_at", expiresAt))
	return &dto.StatementLink{
		Filename:  file.Filename,
		Format:    strings.TrimPrefix(path.Ext(file.Filename), "."),
		Token:     token,
		URL:       strings.TrimRight(s.cfg.DownloadPath, "/") + "/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a signed token to the archived statement.
func (s *StatementArchiveService) Open(token string) (*dto.ExportFile, error) {
	academyID, name, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "statement link invalid or expired")
	}
	if !strings.HasPrefix(name, academyID+"/") {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "statement link invalid or expired")
	}
	f, err := s.store.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "statement no longer archived")
		}
		return nil, appErrors.Persistence(err, "failed to open statement")
	}
	defer f.Close() //nolint:errcheck
	body, err := io.ReadAll(f)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to read statement")
	}
	contentType := statementContentTypes[path.Ext(name)]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &dto.ExportFile{Filename: path.Base(name), ContentType: contentType, Body: body}, nil
}

// Prune removes statements older than the retention window.
func (s *StatementArchiveService) Prune(ctx context.Context) (*dto.StatementPruneResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	removed, err := s.store.CleanupOlderThan(s.cfg.Retention)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to prune statements")
	}
	return &dto.StatementPruneResult{Removed: removed}, nil
}
