// Package archive keeps an S3 history of every stored snapshot together with
// the raw report text it was parsed from.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ManifestEntry is one JSONL line of the monthly manifest.
type ManifestEntry struct {
	SnapshotKey      string `json:"snapshot_key"`
	ReportKey        string `json:"report_key,omitempty"`
	SourceReportDate string `json:"source_report_date"`
	SourceReportURL  string `json:"source_report_url"`
	RecordsCount     int    `json:"records_count"`
	SpecialistsCount int    `json:"specialists_count"`
	WithSlots        int    `json:"with_slots"`
	GeneratedAt      string `json:"generated_at"`
}

// Store writes snapshots to S3. A Store without a bucket is a no-op.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger.Component("archive")}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// SnapshotKey is the object key of a snapshot's JSON document.
func SnapshotKey(snap *slots.Snapshot) string {
	return fmt.Sprintf("snapshots/%s/%s.json", snap.SourceReportDate, snap.GeneratedAt.UTC().Format("20060102T150405Z"))
}

// ArchiveSnapshot writes the snapshot JSON, the raw report text when given,
// and a manifest line. Manifest failures are logged only.
func (s *Store) ArchiveSnapshot(ctx context.Context, snap *slots.Snapshot, reportText string) error {
	if !s.Enabled() || snap == nil {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("archive: marshal snapshot: %w", err)
	}
	key := SnapshotKey(snap)
	if err := s.put(ctx, key, data, "application/json"); err != nil {
		return err
	}

	entry := ManifestEntry{
		SnapshotKey:      key,
		SourceReportDate: snap.SourceReportDate,
		SourceReportURL:  snap.SourceReportURL,
		RecordsCount:     snap.RecordsCount,
		SpecialistsCount: len(snap.BySpecialist),
		GeneratedAt:      snap.GeneratedAt.UTC().Format(time.RFC3339),
	}
	for _, sp := range snap.BySpecialist {
		if sp.HasSlots() {
			entry.WithSlots++
		}
	}

	if reportText != "" {
		reportKey := key[:len(key)-len(".json")] + ".txt"
		if err := s.put(ctx, reportKey, []byte(reportText), "text/plain; charset=utf-8"); err != nil {
			return err
		}
		entry.ReportKey = reportKey
	}

	s.logger.Info("archived snapshot to S3",
		"s3_key", key,
		"report_date", snap.SourceReportDate,
		"specialists", entry.SpecialistsCount,
	)

	if err := s.AppendManifest(ctx, snap.GeneratedAt, entry); err != nil {
		s.logger.Warn("failed to append manifest", "error", err, "s3_key", key)
	}
	return nil
}

// LoadSnapshot reads an archived snapshot back. A missing key yields nil, nil.
func (s *Store) LoadSnapshot(ctx context.Context, key string) (*slots.Snapshot, error) {
	if !s.Enabled() {
		return nil, nil
	}
	data, err := s.get(ctx, key)
	if err != nil || data == nil {
		return nil, err
	}
	var snap slots.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("archive: unmarshal snapshot %s: %w", key, err)
	}
	return &snap, nil
}

// AppendManifest appends a JSONL line to the monthly manifest file.
// Uses read-modify-write since S3 doesn't support append.
func (s *Store) AppendManifest(ctx context.Context, at time.Time, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	at = at.UTC()
	manifestKey := fmt.Sprintf("snapshots/manifests/%d-%02d.jsonl", at.Year(), at.Month())

	existing, err := s.get(ctx, manifestKey)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	return s.put(ctx, manifestKey, buf.Bytes(), "application/x-ndjson")
}

func (s *Store) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	return nil
}

// get returns nil, nil for a missing object.
func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: s3 get %s: %w", key, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", key, err)
	}
	return data, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
