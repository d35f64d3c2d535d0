package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yegors/audiokit/pkg/logger"
)

// timestampLayout is fixed-width so created_at sorts correctly as text. The
// column is declared TEXT so the driver hands it back unconverted.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens (and creates if needed) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// single writer; the CLI never needs more
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}
	return db, nil
}

// TranscriptionStorage handles storage of transcription history
type TranscriptionStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTranscriptionStorage creates a new SQLite transcription storage and
// makes sure its schema exists.
func NewTranscriptionStorage(db *sql.DB, log *logger.Logger) (*TranscriptionStorage, error) {
	storage := &TranscriptionStorage{
		db:     db,
		logger: log.Named("history"),
	}

	if err := storage.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize transcription storage: %w", err)
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *TranscriptionStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			input_file TEXT NOT NULL,
			model TEXT NOT NULL,
			backend TEXT NOT NULL,
			sample_rate INTEGER NOT NULL,
			content TEXT NOT NULL,
			audio_duration_ms INTEGER NOT NULL,
			processing_time_ms INTEGER NOT NULL,
			output_json TEXT,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create transcriptions table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_transcriptions_created_at ON transcriptions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transcriptions_input_file ON transcriptions(input_file)`,
	}

	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create transcription index: %w", err)
		}
	}

	return nil
}

// StoreTranscription stores a transcription record and returns its ID
func (s *TranscriptionStorage) StoreTranscription(record *TranscriptionRecord) (int64, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	var outputJSON sql.NullString
	if record.OutputJSON != "" {
		outputJSON = sql.NullString{String: record.OutputJSON, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO transcriptions
		(run_id, input_file, model, backend, sample_rate, content, audio_duration_ms, processing_time_ms, output_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.InputFile,
		record.Model,
		record.Backend,
		record.SampleRate,
		record.Content,
		record.AudioDuration.Milliseconds(),
		record.ProcessingTime.Milliseconds(),
		outputJSON,
		record.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transcription: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	record.ID = id

	s.logger.Debug("Stored transcription", logger.Int64("id", id), logger.String("run_id", record.RunID))
	return id, nil
}

// GetRecentTranscriptions returns the newest records first
func (s *TranscriptionStorage) GetRecentTranscriptions(limit int) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, input_file, model, backend, sample_rate, content, audio_duration_ms, processing_time_ms, output_json, created_at
		FROM transcriptions
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transcriptions: %w", err)
	}
	defer rows.Close()

	return s.scanTranscriptionRows(rows)
}

// GetTranscriptionsByInputFile returns all runs for one input file
func (s *TranscriptionStorage) GetTranscriptionsByInputFile(inputFile string) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, input_file, model, backend, sample_rate, content, audio_duration_ms, processing_time_ms, output_json, created_at
		FROM transcriptions
		WHERE input_file = ?
		ORDER BY created_at DESC, id DESC`,
		inputFile,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions by input file: %w", err)
	}
	defer rows.Close()

	return s.scanTranscriptionRows(rows)
}

// scanTranscriptionRows scans database rows into TranscriptionRecord structs
func (s *TranscriptionStorage) scanTranscriptionRows(rows *sql.Rows) ([]*TranscriptionRecord, error) {
	var records []*TranscriptionRecord
	for rows.Next() {
		var record TranscriptionRecord
		var audioMs, processingMs int64
		var outputJSON sql.NullString
		var createdAt string

		if err := rows.Scan(
			&record.ID,
			&record.RunID,
			&record.InputFile,
			&record.Model,
			&record.Backend,
			&record.SampleRate,
			&record.Content,
			&audioMs,
			&processingMs,
			&outputJSON,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transcription: %w", err)
		}

		var err error
		record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		record.AudioDuration = time.Duration(audioMs) * time.Millisecond
		record.ProcessingTime = time.Duration(processingMs) * time.Millisecond
		if outputJSON.Valid {
			record.OutputJSON = outputJSON.String
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcriptions: %w", err)
	}
	return records, nil
}
