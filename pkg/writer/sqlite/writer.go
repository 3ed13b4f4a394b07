// Package sqlite provides SQLite storage for annotated library spectra
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/ions"
	"github.com/ChrisMcGann/FragKey/pkg/library"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
	_ "github.com/mattn/go-sqlite3"
)

// Date format for HeaderTable (ISO 8601)
const headerDateFormat = "2006-01-02"

// SchemaVersion is written to HeaderTable.
const SchemaVersion = 1

// Writer stores peptides, spectra and ion matches. It is not safe for
// concurrent use; batch results are written from a single goroutine.
type Writer struct {
	db           *sql.DB
	tx           *sql.Tx
	outputPath   string
	lookup       ptm.Lookup
	peptideStmt  *sql.Stmt
	spectrumStmt *sql.Stmt
	matchStmt    *sql.Stmt
	peptideIDs   map[string]int64
	spectrumID   int64
	description  string
	closed       bool
}

// NewWriter creates the database at outputPath. lookup supplies
// modification masses for the stored neutral mass.
func NewWriter(outputPath string, lookup ptm.Lookup) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		lookup:     lookup,
		peptideIDs: make(map[string]int64),
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.begin(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// SetDescription sets the HeaderTable description written by Finalize.
func (w *Writer) SetDescription(desc string) {
	w.description = desc
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS PeptideTable (
		PeptideId INTEGER PRIMARY KEY,
		PeptideKey TEXT UNIQUE NOT NULL,
		Sequence TEXT NOT NULL,
		ModifiedSequence TEXT,
		Modifications TEXT,
		NeutralMass DOUBLE
	);

	CREATE TABLE IF NOT EXISTS SpectrumTable (
		SpectrumId INTEGER PRIMARY KEY,
		PeptideId INTEGER REFERENCES PeptideTable(PeptideId),
		Title TEXT,
		Charge INTEGER,
		PrecursorMZ DOUBLE,
		RetentionTime DOUBLE,
		CollisionEnergy DOUBLE,
		FragmentationMode TEXT,
		MassAnalyzer TEXT,
		InstrumentName TEXT,
		SourceFile TEXT,
		SourceFormat TEXT,
		PeakCount INTEGER,
		MatchedCount INTEGER,
		blobMass BLOB,
		blobIntensity BLOB
	);

	CREATE TABLE IF NOT EXISTS IonMatchTable (
		SpectrumId INTEGER REFERENCES SpectrumTable(SpectrumId),
		Kind TEXT,
		IonType TEXT,
		Number INTEGER,
		Charge INTEGER,
		Annotation TEXT,
		TheoreticalMZ DOUBLE,
		ObservedMZ DOUBLE,
		Intensity DOUBLE,
		ErrorDa DOUBLE,
		ErrorPPM DOUBLE
	);

	CREATE INDEX IF NOT EXISTS IonMatchSpectrum ON IonMatchTable(SpectrumId);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		Description TEXT,
		SpectrumCount INTEGER,
		PeptideCount INTEGER
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// begin opens the write transaction and prepares statements on it.
func (w *Writer) begin() error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	w.tx = tx

	w.peptideStmt, err = tx.Prepare(`
		INSERT INTO PeptideTable (
			PeptideId, PeptideKey, Sequence, ModifiedSequence, Modifications, NeutralMass
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare peptide statement: %w", err)
	}

	w.spectrumStmt, err = tx.Prepare(`
		INSERT INTO SpectrumTable (
			SpectrumId, PeptideId, Title, Charge, PrecursorMZ, RetentionTime,
			CollisionEnergy, FragmentationMode, MassAnalyzer, InstrumentName,
			SourceFile, SourceFormat, PeakCount, MatchedCount, blobMass, blobIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare spectrum statement: %w", err)
	}

	w.matchStmt, err = tx.Prepare(`
		INSERT INTO IonMatchTable (
			SpectrumId, Kind, IonType, Number, Charge, Annotation,
			TheoreticalMZ, ObservedMZ, Intensity, ErrorDa, ErrorPPM
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare match statement: %w", err)
	}

	return nil
}

// peptideID returns the row id for the entry's peptide, inserting it on
// first sight.
func (w *Writer) peptideID(e *library.Entry) (int64, error) {
	key := e.Peptide.Key()
	if id, ok := w.peptideIDs[key]; ok {
		return id, nil
	}

	var mass interface{}
	if w.lookup != nil {
		if m, err := e.Peptide.Mass(w.lookup); err == nil {
			mass = m
		}
	}
	var mods string
	if w.lookup != nil {
		mods = e.Peptide.ModString(w.lookup)
	}

	id := int64(len(w.peptideIDs) + 1)
	_, err := w.peptideStmt.Exec(
		id,
		key,
		e.Peptide.Sequence(),
		e.Peptide.ModifiedSequence(),
		mods,
		mass,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert peptide %s: %w", key, err)
	}
	w.peptideIDs[key] = id
	return id, nil
}

// WriteAnnotation stores one entry and its ion matches. Only found matches
// are stored; the full theoretical list can be regenerated from the peptide.
func (w *Writer) WriteAnnotation(e *library.Entry, matches []ions.IonMatch) error {
	if w.closed {
		return fmt.Errorf("write to finalized database %s", w.outputPath)
	}

	spec := e.Spectrum
	// Ensure peaks are sorted
	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}

	pepID, err := w.peptideID(e)
	if err != nil {
		return err
	}

	var rt, ce interface{}
	if spec.RetentionTime != nil {
		rt = *spec.RetentionTime
	}
	if spec.CollisionEnergy != nil {
		ce = *spec.CollisionEnergy
	}

	found := ions.Found(matches)

	w.spectrumID++
	_, err = w.spectrumStmt.Exec(
		w.spectrumID,
		pepID,
		spec.Name(),
		spec.Charge,
		spec.PrecursorMZ,
		rt,
		ce,
		spec.FragmentationMode,
		spec.MassAnalyzer,
		spec.Instrument,
		spec.SourceFile,
		spec.SourceFormat,
		len(spec.Peaks),
		len(found),
		encodePeaksFloat64(spec.Peaks, true),
		encodePeaksFloat64(spec.Peaks, false),
	)
	if err != nil {
		return fmt.Errorf("failed to insert spectrum %s: %w", spec.Name(), err)
	}

	for _, m := range found {
		var ionType interface{}
		if m.Ion.Kind == ions.KindFragment {
			ionType = m.Ion.Type.String()
		}
		_, err := w.matchStmt.Exec(
			w.spectrumID,
			m.Ion.Kind.String(),
			ionType,
			m.Ion.Number,
			m.Charge,
			m.Annotation(),
			m.TheoreticalMZ,
			m.Peak.MZ,
			m.Peak.Intensity,
			m.ErrorDa(),
			m.ErrorPPM(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert match %s: %w", m.Annotation(), err)
		}
	}

	return nil
}

// encodePeaksFloat64 encodes peak data as little-endian float64 blob
func encodePeaksFloat64(peaks []core.Peak, useMZ bool) []byte {
	buf := make([]byte, len(peaks)*8)
	for i, peak := range peaks {
		var value float64
		if useMZ {
			value = peak.MZ
		} else {
			value = peak.Intensity
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

// DecodePeaksFloat64 is the inverse of the blob encoding used for
// blobMass and blobIntensity.
func DecodePeaksFloat64(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(blob))
	}
	out := make([]float64, len(blob)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return out, nil
}

// Finalize writes the header table, commits and closes the database
func (w *Writer) Finalize() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []string
	if _, err := w.tx.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, Description, SpectrumCount, PeptideCount)
		VALUES (?, ?, ?, ?, ?)
	`, SchemaVersion, time.Now().Format(headerDateFormat), w.description, w.spectrumID, len(w.peptideIDs)); err != nil {
		errs = append(errs, fmt.Sprintf("failed to insert header: %v", err))
	}

	// Close prepared statements
	for _, stmt := range []*sql.Stmt{w.peptideStmt, w.spectrumStmt, w.matchStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	if len(errs) > 0 {
		w.tx.Rollback()
	} else if err := w.tx.Commit(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to commit: %v", err))
	}

	// Close database
	if err := w.db.Close(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to close database: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
