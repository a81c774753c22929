// Package ledger persists accepted leads in an append-only spreadsheet. Every
// append re-saves the whole workbook so an interrupted run loses at most the
// record in flight.
package ledger

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/model"
)

// Header is the fixed first row of the ledger.
var Header = []string{"Nome Azienda", "URL", "Email", "Telefono", "Settore"}

const sheetName = "Sheet"

// ErrLocked is returned when another process holds the ledger lock.
var ErrLocked = eris.New("ledger: locked by another process")

// File is the spreadsheet-backed ledger.
type File struct {
	path string
}

// New returns a ledger stored at path.
func New(path string) *File {
	return &File{path: path}
}

// Path returns the configured ledger location.
func (f *File) Path() string { return f.path }

// EnsureInitialized creates the ledger with only the header row when it does
// not exist yet. It is idempotent and returns the ledger path.
func (f *File) EnsureInitialized() (string, error) {
	_, err := os.Stat(f.path)
	switch {
	case err == nil:
		zap.L().Debug("ledger: existing file found", zap.String("path", f.path))
		return f.path, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", eris.Wrap(err, "ledger: stat")
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", eris.Wrap(err, "ledger: create dir")
		}
	}

	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet(sheetName)
	if err != nil {
		return "", eris.Wrap(err, "ledger: add sheet")
	}
	writeRow(sheet, Header)

	if err := save(wb, f.path); err != nil {
		return "", err
	}
	zap.L().Info("ledger: created", zap.String("path", f.path))
	return f.path, nil
}

// LoadAll reads every record below the header. A missing file yields no
// records; rows with an empty name are skipped.
func (f *File) LoadAll(path string) ([]model.CompanyRecord, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: open file")
	}
	if len(wb.Sheets) == 0 {
		return nil, nil
	}

	var records []model.CompanyRecord
	for i, row := range wb.Sheets[0].Rows {
		if i == 0 || row == nil {
			continue
		}
		cells := rowToStrings(row)
		if strings.TrimSpace(cells[0]) == "" {
			continue
		}
		records = append(records, model.CompanyRecord{
			Name:   cells[0],
			URL:    cells[1],
			Email:  model.StringPtr(cells[2]),
			Phone:  model.StringPtr(cells[3]),
			Sector: cells[4],
		})
	}
	return records, nil
}

// Append adds one row for rec under sector and saves the workbook before
// returning. The ledger must already be initialized.
func (f *File) Append(path string, rec model.CompanyRecord, sector string) error {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return eris.Wrap(err, "ledger: acquire lock")
	}
	if !locked {
		return ErrLocked
	}
	defer func() { _ = lock.Unlock() }()

	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return eris.Wrap(err, "ledger: open file")
	}
	if len(wb.Sheets) == 0 {
		return eris.Errorf("ledger: %s has no sheets", path)
	}

	writeRow(wb.Sheets[0], []string{
		rec.Name,
		rec.URL,
		model.Deref(rec.Email),
		model.Deref(rec.Phone),
		sector,
	})

	if err := save(wb, path); err != nil {
		return err
	}
	zap.L().Debug("ledger: appended", zap.String("name", rec.Name), zap.String("url", rec.URL))
	return nil
}

// save writes the workbook next to path and renames it into place.
func save(wb *xlsx.File, path string) error {
	tmp := path + ".tmp"
	if err := wb.Save(tmp); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "ledger: save")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "ledger: replace file")
	}
	return nil
}

// writeRow appends values as a new row. Empty values stay empty cells.
func writeRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		cell := row.AddCell()
		if v != "" {
			cell.SetString(v)
		}
	}
}

// rowToStrings returns the first len(Header) cells as written, padding
// short rows. Values are not trimmed: URLs are dedup keys and must reload
// byte for byte.
func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(Header))
	for j, cell := range row.Cells {
		if j >= len(cells) {
			break
		}
		if cell != nil {
			cells[j] = cell.String()
		}
	}
	return cells
}
