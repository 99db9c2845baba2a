// Package roster turns a doctors spreadsheet into DoctorProfile records.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/MereWhiplash/doctor-finder/internal/types"
)

// DefaultSheet is the worksheet read from .xlsx rosters when none is given
const DefaultSheet = "Doctors"

// Required column headers
const (
	ColName        = "name"
	ColSpecialties = "specialties"
	ColLocation    = "location"
	ColOverview    = "overview"
	ColProfileLink = "profile_link"
)

var requiredColumns = []string{ColName, ColSpecialties, ColLocation, ColOverview, ColProfileLink}

// Load reads a roster from an .xlsx or .csv file.
// sheet is only used for spreadsheets; empty means DefaultSheet.
func Load(path, sheet string) ([]types.DoctorProfile, error) {
	var (
		rows [][]string
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path, sheet)
	case ".csv":
		rows, err = readCSVFile(path)
	default:
		return nil, fmt.Errorf("unsupported roster format %q: use .xlsx or .csv", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return Parse(rows)
}

func readXLSX(path, sheet string) ([][]string, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV reads all records from r. Rows may have differing field counts.
func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

// Parse converts raw rows (header first) into profiles, in row order.
// A missing required column is returned as ErrMissingColumn.
func Parse(rows [][]string) ([]types.DoctorProfile, error) {
	if len(rows) == 0 {
		return nil, errors.New("roster is empty: header row required")
	}

	idx, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	profiles := make([]types.DoctorProfile, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}

		cell := func(col string) string {
			i := idx[col]
			if i >= len(row) {
				return ""
			}
			return row[i]
		}

		p := types.DoctorProfile{
			Name:        CleanName(cell(ColName)),
			Specialties: strings.TrimSpace(cell(ColSpecialties)),
			Location:    FormatLocation(cell(ColLocation)),
			Overview:    cell(ColOverview),
			ProfileLink: strings.TrimSpace(cell(ColProfileLink)),
		}
		p.Derive()
		profiles = append(profiles, p)
	}

	return profiles, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrMissingColumn, strings.Join(missing, ", "))
	}

	return idx, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// CleanName keeps the display name before the first comma,
// dropping credentials such as "Jane Doe, MD".
func CleanName(raw string) string {
	name, _, _ := strings.Cut(raw, ",")
	return strings.TrimSpace(name)
}

// FormatLocation trims the location and separates the first two words with
// a comma ("Springfield IL" becomes "Springfield, IL").
func FormatLocation(raw string) string {
	return strings.Replace(strings.TrimSpace(raw), " ", ", ", 1)
}
