package io

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/boothplan/pkg/alloc"
	errs "github.com/matzehuels/boothplan/pkg/errors"
)

// ReadDemandsJSON decodes a JSON array of demands from r.
func ReadDemandsJSON(r io.Reader) ([]alloc.Demand, error) {
	var out []alloc.Demand
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode projects")
	}
	for i, d := range out {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("project %d: %w", i+1, err)
		}
	}
	return out, nil
}

// ReadDemandsCSV reads demands from a CSV file with a header row.
func ReadDemandsCSV(r io.Reader) ([]alloc.Demand, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "read csv")
	}
	return demandsFromRows(rows)
}

// ReadDemandsXLSX reads demands from sheet of an XLSX workbook. An empty
// sheet name means the first sheet.
func ReadDemandsXLSX(r io.Reader, sheet string) ([]alloc.Demand, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "open workbook")
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read sheet %q", sheet)
	}
	return demandsFromRows(rows)
}

// ImportDemands reads the demand file at path, choosing the reader by
// extension (.json, .csv or .xlsx).
func ImportDemands(path string) ([]alloc.Demand, error) {
	if err := errs.ValidatePath(path); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var read func(io.Reader) ([]alloc.Demand, error)
	switch ext {
	case ".json":
		read = ReadDemandsJSON
	case ".csv":
		read = ReadDemandsCSV
	case ".xlsx":
		read = func(r io.Reader) ([]alloc.Demand, error) { return ReadDemandsXLSX(r, "") }
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported project file %q (must be .json, .csv or .xlsx)", ext)
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "projects %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	demands, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return demands, nil
}

// =============================================================================
// Tabular decoding
// =============================================================================

var headerAliases = map[string]string{
	"id":         "id",
	"project_id": "id",
	"name":       "name",
	"title":      "name",
	"space_x":    "space_x",
	"width":      "space_x",
	"space_y":    "space_y",
	"depth":      "space_y",
	"size":       "size",
}

// sizePattern matches "6x4", "6 × 4", "2.5*3" and "6-4".
var sizePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[×xX*-]\s*(\d+(?:\.\d+)?)`)

func demandsFromRows(rows [][]string) ([]alloc.Demand, error) {
	if len(rows) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "no header row")
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := headerAliases[key]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	if _, ok := cols["id"]; !ok {
		return nil, errs.New(errs.ErrCodeInvalidInput, "missing id column")
	}
	_, hasX := cols["space_x"]
	_, hasY := cols["space_y"]
	_, hasSize := cols["size"]
	if !(hasX && hasY) && !hasSize {
		return nil, errs.New(errs.ErrCodeInvalidInput, "missing space_x/space_y or size columns")
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]alloc.Demand, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		if blank(row) {
			continue
		}
		d := alloc.Demand{ID: cell(row, "id"), Name: cell(row, "name")}

		var err error
		if hasX && hasY {
			if d.Width, err = parseDim(cell(row, "space_x")); err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidDemand, err, "row %d: space_x", line)
			}
			if d.Depth, err = parseDim(cell(row, "space_y")); err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidDemand, err, "row %d: space_y", line)
			}
		} else {
			m := sizePattern.FindStringSubmatch(cell(row, "size"))
			if m == nil {
				return nil, errs.New(errs.ErrCodeInvalidDemand, "row %d: size %q is not of the form WxD", line, cell(row, "size"))
			}
			d.Width, _ = strconv.ParseFloat(m[1], 64)
			d.Depth, _ = strconv.ParseFloat(m[2], 64)
		}

		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// parseDim accepts a decimal comma, as spreadsheets in some locales export.
func parseDim(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
