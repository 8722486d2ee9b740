package io

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/pipeline"
)

// WriteResultJSON writes res to w as indented JSON.
func WriteResultJSON(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// ExportResult writes res to the file at path, replacing it.
func ExportResult(path string, res *pipeline.Result) error {
	if err := errs.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteResultJSON(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadResultJSON decodes a result written by WriteResultJSON.
func ReadResultJSON(r io.Reader) (*pipeline.Result, error) {
	var res pipeline.Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode result")
	}
	if res.RunID == "" {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "result has no run_id")
	}
	return &res, nil
}

// ImportResult reads the result file at path.
func ImportResult(path string) (*pipeline.Result, error) {
	if err := errs.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "result %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	res, err := ReadResultJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
