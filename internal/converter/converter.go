package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/sas2xlsx/internal/types"
)

const (
	SourceExt = ".sas7bdat"
	TargetExt = ".xlsx"
)

type FailureKind int

const (
	SourceUnreadable FailureKind = iota + 1
	DestinationUnwritable
)

func (k FailureKind) String() string {
	switch k {
	case SourceUnreadable:
		return "source unreadable"
	case DestinationUnwritable:
		return "destination unwritable"
	}
	return "unknown failure"
}

// ConversionError reports which side of a conversion failed.
type ConversionError struct {
	Kind FailureKind
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// KindOf returns the FailureKind carried by err, or 0 if err is not a ConversionError.
func KindOf(err error) FailureKind {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return convErr.Kind
	}
	return 0
}

// Convert reads a sas7bdat file and writes it out as an xlsx workbook.
func Convert(inputFile, outputFile string) (*types.ConversionResult, error) {
	if err := checkDestination(outputFile); err != nil {
		return nil, &ConversionError{Kind: DestinationUnwritable, Path: outputFile, Err: err}
	}

	table, err := ReadSAS(inputFile)
	if err != nil {
		return nil, &ConversionError{Kind: SourceUnreadable, Path: inputFile, Err: err}
	}

	return convertTable(table, inputFile, outputFile)
}

// convertTable writes an already decoded table. A dataset too large for one
// worksheet is a property of the source, so it is reported as SourceUnreadable.
func convertTable(table *types.Table, inputFile, outputFile string) (*types.ConversionResult, error) {
	if err := checkSheetLimits(table); err != nil {
		return nil, &ConversionError{Kind: SourceUnreadable, Path: inputFile, Err: err}
	}

	if err := WriteXLSX(table, outputFile); err != nil {
		return nil, &ConversionError{Kind: DestinationUnwritable, Path: outputFile, Err: err}
	}

	return &types.ConversionResult{
		InputFile:   inputFile,
		OutputFile:  outputFile,
		Columns:     table.ColumnNames(),
		RowsWritten: table.RowCount(),
	}, nil
}

// ConvertRequest adapts Convert to a ConversionRequest.
func ConvertRequest(req types.ConversionRequest) (*types.ConversionResult, error) {
	return Convert(req.SourcePath, req.DestinationPath)
}

func checkDestination(outputFile string) error {
	if ext := filepath.Ext(outputFile); !strings.EqualFold(ext, TargetExt) {
		return fmt.Errorf("%s does not end in %s", outputFile, TargetExt)
	}
	dir := filepath.Dir(outputFile)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if info, err := os.Stat(outputFile); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", outputFile)
	}
	return nil
}

// DerivedPath swaps the extension of sourcePath for .xlsx, keeping directory
// and base name.
func DerivedPath(sourcePath string) string {
	if sourcePath == "" {
		return ""
	}
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + TargetExt
}

// WithTargetExt appends .xlsx to path unless it already ends in it, in any case.
func WithTargetExt(path string) string {
	if path == "" || strings.EqualFold(filepath.Ext(path), TargetExt) {
		return path
	}
	return path + TargetExt
}

// SuggestedName is the file name offered when saving, e.g. "survey.xlsx".
func SuggestedName(sourcePath string) string {
	if sourcePath == "" {
		return ""
	}
	return filepath.Base(DerivedPath(sourcePath))
}
