package merge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"repomerge/pkg/errors"
)

// ReceiptName is the filename of the merge receipt written into the output
// directory after a successful run.
const ReceiptName = ".repomerge.json"

// Receipt records what a merge produced. The serve command reads it back
// to describe the directory it is hosting.
type Receipt struct {
	MergedAt time.Time        `json:"merged_at"`
	Archives []string         `json:"archives"`
	Packages []ReceiptPackage `json:"packages"`
}

// ReceiptPackage is one extracted winner.
type ReceiptPackage struct {
	Package string `json:"package"`
	Version string `json:"version,omitempty"`
	Jar     string `json:"jar"`
}

// WriteReceipt writes the receipt for result into dir.
func WriteReceipt(dir string, result *Result) error {
	rec := Receipt{
		MergedAt: time.Now().UTC(),
		Archives: result.Archives,
	}
	for _, w := range result.Winners {
		rec.Packages = append(rec.Packages, ReceiptPackage{
			Package: w.Package,
			Version: w.DisplayVersion(),
			Jar:     w.Basename(),
		})
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode merge receipt")
	}
	data = append(data, '\n')

	if err := os.WriteFile(filepath.Join(dir, ReceiptName), data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write merge receipt")
	}
	return nil
}

// ReadReceipt loads the receipt previously written into dir. A missing
// receipt reports the NOT_FOUND code so callers can fall back gracefully.
func ReadReceipt(dir string) (*Receipt, error) {
	data, err := os.ReadFile(filepath.Join(dir, ReceiptName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "no merge receipt in %s", dir)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read merge receipt")
	}

	var rec Receipt
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "parse merge receipt")
	}
	return &rec, nil
}
