package invite

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// UIDColumn is the header of the column holding GitLab user IDs.
const UIDColumn = "uid"

// ReadUIDsFile reads user IDs from a CSV file, see ReadUIDs.
func ReadUIDsFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open uid file: %w", err)
	}
	defer f.Close()

	ids, err := ReadUIDs(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ids, nil
}

// ReadUIDs reads the "uid" column of a CSV document with a header row.
// Other columns are ignored, blank cells are skipped and order is kept.
func ReadUIDs(r io.Reader) ([]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty uid file: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := -1
	for i, name := range header {
		// Spreadsheet exports often start with a UTF-8 BOM.
		name = strings.TrimPrefix(name, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(name), UIDColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no %q column in header %v", UIDColumn, header)
	}

	var ids []int
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if col >= len(record) {
			continue
		}
		cell := strings.TrimSpace(record[col])
		if cell == "" {
			continue
		}
		id, err := strconv.Atoi(cell)
		if err != nil {
			line, _ := reader.FieldPos(col)
			return nil, fmt.Errorf("line %d: invalid uid %q", line, cell)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
