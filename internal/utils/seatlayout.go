package utils

import "fmt"

// rowAlphabet provides row letters for generated seat layouts. Layouts
// are capped at 26 rows; categories larger than a full alphabet should
// be split into multiple categories instead.
const rowAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MaxRows is the largest row count a seat layout may have.
const MaxRows = len(rowAlphabet)

// GenerateSeatNumbers produces the fixed seat layout for a category:
// one label per seat, row letter followed by a 1-based column number
// ("A1", "A2", ... "B1", ...). It returns an error when the dimensions
// are out of range rather than silently truncating the layout.
func GenerateSeatNumbers(rows, cols int) ([]string, error) {
	if rows < 1 || rows > MaxRows {
		return nil, fmt.Errorf("seat layout rows must be between 1 and %d, got %d", MaxRows, rows)
	}
	if cols < 1 {
		return nil, fmt.Errorf("seat layout cols must be positive, got %d", cols)
	}
	seats := make([]string, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 1; c <= cols; c++ {
			seats = append(seats, fmt.Sprintf("%c%d", rowAlphabet[r], c))
		}
	}
	return seats, nil
}
