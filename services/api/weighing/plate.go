package weighing

import "strings"

// NormalizePlate strips all whitespace and uppercases a plate number, so
// "bk 1234 xy" and "BK1234XY" identify the same truck.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}
