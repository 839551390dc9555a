package table

import "fmt"

// DataConsistencyError reports a row or column that the pipeline requires
// but that is absent or malformed. Row is -1 when the whole column is at fault.
type DataConsistencyError struct {
	Table  string
	Column string
	Row    int
	Reason string
}

func (e *DataConsistencyError) Error() string {
	switch {
	case e.Column == "":
		return fmt.Sprintf("data consistency: table %q: %s", e.Table, e.Reason)
	case e.Row < 0:
		return fmt.Sprintf("data consistency: table %q column %q: %s", e.Table, e.Column, e.Reason)
	default:
		return fmt.Sprintf("data consistency: table %q column %q row %d: %s", e.Table, e.Column, e.Row, e.Reason)
	}
}
