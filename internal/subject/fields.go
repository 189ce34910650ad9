package subject

import "strings"

// CDRField is the positional index of a column in a subject CSV row. The
// runner never interprets these columns itself — parsing is the opaque
// CDR helper's job, invoked from inside the sandbox — but fixtures that
// need to hand-assemble a row still need the column order to avoid
// guessing it.
type CDRField int

const (
	FieldInteraction CDRField = iota
	FieldDirection
	FieldCorrespondentID
	FieldDatetime
	FieldCallDuration
	FieldAntennaID
	FieldLongitude
	FieldLatitude
	FieldLocationLevel1
	FieldLocationLevel2
	fieldCount
)

// DatetimeLayout is the Go time layout equivalent of the CDR schema's
// "%Y-%m-%d %H:%M:%S" datetime format.
const DatetimeLayout = "2006-01-02 15:04:05"

// FixtureRow assembles one CDR row in canonical column order from a
// sparse set of field values, leaving any column not present in values
// blank. It exists so fixtures (tests, local dev data) can build a
// realistic subject row without hard-coding the column order inline.
func FixtureRow(values map[CDRField]string) string {
	cols := make([]string, fieldCount)
	for field, value := range values {
		if field >= 0 && int(field) < len(cols) {
			cols[field] = value
		}
	}
	return strings.Join(cols, ",")
}
