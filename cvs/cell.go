package cvs

import (
	"encoding/json"
)

// Cell is a nullable table value.
// A null cell is different from a cell holding the empty string.
type Cell struct {
	Value string
	Valid bool
}

// Null is the missing value.
var Null = Cell{}

func Str(s string) Cell {
	return Cell{Value: s, Valid: true}
}

func (c Cell) IsNull() bool {
	return !c.Valid
}

// String returns the value, or "" for null cells.
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return c.Value
}

// Or returns c if it is set, otherwise other.
func (c Cell) Or(other Cell) Cell {
	if c.Valid {
		return c
	}
	return other
}

// SQL returns the value to bind for database/sql: nil for null cells.
func (c Cell) SQL() interface{} {
	if !c.Valid {
		return nil
	}
	return c.Value
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

func (c *Cell) UnmarshalJSON(bytes []byte) error {
	if string(bytes) == "null" {
		*c = Null
		return nil
	}
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}
	*c = Str(s)
	return nil
}

func anyNull(cells []Cell) bool {
	for _, c := range cells {
		if !c.Valid {
			return true
		}
	}
	return false
}
