package cvs

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strings"
)

// Mapping resolves a videoId to the name of its video file.
type Mapping struct {
	names map[string]string
}

func NewMapping(names map[string]string) *Mapping {
	m := &Mapping{names: make(map[string]string)}
	for k, v := range names {
		m.names[k] = v
	}
	return m
}

// LoadMapping reads a CSV file whose header has videoId and video_name
// columns. Other columns are ignored.
func LoadMapping(fname string) (*Mapping, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadMapping(file)
}

func ReadMapping(r io.Reader) (*Mapping, error) {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	header, err := csvr.Read()
	if err == io.EOF {
		return nil, &SchemaError{Path: "mapping", Msg: "empty file"}
	} else if err != nil {
		return nil, err
	}

	idCol, nameCol := -1, -1
	for i, label := range header {
		label = strings.TrimSpace(strings.TrimPrefix(label, "\ufeff"))
		switch label {
		case ColumnVideoID:
			idCol = i
		case ColumnVideoName:
			nameCol = i
		}
	}
	if idCol < 0 || nameCol < 0 {
		return nil, &SchemaError{Path: "mapping", Msg: "header must have videoId and video_name columns"}
	}

	m := &Mapping{names: make(map[string]string)}
	for line := 2; ; line++ {
		record, err := csvr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if idCol >= len(record) || nameCol >= len(record) {
			log.Printf("[mapping] skipping short record on line %d", line)
			continue
		}
		id := strings.TrimSpace(record[idCol])
		name := strings.TrimSpace(record[nameCol])
		if id == "" || name == "" {
			continue
		}
		if prev, ok := m.names[id]; ok {
			if prev != name {
				log.Printf("[mapping] videoId %s maps to both %s and %s, keeping %s", id, prev, name, prev)
			}
			continue
		}
		m.names[id] = name
	}
	return m, nil
}

// Lookup returns the video name, or a null cell if the id is unmapped.
// A nil mapping maps nothing.
func (m *Mapping) Lookup(videoID string) Cell {
	if m == nil {
		return Null
	}
	name, ok := m.names[videoID]
	if !ok {
		return Null
	}
	return Str(name)
}

func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}
