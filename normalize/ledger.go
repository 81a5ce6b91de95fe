package normalize

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"
)

// Ledger is a durable append-only set of file names, one per line.
// An entry counts only once its trailing newline is on disk, so a line cut
// short by a crash is discarded when the ledger is reopened.
type Ledger struct {
	path  string
	file  *os.File
	names map[string]bool
	order []string
}

func OpenLedger(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	l := &Ledger{path: path, names: make(map[string]bool)}
	complete := data
	if i := bytes.LastIndexByte(data, '\n'); i < len(data)-1 {
		complete = data[:i+1]
		log.Printf("[ledger] %s: discarding partial entry %q", path, data[i+1:])
		if err := os.Truncate(path, int64(len(complete))); err != nil {
			return nil, err
		}
	}
	for _, line := range strings.Split(string(complete), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || l.names[line] {
			continue
		}
		l.names[line] = true
		l.order = append(l.order, line)
	}

	l.file, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) Has(name string) bool {
	return l.names[name]
}

func (l *Ledger) Len() int {
	return len(l.order)
}

// Names returns the entries in the order they were appended.
func (l *Ledger) Names() []string {
	return append([]string(nil), l.order...)
}

// Append records name with a single write and syncs it to disk.
func (l *Ledger) Append(name string) error {
	if name == "" || strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("invalid ledger entry %q", name)
	}
	if _, err := l.file.WriteString(name + "\n"); err != nil {
		return err
	}
	if err := l.file.Sync(); err != nil {
		return err
	}
	if !l.names[name] {
		l.names[name] = true
		l.order = append(l.order, name)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.file.Close()
}
