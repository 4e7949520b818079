package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// NameTable is an immutable, case-insensitive display name -> participant id
// mapping used when an announcement names a participant without a reference.
type NameTable struct {
	ids     map[string]string
	version string
}

type nameTableFile struct {
	Names map[string]string `yaml:"names"`
}

// NewNameTable copies names into a new table. Empty keys or ids are skipped.
func NewNameTable(names map[string]string) *NameTable {
	t := &NameTable{ids: make(map[string]string, len(names))}
	keys := make([]string, 0, len(names))
	for name, id := range names {
		k := normalizeName(name)
		id = strings.TrimSpace(id)
		if k == "" || id == "" {
			continue
		}
		t.ids[k] = id
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, t.ids[k])
	}
	t.version = hex.EncodeToString(h.Sum(nil))[:12]
	return t
}

// LoadNameTable reads a YAML file of the form:
//
//	names:
//	  alice: "111"
//	  bob: "222"
func LoadNameTable(path string) (*NameTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read name table: %w", err)
	}
	var f nameTableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse name table %s: %w", path, err)
	}
	return NewNameTable(f.Names), nil
}

func (t *NameTable) Lookup(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	id, ok := t.ids[normalizeName(name)]
	return id, ok
}

func (t *NameTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.ids)
}

// Version is a short content hash, stable for identical tables.
func (t *NameTable) Version() string {
	if t == nil {
		return ""
	}
	return t.version
}

func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	return strings.ToLower(strings.TrimSpace(s))
}
