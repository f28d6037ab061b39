package rbac

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

//go:embed permissions.yaml
var defaultTableYAML []byte

// Table is the declarative role scheme shared by the server and its clients.
type Table struct {
	DefaultRole shared.Role              `yaml:"defaultRole" json:"defaultRole"`
	Hierarchy   []shared.Role            `yaml:"hierarchy" json:"hierarchy"`
	Permissions map[shared.Role][]string `yaml:"permissions" json:"permissions"`
}

// ParseTable decodes a YAML (or JSON) role table.
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("rbac: parse table: %w", err)
	}
	return t, nil
}

// DefaultTable returns the built-in role table.
func DefaultTable() Table {
	t, err := ParseTable(defaultTableYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTable reads a table from path, falling back to the built-in table when path is empty.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("rbac: read table %s: %w", path, err)
	}
	return ParseTable(data)
}

func (t Table) clone() Table {
	out := Table{
		DefaultRole: t.DefaultRole,
		Hierarchy:   append([]shared.Role(nil), t.Hierarchy...),
		Permissions: make(map[shared.Role][]string, len(t.Permissions)),
	}
	for role, perms := range t.Permissions {
		out.Permissions[role] = append([]string{}, perms...)
	}
	return out
}
