package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"github.com/pkg/errors"
	"sort"
	"strings"
)

const (
	metaPrefix = "-- "

	// NameKey must be the key of the first metadata line
	NameKey = "migration"
	// AfterKey lists the migrations that have to be applied first
	AfterKey = "after"
)

const (
	ReasonFirstComment  = "first comment must declare a migration name"
	ReasonNameRedeclare = "migration name may only be declared once"
	ReasonMissingKey    = "metadata line has no key"
)

var ErrNoFactories = errors.New("no migration factories given")

type (
	// Names is an unordered set of migration names
	Names map[string]struct{}

	// Migration is one parsed migration script
	Migration struct {
		Name     string
		Checksum string
		SQL      string
		After    Names
	}

	Migrations []*Migration

	Factory func() (*Migration, error)
)

// ParseError describes a malformed migration header
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed migration at line %d: %s", e.Line, e.Reason)
	}

	return "malformed migration: " + e.Reason
}

// Parse reads the leading "-- " comment block of a raw script.
// The first comment has to be "-- migration <name>", every following one
// is "-- <key> <values...>". The checksum covers the whole raw text.
func Parse(raw string) (*Migration, error) {
	m := &Migration{
		Checksum: Checksum(raw),
		SQL:      raw,
		After:    Names{},
	}

	seen := make(map[string]bool)

	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, metaPrefix) {
			break
		}

		items := strings.Fields(line[len(metaPrefix):])

		if m.Name == "" {
			if len(items) != 2 || items[0] != NameKey {
				return nil, &ParseError{Line: i + 1, Reason: ReasonFirstComment}
			}

			m.Name = items[1]
			continue
		}

		if len(items) == 0 {
			return nil, &ParseError{Line: i + 1, Reason: ReasonMissingKey}
		}

		key := items[0]
		if key == NameKey {
			return nil, &ParseError{Line: i + 1, Reason: ReasonNameRedeclare}
		}

		if seen[key] {
			return nil, &ParseError{Line: i + 1, Reason: fmt.Sprintf("duplicate key %q", key)}
		}
		seen[key] = true

		switch key {
		case AfterKey:
			m.After = NewNames(items[1:]...)
		default:
			return nil, &ParseError{Line: i + 1, Reason: fmt.Sprintf("unknown metadata key %q", key)}
		}
	}

	if m.Name == "" {
		return nil, &ParseError{Reason: ReasonFirstComment}
	}

	return m, nil
}

// MustParse is like Parse but panics on a malformed script
func MustParse(raw string) *Migration {
	m, err := Parse(raw)
	if err != nil {
		panic(err)
	}

	return m
}

// Checksum is the lowercase hex sha256 digest of the raw script
func Checksum(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// FromScript creates a factory parsing the given raw script
func FromScript(raw string) Factory {
	return func() (*Migration, error) {
		return Parse(raw)
	}
}

func (m *Migration) ShortChecksum() string {
	if len(m.Checksum) < 6 {
		return m.Checksum
	}

	return m.Checksum[:6]
}

func (m *Migration) String() string {
	return fmt.Sprintf("%s (%s..)", m.Name, m.ShortChecksum())
}

func NewMigrations(factories ...Factory) (Migrations, error) {
	if len(factories) == 0 {
		return nil, ErrNoFactories
	}

	migrations := make(Migrations, len(factories))

	for i := range factories {
		m, err := factories[i]()
		if err != nil {
			return nil, err
		}

		migrations[i] = m
	}

	return migrations, nil
}

func (ms Migrations) Names() (result []string) {
	for i := range ms {
		result = append(result, ms[i].Name)
	}

	return result
}

func (ms Migrations) Find(name string) *Migration {
	for i := range ms {
		if ms[i].Name == name {
			return ms[i]
		}
	}

	return nil
}

func NewNames(names ...string) Names {
	n := make(Names, len(names))
	for _, name := range names {
		n[name] = struct{}{}
	}

	return n
}

func (n Names) Has(name string) bool {
	_, ok := n[name]
	return ok
}

// Sorted lists the names alphabetically
func (n Names) Sorted() []string {
	result := make([]string, 0, len(n))
	for name := range n {
		result = append(result, name)
	}

	sort.Strings(result)

	return result
}
