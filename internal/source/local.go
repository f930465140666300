package source

import (
	"context"
	"fmt"
	"github.com/denismitr/micromigrate/internal/logger"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultMigrationsFolder = "./migrations"

	createdAtFormat = "20060102150405"
)

var (
	nameRegexp = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)
	fileRegexp = regexp.MustCompile(`^\d{14}_(.+)\.sql$`)
)

type LocalFileSource struct {
	*FSSource

	folder string
	lg     logger.Logger
	now    func() time.Time
}

var _ Source = (*LocalFileSource)(nil)

func NewLocalFileSource(folder string, lg logger.Logger) *LocalFileSource {
	if folder == "" {
		folder = DefaultMigrationsFolder
	}

	if lg == nil {
		lg = &logger.NullLogger{}
	}

	return &LocalFileSource{
		FSSource: NewFSSource(os.DirFS(folder), ".", lg),
		folder:   folder,
		lg:       lg,
		now:      time.Now,
	}
}

func (lfs *LocalFileSource) Select(ctx context.Context) (migration.Migrations, error) {
	if !lfs.IsValid() {
		return nil, errors.Wrapf(ErrFolderNotFound, "[%s]", lfs.folder)
	}

	return lfs.FSSource.Select(ctx)
}

func (lfs *LocalFileSource) IsValid() bool {
	info, err := os.Stat(lfs.folder)
	if os.IsNotExist(err) || err != nil {
		return false
	}

	return info.IsDir()
}

// AlreadyExists looks for a file created for exactly the given migration name
func (lfs *LocalFileSource) AlreadyExists(name string) bool {
	entries, err := os.ReadDir(lfs.folder)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		matches := fileRegexp.FindStringSubmatch(entry.Name())
		if len(matches) == 2 && matches[1] == name {
			return true
		}
	}

	return false
}

// Create writes a stub migration named <UTC yyyymmddhhmmss>_<name>.sql
// and returns the path of the new file
func (lfs *LocalFileSource) Create(name string, after ...string) (string, error) {
	if !nameRegexp.MatchString(name) {
		return "", errors.Wrapf(ErrInvalidName, "[%s]", name)
	}

	for _, dep := range after {
		if strings.TrimSpace(dep) == "" || strings.ContainsAny(dep, " \t\n") {
			return "", errors.Wrapf(ErrInvalidName, "dependency [%s]", dep)
		}
	}

	if lfs.AlreadyExists(name) {
		return "", errors.Wrapf(ErrMigrationExists, "[%s]", name)
	}

	if err := os.MkdirAll(lfs.folder, 0755); err != nil {
		return "", errors.Wrapf(err, "could not create folder %s", lfs.folder)
	}

	filename := filepath.Join(
		lfs.folder,
		fmt.Sprintf("%s_%s%s", lfs.now().UTC().Format(createdAtFormat), name, sqlExtension),
	)

	if err := os.WriteFile(filename, []byte(stub(name, after)), 0644); err != nil {
		return "", errors.Wrapf(err, "could not create file [%s]", filename)
	}

	lfs.lg.Successf("created migration %s", filename)

	return filename, nil
}

func stub(name string, after []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "-- %s %s\n", migration.NameKey, name)
	if len(after) > 0 {
		fmt.Fprintf(&b, "-- %s %s\n", migration.AfterKey, strings.Join(after, " "))
	}

	b.WriteString("\n")

	return b.String()
}
