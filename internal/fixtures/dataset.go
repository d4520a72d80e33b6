package fixtures

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/okian/tasteid/internal/domain/model"
)

const fixtureFilePermission = 0o600

// Dataset is a seedable set of reviews plus the persona behind each user.
type Dataset struct {
	Personas    []Persona         `yaml:"personas"`
	Assignments map[string]string `yaml:"assignments"`
	Reviews     []model.Review    `yaml:"reviews"`
}

// Users returns the assigned user ids in order.
func (d *Dataset) Users() []string {
	out := make([]string, 0, len(d.Assignments))
	for u := range d.Assignments {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Persona returns the persona assigned to userID.
func (d *Dataset) Persona(userID string) (Persona, bool) {
	name, ok := d.Assignments[userID]
	if !ok {
		return Persona{}, false
	}
	for _, p := range d.Personas {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

// Validate checks that every assignment names a known persona and every
// review has a user and an album.
func (d *Dataset) Validate() error {
	names := make(map[string]struct{}, len(d.Personas))
	for _, p := range d.Personas {
		names[p.Name] = struct{}{}
	}
	for u, name := range d.Assignments {
		if _, ok := names[name]; !ok {
			return fmt.Errorf("%w: user %s assigned to unknown persona %q", ErrInvalidDataset, u, name)
		}
	}
	for i, r := range d.Reviews {
		if r.UserID == "" {
			return fmt.Errorf("%w: review %d has no user", ErrInvalidDataset, i)
		}
		if r.AlbumID == "" && r.Album.ID == "" {
			return fmt.Errorf("%w: review %s has no album", ErrInvalidDataset, r.ID)
		}
	}
	return nil
}

// Encode writes the dataset as YAML.
func (d *Dataset) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return enc.Close()
}

// Decode reads and validates a YAML dataset.
func Decode(r io.Reader) (*Dataset, error) {
	var d Dataset
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ReadFile decodes the dataset stored at path.
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile stores the dataset at path.
func (d *Dataset) WriteFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fixtureFilePermission)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	if err := d.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
