package allowlist

import (
	"fmt"
	"io"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/matrix-installer/internal/storage"
)

// Verifier handles the logic for the allowlist commands.
type Verifier struct {
	Storage *storage.Storage
}

// NewVerifier creates a new Verifier instance.
func NewVerifier(storagePath string) (*Verifier, error) {
	s, err := storage.NewStorage(storagePath)
	if err != nil {
		return nil, err
	}

	return &Verifier{Storage: s}, nil
}

// Allowed reports whether entity may be installed without confirmation.
func (v *Verifier) Allowed(entity string) bool {
	return slices.Contains(v.Storage.Data.Allowlist, entity)
}

// ViewAllowlist prints the current allowlist to the provided writer.
func (v *Verifier) ViewAllowlist(w io.Writer) {
	if len(v.Storage.Data.Allowlist) == 0 {
		fmt.Fprintln(w, "Allowlist is empty.")
		return
	}

	for _, entity := range v.Storage.Data.Allowlist {
		fmt.Fprintf(w, "  - %s\n", entity)
	}
}

// AddToAllowlist adds an entity to the allowlist.
func (v *Verifier) AddToAllowlist(entity string) error {
	logrus.Debugf("Adding to allowlist: entity=%s", entity)
	if v.Allowed(entity) {
		return nil
	}
	v.Storage.Data.Allowlist = append(v.Storage.Data.Allowlist, entity)
	return v.Storage.Save()
}

// ResetAllowlist resets the allowlist.
func (v *Verifier) ResetAllowlist() error {
	logrus.Debug("Resetting allowlist")
	v.Storage.Data.Allowlist = []string{}
	return v.Storage.Save()
}
