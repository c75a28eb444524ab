package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/matrix-installer/internal/events"
	"github.com/ensigniasec/matrix-installer/internal/link"
	"github.com/ensigniasec/matrix-installer/internal/validate"
)

// InstallRecord is the outcome of one install session. Logs are not kept.
type InstallRecord struct {
	SessionID  string    `json:"session_id" validate:"required,uuid4"`
	Entity     string    `json:"entity" validate:"required"`
	Alias      string    `json:"alias" validate:"required,alias"`
	Hub        string    `json:"hub,omitempty"`
	OK         bool      `json:"ok"`
	Code       int       `json:"code"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRecord starts a record for req with a fresh session id.
func NewRecord(req link.Request) InstallRecord {
	return InstallRecord{
		SessionID: uuid.NewString(),
		Entity:    req.Entity,
		Alias:     req.Alias,
		Hub:       req.Hub,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the completion onto the record.
func (r *InstallRecord) Finish(c events.Completion) {
	r.OK = c.OK
	r.Code = c.Code
	r.FinishedAt = time.Now().UTC()
}

// Data represents the structure of the storage file.
type Data struct {
	HostUUID string                   `json:"host_uuid,omitempty" validate:"omitempty,uuid4"`
	Installs map[string]InstallRecord `json:"installs" validate:"dive"`
	// Allowlist holds entities the user trusts to install without confirmation.
	Allowlist []string `json:"allowlist"`
}

// Storage handles the loading and saving of the storage file.
type Storage struct {
	Path string `validate:"required,filepath"`
	Data Data
}

// NewStorage creates a new Storage instance.
func NewStorage(path string) (*Storage, error) {
	expandedPath, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		Path: expandedPath,
		Data: Data{
			Installs:  make(map[string]InstallRecord),
			Allowlist: []string{},
		},
	}

	if err := s.Load(); err != nil {
		// If the file doesn't exist, we can ignore the error.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if s.Data.Installs == nil {
		s.Data.Installs = make(map[string]InstallRecord)
	}

	// Ensure HostUUID present: if not present in storage, generate one.
	if s.Data.HostUUID == "" {
		s.Data.HostUUID = uuid.NewString()
	}

	return s, nil
}

// NewOrExistingStorage returns existing storage if the file exists, or creates a new one otherwise.
// When creating a new storage, it writes the initial structure to disk immediately.
func NewOrExistingStorage(path string) (*Storage, error) {
	expandedPath, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(expandedPath); err == nil {
		return NewStorage(path)
	} else if os.IsNotExist(err) {
		s, err := NewStorage(path)
		if err != nil {
			return nil, err
		}
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, err
}

func (s *Storage) Load() error {
	logrus.Debug("Loading storage file from: ", s.Path)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &s.Data); err != nil {
		return err
	}

	// Validate loaded data and self-heal when possible.
	if err := validate.Struct(s.Data); err != nil {
		changed := false
		if s.Data.HostUUID == "" || validate.Var(s.Data.HostUUID, "uuid4") != nil {
			s.Data.HostUUID = uuid.NewString()
			changed = true
		}
		for alias, rec := range s.Data.Installs {
			if validate.Struct(rec) != nil || rec.Alias != alias {
				logrus.Warnf("Invalid install record for %q found in storage; dropping.", alias)
				delete(s.Data.Installs, alias)
				changed = true
			}
		}
		if changed {
			if err := s.Save(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Save writes the storage data to the file.
func (s *Storage) Save() error {
	logrus.Debug("Saving storage file to: ", s.Path)
	// Ensure parent directory exists.
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.Data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.Path, data, 0o600)
}

// Record stores rec as the latest outcome for its alias and saves.
func (s *Storage) Record(rec InstallRecord) error {
	if err := validate.Struct(rec); err != nil {
		return err
	}
	s.Data.Installs[rec.Alias] = rec
	return s.Save()
}

// History returns recorded installs, most recently finished first.
func (s *Storage) History() []InstallRecord {
	out := make([]InstallRecord, 0, len(s.Data.Installs))
	for _, rec := range s.Data.Installs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FinishedAt.Equal(out[j].FinishedAt) {
			return out[i].Alias < out[j].Alias
		}
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	return out
}

// expandTilde expands the tilde in a path to the user's home directory.
func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}
