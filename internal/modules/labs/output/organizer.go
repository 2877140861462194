package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/platform/logger"
)

const (
	ContentFileName    = "lab_content.json"
	fullFileSuffix     = "_lab.json"
	DefaultSummaryFile = "generation_summary.json"
)

type Paths struct {
	ConceptDir string
	FullFile   string
	Simplified string
}

type Metadata struct {
	ConceptName            string    `json:"concept_name"`
	ConceptDefinition      string    `json:"concept_definition"`
	SourceTopic            string    `json:"source_topic"`
	ModelUsed              string    `json:"model_used"`
	PersonalizationApplied bool      `json:"personalization_applied"`
	GeneratedAt            time.Time `json:"generated_at"`
}

// Record is the full per-concept file: the lab plus how it was produced.
type Record struct {
	Lab       labs.LabArtifact `json:"lab"`
	Metadata  Metadata         `json:"metadata"`
	Success   bool             `json:"success"`
	ErrorKind labs.ErrorKind   `json:"error_kind,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type Organizer struct {
	dir         string
	summaryFile string
	log         *logger.Logger

	now    func() time.Time
	rename func(oldpath, newpath string) error
}

func NewOrganizer(log *logger.Logger, dir, summaryFile string) *Organizer {
	if strings.TrimSpace(summaryFile) == "" {
		summaryFile = DefaultSummaryFile
	}
	return &Organizer{
		dir:         dir,
		summaryFile: summaryFile,
		log:         log.With("service", "OutputOrganizer"),
		now:         func() time.Time { return time.Now().UTC() },
		rename:      os.Rename,
	}
}

func (o *Organizer) Dir() string { return o.dir }

// SummaryFile is the summary's name inside Dir. No concept may use it as a key.
func (o *Organizer) SummaryFile() string { return o.summaryFile }

// PathsFor returns where Persist writes the files for key.
func (o *Organizer) PathsFor(key string) Paths {
	dir := filepath.Join(o.dir, key)
	return Paths{
		ConceptDir: dir,
		FullFile:   filepath.Join(dir, key+fullFileSuffix),
		Simplified: filepath.Join(dir, ContentFileName),
	}
}

// Persist writes both files for one concept. Either both files land or the
// previous directory (if any) is left as it was. Failures are FilesystemError.
func (o *Organizer) Persist(res labs.GenerationResult) (Paths, error) {
	key := StorageKey(res.Concept.Name)
	if key == o.summaryFile {
		return Paths{}, o.fsError(res.Concept.Name, "persist", fmt.Errorf("storage key %q is reserved for the run summary", key))
	}
	paths := o.PathsFor(key)

	full, err := encode(Record{
		Lab: res.Artifact,
		Metadata: Metadata{
			ConceptName:            res.Concept.Name,
			ConceptDefinition:      res.Concept.Definition,
			SourceTopic:            res.SourceTopic,
			ModelUsed:              res.ModelUsed,
			PersonalizationApplied: res.PersonalizationApplied,
			GeneratedAt:            o.now(),
		},
		Success:   res.Success,
		ErrorKind: res.ErrorKind,
		Error:     res.Error,
	})
	if err != nil {
		return Paths{}, o.fsError(res.Concept.Name, "encode lab record", err)
	}
	simplified, err := encode(res.Artifact)
	if err != nil {
		return Paths{}, o.fsError(res.Concept.Name, "encode lab content", err)
	}

	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return Paths{}, o.fsError(res.Concept.Name, "create output dir", err)
	}
	staging, err := os.MkdirTemp(o.dir, ".staging-"+key+"-")
	if err != nil {
		return Paths{}, o.fsError(res.Concept.Name, "create staging dir", err)
	}
	defer os.RemoveAll(staging)

	if err := writeFileSync(filepath.Join(staging, key+fullFileSuffix), full); err != nil {
		return Paths{}, o.fsError(res.Concept.Name, "write lab record", err)
	}
	if err := writeFileSync(filepath.Join(staging, ContentFileName), simplified); err != nil {
		return Paths{}, o.fsError(res.Concept.Name, "write lab content", err)
	}

	if err := o.swapDir(staging, paths.ConceptDir); err != nil {
		return Paths{}, o.fsError(res.Concept.Name, "install concept dir", err)
	}
	return paths, nil
}

// swapDir replaces target with staging, restoring the old target on failure.
func (o *Organizer) swapDir(staging, target string) error {
	var backup string
	if _, err := os.Lstat(target); err == nil {
		backup = filepath.Join(filepath.Dir(target), fmt.Sprintf(".old-%s-%d", filepath.Base(target), o.now().UnixNano()))
		if err := o.rename(target, backup); err != nil {
			return fmt.Errorf("move previous output aside: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := o.rename(staging, target); err != nil {
		if backup != "" {
			if rerr := o.rename(backup, target); rerr != nil {
				o.log.Error("Failed to restore previous lab output", "dir", target, "backup", backup, "error", rerr)
			}
		}
		return err
	}
	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			o.log.Warn("Failed to remove replaced lab output", "backup", backup, "error", err)
		}
	}
	return nil
}

// WriteSummary writes the run summary atomically (temp file + rename).
func (o *Organizer) WriteSummary(s labs.BatchSummary) (string, error) {
	b, err := encode(s)
	if err != nil {
		return "", labs.NewError(labs.ErrorKindFilesystem, "write summary", err)
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return "", labs.NewError(labs.ErrorKindFilesystem, "write summary", err)
	}
	path := filepath.Join(o.dir, o.summaryFile)
	tmp, err := os.CreateTemp(o.dir, ".summary-*.json")
	if err != nil {
		return "", labs.NewError(labs.ErrorKindFilesystem, "write summary", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return "", labs.NewError(labs.ErrorKindFilesystem, "write summary", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", labs.NewError(labs.ErrorKindFilesystem, "write summary", err)
	}
	if err := tmp.Close(); err != nil {
		return "", labs.NewError(labs.ErrorKindFilesystem, "write summary", err)
	}
	if err := o.rename(tmpName, path); err != nil {
		return "", labs.NewError(labs.ErrorKindFilesystem, "write summary", err)
	}
	return path, nil
}

// ReadLab returns the lab JSON stored at path. Both the simplified file and the
// full record are accepted; for the latter the "lab" member is returned.
func ReadLab(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, labs.NewError(labs.ErrorKindFilesystem, "read lab", err)
	}
	var rec struct {
		Lab      json.RawMessage `json:"lab"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(b, &rec); err == nil && len(rec.Lab) > 0 && len(rec.Metadata) > 0 {
		return rec.Lab, nil
	}
	return b, nil
}

func (o *Organizer) fsError(concept, op string, err error) error {
	return &labs.Error{Kind: labs.ErrorKindFilesystem, Op: op, Concept: concept, Err: err}
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFileSync(path string, b []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
