
package blockio

import (
	"os"
	"path/filepath"

	"github.com/lanxfer/lanxfer/config"
)

// ResumeRecord describes one sidecar whose target file is still present in
// rootDir, as SPEC_FULL.md §3's supplemented "resumable-transfer discovery"
// feature.
type ResumeRecord struct {
	Hash             string // hex(hash), the sidecar's own file name
	FileName         string
	LastWrittenBlock int32
}

// ListResumable scans rootDir/METADATA_DIR and returns every sidecar whose
// recorded target file still exists directly under rootDir. It never
// mutates anything; it is a read-only helper for a reconnect flow that wants
// to offer "resume these files" without re-deriving §4.7 itself.
func ListResumable(rootDir string) ([]ResumeRecord, error) {
	metaDir := filepath.Join(rootDir, config.MetadataDirName)
	entries, err := os.ReadDir(metaDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []ResumeRecord
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sc, err := OpenSidecar(filepath.Join(metaDir, e.Name()))
		if err != nil {
			continue
		}
		ok, err := sc.Exists()
		if err != nil || !ok {
			sc.Close()
			continue
		}
		lastBlock, name, err := sc.Read()
		sc.Close()
		if err != nil || name == "" {
			continue
		}
		if _, statErr := os.Stat(filepath.Join(rootDir, name)); statErr != nil {
			continue
		}
		out = append(out, ResumeRecord{Hash: e.Name(), FileName: name, LastWrittenBlock: lastBlock})
	}
	return out, nil
}
