package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"nyaya/internal/domain"
)

// Walker finds judgment files under a corpus root using include and
// exclude glob patterns.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*.json"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

func (w *Walker) Walk(root string) ([]FileInfo, error) {
	var files []FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			relPath, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if w.shouldExclude(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			files = append(files, FileInfo{
				Path:    path,
				ModTime: info.ModTime().Unix(),
				Size:    info.Size(),
			})
		}

		return nil
	})

	return files, err
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// judgmentFile is the on-disk schema produced by the scraping pipeline.
type judgmentFile struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Court      string `json:"court"`
	CaseNumber string `json:"casenumber"`
	Date       string `json:"date"`
	Language   string `json:"language"`
	Doc        string `json:"doc"`
}

// LoadJudgment parses one judgment JSON file into a Document. The
// filename (without extension) is the document ID when the file carries
// none.
func LoadJudgment(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}

	var jf judgmentFile
	if err := json.Unmarshal(data, &jf); err != nil {
		return domain.Document{}, fmt.Errorf("parse judgment %s: %w", path, err)
	}
	if strings.TrimSpace(jf.Doc) == "" {
		return domain.Document{}, fmt.Errorf("judgment %s has no text", path)
	}

	id := jf.ID
	if id == "" {
		base := filepath.Base(path)
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}

	var date time.Time
	if jf.Date != "" {
		for _, layout := range []string{"2006-01-02", "02-01-2006", "2 January, 2006"} {
			if d, err := time.Parse(layout, jf.Date); err == nil {
				date = d
				break
			}
		}
	}

	lang := jf.Language
	if lang == "" {
		lang = "en"
	}

	return domain.Document{
		ID:       id,
		Title:    jf.Title,
		Court:    jf.Court,
		CaseNo:   jf.CaseNumber,
		Date:     date,
		Language: lang,
		Text:     jf.Doc,
	}, nil
}
