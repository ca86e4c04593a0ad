package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store keeps uploaded artifacts and icons on the local filesystem under
// a per-channel, per-version directory. Durable object storage is an
// external concern; everything here is addressed by relative path so the
// root can move.
//
// Writes are two-phase: Stage copies into a private staging area and
// Promote renames into the final location. Concurrent ingestions racing
// for the same version number therefore never touch each other's files;
// only the attempt that commits promotes.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if root == "" {
		root = "uploads"
	}
	if err := os.MkdirAll(filepath.Join(root, ".staging"), 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string { return s.root }

// Stage copies src into the staging area, hashing while copying. Returns
// the staged absolute path, the byte count and the hex sha256.
func (s *Store) Stage(src io.Reader) (string, int64, string, error) {
	staged := filepath.Join(s.root, ".staging", uuid.New().String())
	dst, err := os.Create(staged)
	if err != nil {
		return "", 0, "", err
	}
	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(dst, hasher), src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(staged)
		return "", 0, "", err
	}
	return staged, n, hex.EncodeToString(hasher.Sum(nil)), nil
}

// StageFile stages an existing file (an icon picked out of an extracted
// package, typically).
func (s *Store) StageFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()
	staged, _, _, err := s.Stage(src)
	return staged, err
}

// ArtifactPath is the store-relative location an artifact gets on
// promotion.
func (s *Store) ArtifactPath(channelSlug string, version int, origName string) string {
	return filepath.ToSlash(filepath.Join(
		safeSegment(channelSlug),
		fmt.Sprintf("%d", version),
		safeSegment(filepath.Base(origName)),
	))
}

// IconPath is the store-relative location an icon gets on promotion.
func (s *Store) IconPath(channelSlug string, version int, origIcon string) string {
	return filepath.ToSlash(filepath.Join(
		safeSegment(channelSlug),
		fmt.Sprintf("%d", version),
		"icon"+strings.ToLower(filepath.Ext(origIcon)),
	))
}

// Promote moves a staged file into its final location.
func (s *Store) Promote(staged, rel string) error {
	dst := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(staged, dst)
}

// Discard drops a staged file that will not be promoted. Missing files
// are fine; rollback paths call this unconditionally.
func (s *Store) Discard(staged string) error {
	if staged == "" {
		return nil
	}
	err := os.Remove(staged)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// RemoveVersionDir deletes the whole per-version directory of a release.
func (s *Store) RemoveVersionDir(channelSlug string, version int) error {
	return os.RemoveAll(filepath.Join(s.root, safeSegment(channelSlug), fmt.Sprintf("%d", version)))
}

func (s *Store) Open(rel string) (*os.File, error) {
	return os.Open(filepath.Join(s.root, filepath.FromSlash(rel)))
}

// safeSegment keeps path segments to lowercase ascii, digits, dot,
// underscore and dash so uploads cannot escape the store root.
func safeSegment(seg string) string {
	seg = strings.ToLower(seg)
	b := make([]rune, 0, len(seg))
	for _, r := range seg {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b = append(b, r)
		} else {
			b = append(b, '-')
		}
	}
	out := strings.Trim(string(b), ".")
	if out == "" {
		out = "file"
	}
	return out
}
