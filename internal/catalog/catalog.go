// Package catalog loads the read-only tutor list the matcher searches.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kwportal/igcse-tutor-bot/internal/label"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
	"github.com/kwportal/igcse-tutor-bot/internal/r2client"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Catalog is an immutable, ordered set of tutors.
type Catalog struct {
	tutors   []Tutor
	byKey    map[string]int
	source   string
	loadedAt time.Time
}

// Empty returns a catalog with no tutors.
func Empty() *Catalog {
	return &Catalog{byKey: map[string]int{}}
}

// New builds a catalog from already-decoded tutors, deriving canonical
// subject and board sets. Records without a name are skipped; later records
// that repeat an earlier key are dropped.
func New(tutors []Tutor, canon *label.Canonicalizer, log *logger.Logger) *Catalog {
	c := &Catalog{
		tutors:   make([]Tutor, 0, len(tutors)),
		byKey:    make(map[string]int, len(tutors)),
		loadedAt: time.Now(),
	}
	for i, t := range tutors {
		if t.Name == "" {
			if log != nil {
				log.WithField("index", i).Warn("Skipping tutor without a name")
			}
			continue
		}
		if _, dup := c.byKey[t.Key()]; dup {
			if log != nil {
				log.WithField("key", t.Key()).Warn("Skipping duplicate tutor")
			}
			continue
		}
		derive(&t, canon)
		c.byKey[t.Key()] = len(c.tutors)
		c.tutors = append(c.tutors, t)
	}
	return c
}

func derive(t *Tutor, canon *label.Canonicalizer) {
	subjects := make([]string, 0, len(t.Subjects))
	for _, s := range t.Subjects {
		if cs, ok := canon.Subject(s); ok {
			subjects = append(subjects, cs)
		}
	}
	slices.Sort(subjects)
	t.canonicalSubjects = slices.Compact(subjects)

	boards := make([]string, 0, len(t.Boards))
	for _, b := range t.Boards {
		if cb := canon.Board(b); cb != "" {
			boards = append(boards, cb)
		}
	}
	slices.Sort(boards)
	t.canonicalBoards = slices.Compact(boards)

	t.prefsBySubject = make(map[string]Prefs, len(t.SubjectPrefs))
	for raw, p := range t.SubjectPrefs {
		if cs, ok := canon.Subject(raw); ok {
			t.prefsBySubject[cs] = p
		}
	}
}

// All returns the tutors in catalog order. The slice is a copy.
func (c *Catalog) All() []Tutor {
	return slices.Clone(c.tutors)
}

// Len returns the number of tutors.
func (c *Catalog) Len() int {
	return len(c.tutors)
}

// ByID looks a tutor up by Key.
func (c *Catalog) ByID(key string) (Tutor, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Tutor{}, false
	}
	return c.tutors[i], true
}

// Source names where the catalog was loaded from.
func (c *Catalog) Source() string {
	return c.source
}

// LoadedAt returns when the catalog was built.
func (c *Catalog) LoadedAt() time.Time {
	return c.loadedAt
}

// Parse decodes a JSON array of tutors. Zstandard-compressed input is
// detected by its magic number and decompressed transparently.
func Parse(r io.Reader, canon *label.Canonicalizer, log *logger.Logger) (*Catalog, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(zstdMagic)); err == nil && bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("catalog: zstd reader: %w", err)
		}
		defer dec.Close()
		return decode(dec, canon, log)
	}
	return decode(br, canon, log)
}

func decode(r io.Reader, canon *label.Canonicalizer, log *logger.Logger) (*Catalog, error) {
	var tutors []Tutor
	if err := json.NewDecoder(r).Decode(&tutors); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(tutors, canon, log), nil
}

// Load reads the catalog from src. It never returns nil: on any failure the
// error is returned alongside an empty catalog so the bot keeps serving.
func Load(ctx context.Context, src Source, canon *label.Canonicalizer, log *logger.Logger) (*Catalog, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return Empty(), fmt.Errorf("catalog: open %s: %w", src, err)
	}
	defer rc.Close()

	c, err := Parse(rc, canon, log)
	if err != nil {
		return Empty(), fmt.Errorf("catalog: load %s: %w", src, err)
	}
	c.source = src.String()
	return c, nil
}

// Source yields the raw catalog bytes.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// FileSource reads a local JSON or .json.zst file.
type FileSource struct {
	Path string
}

// Open implements Source.
func (f FileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(f.Path)
}

func (f FileSource) String() string {
	return "file:" + f.Path
}

// ObjectGetter is the subset of the R2 client used for catalog downloads.
type ObjectGetter interface {
	Get(ctx context.Context, key string) (*r2client.Object, error)
}

// ObjectSource reads the catalog from an object store key.
type ObjectSource struct {
	Client ObjectGetter
	Key    string
}

// Open implements Source.
func (o ObjectSource) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := o.Client.Get(ctx, o.Key)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (o ObjectSource) String() string {
	return "r2:" + o.Key
}
