package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwportal/igcse-tutor-bot/internal/label"
	"github.com/kwportal/igcse-tutor-bot/internal/r2client"
)

const sample = `[
  {"id": "t1", "name": "Ms. Sara", "subjects": ["Mathematics (0580)", "Physics"], "grades": [9, 10, "11"],
   "boards": ["CIE", "Pearson Edexcel"], "qualifications": "BSc Maths, PGCE",
   "contact": {"phone": "+965 5000-1001"}, "modes": ["1:1", "Group", "online"],
   "weekly_lessons_supported": [1, 2],
   "subject_prefs": {"physics": {"modes": ["group"], "weekly_lessons_supported": [2]}}},
  {"name": "Mr. Omar", "subjects": ["Chemistry", "Underwater Basket Weaving"], "grades": [11, 12],
   "boards": ["IB"], "qualifications": ["MSc Chemistry"], "contact": {"whatsapp": "https://wa.me/96550001002"}},
  {"id": "t1", "name": "Duplicate Sara", "subjects": ["Biology"]},
  {"subjects": ["Biology"]}
]`

func parseSample(t *testing.T) *Catalog {
	t.Helper()
	c, err := Parse(strings.NewReader(sample), label.New(nil), nil)
	require.NoError(t, err)
	return c
}

func TestParse(t *testing.T) {
	t.Parallel()

	c := parseSample(t)
	require.Equal(t, 2, c.Len())

	all := c.All()
	assert.Equal(t, "t1", all[0].Key())
	assert.Equal(t, "Mr. Omar", all[1].Key(), "name is the key when id is empty")

	sara := all[0]
	assert.Equal(t, []int{9, 10, 11}, sara.Grades)
	assert.Equal(t, []string{"BSc Maths", "PGCE"}, sara.Qualifications)
	assert.Equal(t, []string{"Math", "Physics"}, sara.CanonicalSubjects())
	assert.Equal(t, []string{label.BoardCambridge, label.BoardEdexcel}, sara.CanonicalBoards())
	assert.Equal(t, []string{ModeOneToOne, ModeGroup}, sara.Modes)
	assert.Equal(t, "+965 5000-1001", sara.Contact.Number())

	omar := all[1]
	assert.Equal(t, []string{"Chemistry"}, omar.CanonicalSubjects(), "unrecognized labels are dropped")
	assert.Equal(t, []string{"ib"}, omar.CanonicalBoards(), "unknown boards pass through")
}

func TestTutor_Predicates(t *testing.T) {
	t.Parallel()

	sara, ok := parseSample(t).ByID("t1")
	require.True(t, ok)

	assert.True(t, sara.TeachesSubject("Math"))
	assert.False(t, sara.TeachesSubject("Chemistry"))
	assert.True(t, sara.CoversBoard(label.BoardEdexcel))
	assert.False(t, sara.CoversBoard(label.BoardOxfordAQA))
	assert.True(t, sara.TeachesGrade(11))
	assert.False(t, sara.TeachesGrade(12))

	lo, hi, ok := sara.GradeRange()
	assert.True(t, ok)
	assert.Equal(t, 9, lo)
	assert.Equal(t, 11, hi)

	physics := sara.PrefsFor("Physics")
	assert.True(t, physics.SupportsMode(ModeGroup))
	assert.False(t, physics.SupportsMode(ModeOneToOne))
	assert.False(t, physics.SupportsWeekly(1))

	math := sara.PrefsFor("Math")
	assert.True(t, math.SupportsMode(ModeOneToOne), "falls back to tutor-level prefs")
	assert.True(t, math.SupportsWeekly(1))

	_, ok = parseSample(t).ByID("nope")
	assert.False(t, ok)
}

func TestAll_ReturnsCopy(t *testing.T) {
	t.Parallel()

	c := parseSample(t)
	all := c.All()
	all[0].Name = "changed"
	assert.Equal(t, "Ms. Sara", c.All()[0].Name)
}

func TestParse_Zstd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	c, err := Parse(&buf, label.New(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader(`{"name": "not an array"}`), label.New(nil), nil)
	assert.Error(t, err)

	_, err = Parse(strings.NewReader(`[{"name": "x", "grades": ["eleven"]}]`), label.New(nil), nil)
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "teachers.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := Load(context.Background(), FileSource{Path: path}, label.New(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "file:"+path, c.Source())
	assert.False(t, c.LoadedAt().IsZero())
}

func TestLoad_FailureYieldsEmptyCatalog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte(`[{"name":`), 0o600))

	for _, src := range []Source{
		FileSource{Path: filepath.Join(dir, "missing.json")},
		FileSource{Path: corrupt},
		ObjectSource{Client: fakeObjects{err: errors.New("boom")}, Key: "teachers.json"},
	} {
		c, err := Load(context.Background(), src, label.New(nil), nil)
		assert.Error(t, err, src.String())
		require.NotNil(t, c)
		assert.Zero(t, c.Len())
		assert.Empty(t, c.All())
	}
}

func TestLoad_Object(t *testing.T) {
	t.Parallel()

	src := ObjectSource{Client: fakeObjects{body: sample}, Key: "catalog/teachers.json"}
	c, err := Load(context.Background(), src, label.New(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "r2:catalog/teachers.json", c.Source())
}

func TestRepositoryCatalog(t *testing.T) {
	t.Parallel()

	c, err := Load(context.Background(), FileSource{Path: "../../teachers.json"}, label.New(nil), nil)
	require.NoError(t, err)
	assert.Positive(t, c.Len())
	for _, tutor := range c.All() {
		assert.NotEmpty(t, tutor.CanonicalSubjects(), tutor.Name)
		assert.NotEmpty(t, tutor.Contact.Number(), tutor.Name)
	}
}

type fakeObjects struct {
	body string
	err  error
}

func (f fakeObjects) Get(_ context.Context, key string) (*r2client.Object, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &r2client.Object{ReadCloser: io.NopCloser(strings.NewReader(f.body)), Key: key, ETag: "etag", Size: int64(len(f.body))}, nil
}
