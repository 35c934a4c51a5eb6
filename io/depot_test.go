package io

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

// memFS is a CreateFS held in memory.
type memFS struct {
	files map[string]*bytes.Buffer
}

type memFile struct {
	*bytes.Buffer
}

func (mf memFile) Close() error { return nil }

func (mfs *memFS) Sub(name string) (sub CreateFS, err error) {
	err = fs.ErrNotExist
	return
}

func (mfs *memFS) Create(name string) (file io.WriteCloser, err error) {
	if mfs.files == nil {
		mfs.files = make(map[string]*bytes.Buffer)
	}
	buf := &bytes.Buffer{}
	mfs.files[name] = buf
	file = memFile{buf}
	return
}

func (mfs *memFS) Mkdir(name string, filemode fs.FileMode) (err error) {
	return
}

func TestDepot_Unmarshal(t *testing.T) {
	assert := assert.New(t)

	filesys := fstest.MapFS{
		"00000000.bin":     {Data: []byte{0x00, 0x00, 0x80, 0x00}},
		"0000F000.BIN":     {Data: []byte{0x4e, 0x71}},
		"readme.txt":       {Data: []byte("ignored")},
		"1234.bin":         {Data: []byte{1}},
		"sub/00001000.bin": {Data: []byte{2}},
	}

	depot := &Depot{}
	assert.NoError(depot.Unmarshal(filesys))

	assert.Equal([]uint32{0x0000, 0xf000}, depot.Addresses())
	assert.Equal([]byte{0x4e, 0x71}, depot.Segments[0xf000])
}

func TestDepot_Marshal(t *testing.T) {
	assert := assert.New(t)

	depot := &Depot{}
	depot.Add(0x10000, []byte{1, 2})
	depot.Add(0x0, []byte{3})

	mfs := &memFS{}
	assert.NoError(depot.Marshal(mfs))

	assert.Len(mfs.files, 2)
	assert.Equal([]byte{1, 2}, mfs.files["00010000.bin"].Bytes())
	assert.Equal([]byte{3}, mfs.files["00000000.bin"].Bytes())
}

func TestDepot_LoadSave(t *testing.T) {
	assert := assert.New(t)

	bus, ram, rom := newTestBus(t)

	depot := &Depot{}
	depot.Add(0x0004, []byte{0xaa, 0xbb})
	depot.Add(0xf000, []byte{0x4e, 0x71})
	assert.NoError(depot.Load(bus))

	assert.Equal([]byte{0xaa, 0xbb}, ram.Data[4:6])
	assert.Equal([]byte{0x4e, 0x71}, rom.Data[0:2])

	ram.Data[5] = 0xcc
	assert.NoError(depot.Save(bus))
	assert.Equal([]byte{0xaa, 0xcc}, depot.Segments[0x0004])

	depot.Add(0x3000, []byte{1})
	var serr *ErrSegment
	err := depot.Load(bus)
	if assert.ErrorAs(err, &serr) {
		assert.Equal("00003000", serr.Name)
	}
}

func TestDepot_DirFS(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	depot := &Depot{}
	depot.Add(0x2000, []byte{7, 8, 9})
	assert.NoError(depot.Marshal(DirFS(dir)))

	_, err := DirFS(dir).Sub("missing")
	assert.ErrorIs(err, fs.ErrNotExist)
	assert.NoError(DirFS(dir).Mkdir("sub", 0o755))
	_, err = DirFS(dir).Sub("sub")
	assert.NoError(err)

	loaded := &Depot{}
	assert.NoError(loaded.Unmarshal(os.DirFS(dir)))
	assert.Equal(depot.Segments, loaded.Segments)
}
