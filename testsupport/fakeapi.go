// Package testsupport holds in-memory fakes of KEY_VAULT's and
// PAGE_CACHE's external collaborators (the remote API and the staging
// file reader), for use by package tests that want to exercise code
// above a single pure-function unit without standing up a real server.
package testsupport

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/util"
)

// FakeAPIClient is an in-memory stand-in for conn.APIClient, keeping
// per-call state in plain maps guarded by a mutex rather than recreating
// Controller's retry/rate-limit machinery.
type FakeAPIClient struct {
	mu sync.Mutex

	PrivateKey, PublicKey, Hint []byte
	HasKeys                     bool

	FolderKeys map[int64][]byte
	FileKeys   map[int64][]byte

	Files map[string][]byte // content addressed by "fileID:hash"

	NextFolderID int64

	// FailNextReadFile, if set, is returned once by ReadFile and then
	// cleared, letting tests exercise fetchRange's retry path.
	FailNextReadFile error
}

func NewFakeAPIClient() *FakeAPIClient {
	return &FakeAPIClient{
		FolderKeys:   make(map[int64][]byte),
		FileKeys:     make(map[int64][]byte),
		Files:        make(map[string][]byte),
		NextFolderID: 1,
	}
}

func (f *FakeAPIClient) CryptoSetUserKeys(c util.Context, privateKey, publicKey, hint []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PrivateKey, f.PublicKey, f.Hint = privateKey, publicKey, hint
	f.HasKeys = true
	return nil
}

func (f *FakeAPIClient) CryptoGetUserKeys(c util.Context) (privateKey, publicKey []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.HasKeys {
		return nil, nil, errs.ErrRemoteNotFound
	}
	return f.PrivateKey, f.PublicKey, nil
}

func (f *FakeAPIClient) CryptoGetUserHint(c util.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.HasKeys {
		return nil, errs.ErrRemoteNotFound
	}
	return f.Hint, nil
}

func (f *FakeAPIClient) CryptoGetFolderKey(c util.Context, folderID int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.FolderKeys[folderID]
	if !ok {
		return nil, errs.ErrRemoteNotFound
	}
	return key, nil
}

func (f *FakeAPIClient) CryptoGetFileKey(c util.Context, fileID int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.FileKeys[fileID]
	if !ok {
		return nil, errs.ErrRemoteNotFound
	}
	return key, nil
}

func (f *FakeAPIClient) CryptoReset(c util.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PrivateKey, f.PublicKey, f.Hint = nil, nil, nil
	f.HasKeys = false
	f.FolderKeys = make(map[int64][]byte)
	f.FileKeys = make(map[int64][]byte)
	return nil
}

func (f *FakeAPIClient) CreateFolder(c util.Context, parentFolderID int64, name string, encrypted bool, key []byte) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.NextFolderID
	f.NextFolderID++
	if encrypted {
		f.FolderKeys[id] = key
	}
	return id, nil
}

func (f *FakeAPIClient) GetFileLink(c util.Context, fileID int64, hash string) (hosts []string, path string, expires int64, err error) {
	return []string{"https://fake.example"}, "/" + hash, 0, nil
}

// PutFile registers content the fake will serve back through ReadFile.
func (f *FakeAPIClient) PutFile(fileID int64, hash string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files[fileID2Key(fileID, hash)] = content
}

func (f *FakeAPIClient) ReadFile(c util.Context, url string, offset, count int64) (io.ReadCloser, error) {
	f.mu.Lock()
	if f.FailNextReadFile != nil {
		err := f.FailNextReadFile
		f.FailNextReadFile = nil
		f.mu.Unlock()
		return nil, err
	}
	var content []byte
	for _, v := range f.Files {
		content = v
	}
	f.mu.Unlock()

	if offset >= int64(len(content)) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	end := offset + count
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return io.NopCloser(bytes.NewReader(content[offset:end])), nil
}

func fileID2Key(fileID int64, hash string) string {
	return fmt.Sprintf("%d:%s", fileID, hash)
}

// FakeStagingReader is an in-memory stand-in for collab.StagingReader.
type FakeStagingReader struct {
	mu     sync.Mutex
	staged map[string][]byte
}

func NewFakeStagingReader() *FakeStagingReader {
	return &FakeStagingReader{staged: make(map[string][]byte)}
}

func (r *FakeStagingReader) Stage(fileID int64, hash string, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staged[fileID2Key(fileID, hash)] = content
}

func (r *FakeStagingReader) OpenStaged(c util.Context, fileID int64, hash string) (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	content, ok := r.staged[fileID2Key(fileID, hash)]
	if !ok {
		return nil, errs.ErrRemoteNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}
