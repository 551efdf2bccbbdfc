package conn

import (
	"io"

	"github.com/cloudvault/enginecore/util"
)

// APIClient exposes the opaque remote calls spec.md §6 names as the
// API_CLIENT collaborator's surface, plus raw content-host range reads.
// KEY_VAULT and PAGE_CACHE depend on this interface, not on Controller
// directly, so tests can substitute testsupport's in-memory fake.
type APIClient interface {
	CryptoSetUserKeys(c util.Context, privateKey, publicKey, hint []byte) error
	CryptoGetUserKeys(c util.Context) (privateKey, publicKey []byte, err error)
	CryptoGetUserHint(c util.Context) (hint []byte, err error)
	CryptoGetFolderKey(c util.Context, folderID int64) (key []byte, err error)
	CryptoGetFileKey(c util.Context, fileID int64) (key []byte, err error)
	CryptoReset(c util.Context) error

	CreateFolder(c util.Context, parentFolderID int64, name string, encrypted bool, key []byte) (folderID int64, err error)
	GetFileLink(c util.Context, fileID int64, hash string) (hosts []string, path string, expires int64, err error)
	ReadFile(c util.Context, url string, offset, count int64) (io.ReadCloser, error)
}

var _ APIClient = &httpAPIClient{}

// httpAPIClient is the Controller-backed APIClient implementation.
type httpAPIClient struct {
	ctl *Controller
}

func NewAPIClient(ctl *Controller) APIClient {
	return &httpAPIClient{ctl: ctl}
}

type setUserKeysReq struct {
	PrivateKey []byte `json:"privatekey"`
	PublicKey  []byte `json:"publickey"`
	Hint       []byte `json:"hint"`
}

func (h *httpAPIClient) CryptoSetUserKeys(c util.Context, privateKey, publicKey, hint []byte) error {
	return h.ctl.doJSON(c, "POST", "/crypto_setuserkeys", &setUserKeysReq{privateKey, publicKey, hint}, nil)
}

type getUserKeysResp struct {
	PrivateKey []byte `json:"privatekey"`
	PublicKey  []byte `json:"publickey"`
}

func (h *httpAPIClient) CryptoGetUserKeys(c util.Context) (privateKey, publicKey []byte, err error) {
	var resp getUserKeysResp
	err = h.ctl.doJSON(c, "GET", "/crypto_getuserkeys", nil, &resp)
	return resp.PrivateKey, resp.PublicKey, err
}

type getUserHintResp struct {
	Hint []byte `json:"hint"`
}

func (h *httpAPIClient) CryptoGetUserHint(c util.Context) (hint []byte, err error) {
	var resp getUserHintResp
	err = h.ctl.doJSON(c, "GET", "/crypto_getuserhint", nil, &resp)
	return resp.Hint, err
}

type folderKeyReq struct {
	FolderID int64 `json:"folderid"`
}

type keyResp struct {
	Key []byte `json:"key"`
}

func (h *httpAPIClient) CryptoGetFolderKey(c util.Context, folderID int64) (key []byte, err error) {
	var resp keyResp
	err = h.ctl.doJSON(c, "POST", "/crypto_getfolderkey", &folderKeyReq{folderID}, &resp)
	return resp.Key, err
}

type fileKeyReq struct {
	FileID int64 `json:"fileid"`
}

func (h *httpAPIClient) CryptoGetFileKey(c util.Context, fileID int64) (key []byte, err error) {
	var resp keyResp
	err = h.ctl.doJSON(c, "POST", "/crypto_getfilekey", &fileKeyReq{fileID}, &resp)
	return resp.Key, err
}

func (h *httpAPIClient) CryptoReset(c util.Context) error {
	return h.ctl.doJSON(c, "POST", "/crypto_reset", nil, nil)
}

type createFolderReq struct {
	ParentFolderID int64  `json:"folderid"`
	Name           string `json:"name"`
	Encrypted      bool   `json:"encrypted,omitempty"`
	Key            []byte `json:"key,omitempty"`
}

type createFolderResp struct {
	FolderID int64 `json:"folderid"`
}

func (h *httpAPIClient) CreateFolder(c util.Context, parentFolderID int64, name string, encrypted bool, key []byte) (folderID int64, err error) {
	var resp createFolderResp
	err = h.ctl.doJSON(c, "POST", "/createfolder", &createFolderReq{parentFolderID, name, encrypted, key}, &resp)
	return resp.FolderID, err
}

type getFileLinkReq struct {
	FileID int64  `json:"fileid"`
	Hash   string `json:"hash"`
}

type getFileLinkResp struct {
	Hosts   []string `json:"hosts"`
	Path    string   `json:"path"`
	Expires int64    `json:"expires"`
}

func (h *httpAPIClient) GetFileLink(c util.Context, fileID int64, hash string) (hosts []string, path string, expires int64, err error) {
	var resp getFileLinkResp
	err = h.ctl.doJSON(c, "POST", "/getfilelink", &getFileLinkReq{fileID, hash}, &resp)
	return resp.Hosts, resp.Path, resp.Expires, err
}

// ReadFile streams [offset, offset+count) of a content-host URL built from
// a prior GetFileLink (spec.md §4.3.4). It is a thin alias over
// Controller.StreamRange so PAGE_CACHE's network fetch path only depends
// on the APIClient interface.
func (h *httpAPIClient) ReadFile(c util.Context, url string, offset, count int64) (io.ReadCloser, error) {
	return h.ctl.StreamRange(c, url, offset, count)
}
