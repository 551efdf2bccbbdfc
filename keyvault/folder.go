package keyvault

import (
	"github.com/cloudvault/enginecore/cryptoprims"
	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/util"
)

// CreateEncryptedFolder implements spec.md §4.2.4: generate a fresh
// SymKey, wrap it under the user's public key, encode name with the
// parent folder's encoder, and ask the API to create the folder. On
// success it persists the new folder's (folderid → encSym) binding in its
// own transaction and returns the new folder id. It inserts no folder
// metadata; that stays with the caller, in a separate transaction.
func (v *Vault) CreateEncryptedFolder(c util.Context, parentFolderID int64, name string) (folderID int64, err error) {
	pub, _, err := v.requireStarted()
	if err != nil {
		return 0, err
	}

	symKey, err := NewSymKey(true)
	if err != nil {
		return 0, err
	}
	defer symKey.Wipe()

	encSym, err := cryptoprims.EncryptOAEP(pub, symKey.Marshal())
	if err != nil {
		return 0, err
	}

	encodedName, err := v.encodeChildName(c, parentFolderID, name)
	if err != nil {
		return 0, err
	}

	folderID, err = v.api.CreateFolder(c, parentFolderID, encodedName, true, encSym)
	if err != nil {
		return 0, err
	}

	if err := v.persistFolderEncSym(c, folderID, encSym); err != nil {
		return 0, err
	}
	return folderID, nil
}

// encodeChildName encodes name for placement under parentFolderID: when
// the parent is the (unencrypted) root, the plain name is used unchanged;
// otherwise it is translated through the parent's encoder (spec.md
// §4.2.4: "Name encoding for an encrypted parent").
func (v *Vault) encodeChildName(c util.Context, parentFolderID int64, name string) (string, error) {
	if parentFolderID == 0 {
		return name, nil
	}
	codec, release, err := v.GetFolderEncoder(c, parentFolderID)
	if err != nil {
		return "", err
	}
	defer release()
	return codec.EncodeName(name)
}

// DecodeChildName reverses encodeChildName for directory listing display.
func (v *Vault) DecodeChildName(c util.Context, parentFolderID int64, encoded string) (string, error) {
	if parentFolderID == 0 {
		return encoded, nil
	}
	codec, release, err := v.GetFolderDecoder(c, parentFolderID)
	if err != nil {
		return "", err
	}
	defer release()
	name, err := codec.DecodeName(encoded)
	if err != nil {
		return "", errs.ErrUnknownKeyFormat.Wrap(err)
	}
	return name, nil
}
