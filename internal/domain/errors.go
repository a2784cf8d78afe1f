package domain

import "errors"

var (
	// ErrIdentityUnavailable means the local identity could not be
	// loaded or created. No chat operation can proceed until resolved.
	ErrIdentityUnavailable = errors.New("device identity unavailable")

	// ErrMissingRoomKey is an expected state, not a fault: this device
	// holds no usable key for the conversation. Recover by importing a
	// backup or asking an owner/admin to re-share the key.
	ErrMissingRoomKey = errors.New("no room key for conversation")

	// ErrDecodeFailed marks a single undecryptable message. It does not
	// block the rest of the conversation.
	ErrDecodeFailed = errors.New("message decode failed")

	// ErrForbidden rejects a mutation the caller's role does not permit.
	ErrForbidden = errors.New("role does not permit this action")

	// ErrBackupInvalid covers a wrong passphrase or a corrupted backup
	// blob. Import never partially installs an identity.
	ErrBackupInvalid = errors.New("wrong passphrase or corrupted backup")

	// ErrNotFound is returned by stores for absent records.
	ErrNotFound = errors.New("not found")
)
