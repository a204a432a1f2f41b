package settings

import "errors"

// ErrEmptyKey indicates that a group or setting was declared without a key.
var ErrEmptyKey = errors.New("key must not be empty")

// ErrUnknownSetting indicates that a path id does not address any setting in the tree.
var ErrUnknownSetting = errors.New("unknown setting")
