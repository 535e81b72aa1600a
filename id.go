package adscore

import "github.com/xraph/adscore/id"

// ID is the primary identifier type for all adscore entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
