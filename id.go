package aquatrack

import "github.com/dee-mee/aquatrack/id"

// ID is the primary identifier type for all AquaTrack entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
