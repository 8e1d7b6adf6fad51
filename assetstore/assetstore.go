// Package assetstore implements the AssetStore (§4.2): named references to
// blobs, carrying mime-type and privacy metadata. Many assets may share one
// blob_hash (deduplication happens at the blob layer; this layer only names
// references to it).
package assetstore

import (
	"context"

	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// Store is the contract consumed by message-content materialization
// (turnstore) and by the document/asset reference resolvers.
type Store interface {
	Create(ctx context.Context, a schema.Asset) (schema.Asset, error)
	Get(ctx context.Context, id ids.AssetID) (schema.Asset, error)
	Exists(ctx context.Context, id ids.AssetID) (bool, error)
	Delete(ctx context.Context, id ids.AssetID) error // does not delete the blob
}
