package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/spotdex/pkg/app/core"
)

// Pebble key schema. Prefix-based so balances and orders can each be
// reloaded with a single range scan at startup.

const (
	prefixBalance = "bal:" // one entry per (asset, account) ever credited
	prefixOrder   = "ord:" // one entry per order, id zero-padded for ordering
)

// balanceDBKey returns the key for a balance entry.
// Format: "bal:{asset}:{account}"
func balanceDBKey(asset core.Asset, account common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixBalance, asset.Hex(), account.Hex()))
}

// orderDBKey returns the key for an order entry.
// Format: "ord:{id}" with the id zero-padded to 20 digits so lexicographic
// iteration yields orders in creation sequence.
func orderDBKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOrder, id))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
