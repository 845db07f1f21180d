package match

import (
	"context"

	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// DefaultDuplicateThreshold is the pairwise similarity at which two
// resources are considered duplicates of each other.
const DefaultDuplicateThreshold = 0.9

// FindDuplicateClusters groups resources whose pairwise similarity meets
// threshold, flagging redundant effort across organizations. A zero
// threshold is replaced by DefaultDuplicateThreshold.
//
// Clustering is a greedy single pass in catalog order: each not-yet-assigned
// resource seeds a cluster and pulls in every later unassigned resource
// similar enough to the seed. The result is deliberately non-transitive —
// two members may join through the seed without being similar to each
// other — and order-dependent. Only clusters with more than one member are
// returned.
func (m *Matcher) FindDuplicateClusters(ctx context.Context, resources []*resource.Resource, threshold float64) [][]*resource.Resource {
	if threshold == 0 {
		threshold = DefaultDuplicateThreshold
	}

	var clusters [][]*resource.Resource
	assigned := make(map[common.ID]struct{}, len(resources))

	for i, seed := range resources {
		if _, ok := assigned[seed.ID]; ok {
			continue
		}

		cluster := []*resource.Resource{seed}
		seedText := seed.Text()

		for _, other := range resources[i+1:] {
			if _, ok := assigned[other.ID]; ok {
				continue
			}
			if m.Similarity(ctx, seedText, other.Text()) >= threshold {
				cluster = append(cluster, other)
				assigned[other.ID] = struct{}{}
			}
		}

		if len(cluster) > 1 {
			clusters = append(clusters, cluster)
			assigned[seed.ID] = struct{}{}
		}
	}
	return clusters
}
