// internal/job/distribute.go
package job

import "consignment-api/internal/model"

// splitAcrossTokens partitions clients round-robin across totalTokens
// sub-batches, at most maxPerToken each. Client i goes to batch i mod
// totalTokens, so source order is preserved inside every batch. Clients
// beyond the combined capacity are left for the next cycle.
func splitAcrossTokens(clients []model.Client, totalTokens, maxPerToken int) [][]model.Client {
	if totalTokens < 0 {
		totalTokens = 0
	}
	batches := make([][]model.Client, totalTokens)

	if totalTokens == 0 || maxPerToken <= 0 {
		return batches
	}

	capacity := totalTokens * maxPerToken
	if len(clients) > capacity {
		clients = clients[:capacity]
	}

	for i, client := range clients {
		idx := i % totalTokens
		batches[idx] = append(batches[idx], client)
	}
	return batches
}
