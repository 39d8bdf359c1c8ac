package job

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"consignment-api/internal/model"
)

func makeClients(n int) []model.Client {
	clients := make([]model.Client, n)
	for i := range clients {
		clients[i] = model.Client{ID: int64(i + 1), CPF: fmt.Sprintf("%011d", i+1)}
	}
	return clients
}

func TestSplitAcrossTokensRoundRobin(t *testing.T) {
	clients := makeClients(5)

	batches := splitAcrossTokens(clients, 3, 2)
	require.Len(t, batches, 3)
	require.Len(t, batches[0], 2)
	require.Len(t, batches[1], 2)
	require.Len(t, batches[2], 1)

	// i mod 3 assignment, source order preserved inside each batch
	require.Equal(t, int64(1), batches[0][0].ID)
	require.Equal(t, int64(4), batches[0][1].ID)
	require.Equal(t, int64(2), batches[1][0].ID)
	require.Equal(t, int64(5), batches[1][1].ID)
	require.Equal(t, int64(3), batches[2][0].ID)
}

func TestSplitAcrossTokensCapsTotal(t *testing.T) {
	clients := makeClients(10)

	batches := splitAcrossTokens(clients, 2, 3)
	total := 0
	for _, b := range batches {
		total += len(b)
		require.LessOrEqual(t, len(b), 3)
	}
	require.Equal(t, 6, total)
}

func TestSplitAcrossTokensAssignsEachClientOnce(t *testing.T) {
	for _, tc := range []struct {
		n, tokens, cap int
	}{
		{0, 3, 2}, {1, 1, 1}, {7, 3, 5}, {20, 4, 3}, {5, 5, 250},
	} {
		batches := splitAcrossTokens(makeClients(tc.n), tc.tokens, tc.cap)

		seen := map[int64]int{}
		total := 0
		for _, b := range batches {
			for _, c := range b {
				seen[c.ID]++
				total++
			}
		}
		require.Equal(t, min(tc.n, tc.tokens*tc.cap), total, "case %+v", tc)
		for id, count := range seen {
			require.Equal(t, 1, count, "client %d assigned more than once in %+v", id, tc)
		}
	}
}

func TestSplitAcrossTokensDegenerate(t *testing.T) {
	require.Empty(t, splitAcrossTokens(makeClients(3), 0, 5))

	batches := splitAcrossTokens(makeClients(3), 2, 0)
	require.Len(t, batches, 2)
	require.Empty(t, batches[0])
	require.Empty(t, batches[1])
}
