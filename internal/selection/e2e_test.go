package selection_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-nft-picker/internal/metadata"
	"solana-nft-picker/internal/persist"
	"solana-nft-picker/internal/pipeline"
	"solana-nft-picker/internal/selection"
	"solana-nft-picker/internal/solana/stub"
	"solana-nft-picker/internal/storage"
	"solana-nft-picker/internal/storage/memory"
)

func key(b byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = b
	}
	return base58.Encode(raw)
}

// Wallet with one NFT and one fungible balance: only the NFT is shown, and
// persisting it appends exactly one document.
func TestEndToEnd_ConnectSelectPersist(t *testing.T) {
	owner := key(1)
	nftMint := key(2)
	coinMint := key(3)

	metadataHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/nft.json":
			w.Write([]byte(`{"name":"Ape #1","image":"https://img/1.png","attributes":[{"trait_type":"Fur","value":"Gold"}]}`))
		case "/coin.json":
			w.Write([]byte(`{"name":"Coin","image":"https://img/c.png","attributes":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer metadataHost.Close()

	rpc := stub.NewRPCClient()
	rpc.AddProgramAccounts(owner,
		stub.TokenAccount(key(10), owner, nftMint, "1", 0),
		stub.TokenAccount(key(11), owner, coinMint, "5", 0),
	)
	require.NoError(t, rpc.AddNftMetadata(nftMint, "Ape #1", metadataHost.URL+"/nft.json"))
	require.NoError(t, rpc.AddNftMetadata(coinMint, "Coin", metadataHost.URL+"/coin.json"))

	docs := memory.NewSelectionStore()
	lazy := storage.NewLazy(func(context.Context) (storage.SelectionStore, error) { return docs, nil })
	endpoint := httptest.NewServer(persist.NewHandler(lazy))
	defer endpoint.Close()

	store := selection.NewStore(
		pipeline.New(rpc, nil, metadata.WithHTTPClient(metadataHost.Client())),
		selection.NewHTTPPersister(endpoint.URL, endpoint.Client()),
	)

	ctx := context.Background()
	require.NoError(t, store.Connect(ctx, owner))

	snap := store.Snapshot()
	require.Len(t, snap.Nfts, 1)
	record := snap.Nfts[0]
	assert.Equal(t, nftMint, record.Mint)
	assert.Equal(t, "Ape #1", record.Name)

	_, err := store.Toggle(nftMint)
	require.NoError(t, err)
	require.NoError(t, store.Persist(ctx))

	saved, err := docs.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, owner, saved[0].Owner)
	assert.Equal(t, snap.Nfts, saved[0].Nfts)

	require.NotNil(t, store.Snapshot().Notice)
	assert.Equal(t, selection.NoticeSuccess, store.Snapshot().Notice.Kind)
}
