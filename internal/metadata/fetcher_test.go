package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-nft-picker/internal/solana"
	"solana-nft-picker/internal/solana/stub"
)

func mintKey(i int) string {
	raw := make([]byte, 32)
	raw[0] = byte(i)
	raw[1] = byte(i >> 8)
	raw[31] = 0xAB
	return base58.Encode(raw)
}

// documentServer serves a fixed body per path and counts concurrent requests.
type documentServer struct {
	*httptest.Server
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newDocumentServer(t *testing.T, delay time.Duration, docs map[string]string) *documentServer {
	t.Helper()
	ds := &documentServer{}
	ds.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := ds.inFlight.Add(1)
		defer ds.inFlight.Add(-1)
		for {
			seen := ds.maxSeen.Load()
			if n <= seen || ds.maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		body, ok := docs[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ds.Close)
	return ds
}

func validDoc(name string) string {
	return fmt.Sprintf(`{"name":%q,"image":"https://img/%s.png","attributes":[{"trait_type":"Rank","value":"1"}]}`, name, name)
}

func TestFetcher_ResolveNfts_OrderAndSkips(t *testing.T) {
	server := newDocumentServer(t, 0, map[string]string{
		"/a.json":   validDoc("A"),
		"/bad.json": `{"name":"no image","attributes":[]}`,
		"/c.json":   validDoc("C"),
		"/html":     `<html></html>`,
	})

	rpc := stub.NewRPCClient()
	mints := []string{mintKey(1), mintKey(2), mintKey(3), mintKey(4), mintKey(5), mintKey(6), mintKey(7)}
	require.NoError(t, rpc.AddNftMetadata(mints[0], "A", server.URL+"/a.json"))
	require.NoError(t, rpc.AddNftMetadata(mints[1], "Bad", server.URL+"/bad.json"))
	// mints[2] has no metadata account
	require.NoError(t, rpc.AddNftMetadata(mints[3], "Missing", server.URL+"/missing.json"))
	require.NoError(t, rpc.AddNftMetadata(mints[4], "C", server.URL+"/c.json"))
	require.NoError(t, rpc.AddNftMetadata(mints[5], "Empty", ""))
	require.NoError(t, rpc.AddNftMetadata(mints[6], "Html", server.URL+"/html"))

	fetcher := NewFetcher(rpc, WithHTTPClient(server.Client()), WithWorkers(3))
	nfts, err := fetcher.ResolveNfts(context.Background(), mints)
	require.NoError(t, err)

	require.Len(t, nfts, 2)
	assert.Equal(t, mints[0], nfts[0].Mint)
	assert.Equal(t, "A", nfts[0].Name)
	assert.Equal(t, "https://img/A.png", nfts[0].Image)
	assert.Equal(t, "Rank", nfts[0].Attributes[0].TraitType)
	assert.Equal(t, mints[4], nfts[1].Mint)
	assert.Equal(t, "C", nfts[1].Name)

	assert.Equal(t, 1, rpc.MultipleAccountsCalls)
}

func TestFetcher_ResolveNfts_SequentialWithOneWorker(t *testing.T) {
	docs := map[string]string{}
	rpc := stub.NewRPCClient()
	var mints []string
	server := newDocumentServer(t, 20*time.Millisecond, docs)
	for i := 0; i < 4; i++ {
		m := mintKey(i + 10)
		mints = append(mints, m)
		path := fmt.Sprintf("/%d.json", i)
		docs[path] = validDoc(fmt.Sprintf("N%d", i))
		require.NoError(t, rpc.AddNftMetadata(m, "N", server.URL+path))
	}

	fetcher := NewFetcher(rpc, WithHTTPClient(server.Client()), WithWorkers(1))
	nfts, err := fetcher.ResolveNfts(context.Background(), mints)
	require.NoError(t, err)
	require.Len(t, nfts, 4)
	for i, nft := range nfts {
		assert.Equal(t, fmt.Sprintf("N%d", i), nft.Name)
	}
	assert.Equal(t, int32(1), server.maxSeen.Load())
}

func TestFetcher_ResolveNfts_BoundedConcurrency(t *testing.T) {
	docs := map[string]string{}
	rpc := stub.NewRPCClient()
	var mints []string
	server := newDocumentServer(t, 30*time.Millisecond, docs)
	for i := 0; i < 12; i++ {
		m := mintKey(i + 100)
		mints = append(mints, m)
		path := fmt.Sprintf("/%d.json", i)
		docs[path] = validDoc(fmt.Sprintf("N%d", i))
		require.NoError(t, rpc.AddNftMetadata(m, "N", server.URL+path))
	}

	fetcher := NewFetcher(rpc, WithHTTPClient(server.Client()), WithWorkers(4))
	nfts, err := fetcher.ResolveNfts(context.Background(), mints)
	require.NoError(t, err)
	require.Len(t, nfts, 12)
	for i, nft := range nfts {
		assert.Equal(t, mints[i], nft.Mint)
	}
	assert.LessOrEqual(t, server.maxSeen.Load(), int32(4))
}

func TestFetcher_ResolveNfts_TimeoutSkipsItem(t *testing.T) {
	server := newDocumentServer(t, 500*time.Millisecond, map[string]string{"/slow.json": validDoc("Slow")})

	rpc := stub.NewRPCClient()
	m := mintKey(42)
	require.NoError(t, rpc.AddNftMetadata(m, "Slow", server.URL+"/slow.json"))

	fetcher := NewFetcher(rpc, WithHTTPClient(server.Client()), WithFetchTimeout(50*time.Millisecond))
	nfts, err := fetcher.ResolveNfts(context.Background(), []string{m})
	require.NoError(t, err)
	assert.Empty(t, nfts)
}

func TestFetcher_ResolveNfts_BodyTooLarge(t *testing.T) {
	big := fmt.Sprintf(`{"name":"big","image":"i","attributes":[],"pad":%q}`, string(make([]byte, 2048)))
	server := newDocumentServer(t, 0, map[string]string{"/big.json": big})

	rpc := stub.NewRPCClient()
	m := mintKey(43)
	require.NoError(t, rpc.AddNftMetadata(m, "Big", server.URL+"/big.json"))

	fetcher := NewFetcher(rpc, WithHTTPClient(server.Client()), WithMaxBodyBytes(1024))
	nfts, err := fetcher.ResolveNfts(context.Background(), []string{m})
	require.NoError(t, err)
	assert.Empty(t, nfts)
}

func TestFetcher_ResolveNfts_BatchFailureAborts(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.MultipleAccountsErr = errors.New("rpc down")

	fetcher := NewFetcher(rpc)
	_, err := fetcher.ResolveNfts(context.Background(), []string{mintKey(1)})
	assert.ErrorIs(t, err, rpc.MultipleAccountsErr)
}

func TestFetcher_ResolveNfts_ChunksLargeMintLists(t *testing.T) {
	rpc := stub.NewRPCClient()
	mints := make([]string, 150)
	for i := range mints {
		mints[i] = mintKey(i + 1000)
	}

	fetcher := NewFetcher(rpc)
	nfts, err := fetcher.ResolveNfts(context.Background(), mints)
	require.NoError(t, err)
	assert.Empty(t, nfts)
	assert.Equal(t, 2, rpc.MultipleAccountsCalls)
}

func TestFetcher_ResolveNfts_Empty(t *testing.T) {
	rpc := stub.NewRPCClient()
	nfts, err := NewFetcher(rpc).ResolveNfts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, nfts)
	assert.Equal(t, 0, rpc.MultipleAccountsCalls)
}

func TestFetcher_ResolveNfts_CancelledContext(t *testing.T) {
	server := newDocumentServer(t, 200*time.Millisecond, map[string]string{"/a.json": validDoc("A")})
	rpc := stub.NewRPCClient()
	m := mintKey(7)
	require.NoError(t, rpc.AddNftMetadata(m, "A", server.URL+"/a.json"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewFetcher(rpc, WithHTTPClient(server.Client())).ResolveNfts(ctx, []string{m})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcher_ResolveNfts_SkipsForeignOwner(t *testing.T) {
	server := newDocumentServer(t, 0, map[string]string{"/a.json": validDoc("A")})

	rpc := stub.NewRPCClient()
	good, foreign := mintKey(1), mintKey(2)
	require.NoError(t, rpc.AddNftMetadata(good, "A", server.URL+"/a.json"))

	// Garbage at the metadata address, owned by another program: a huge borsh
	// length prefix that must not reach the decoder.
	addr, err := solana.MetadataAddress(foreign)
	require.NoError(t, err)
	garbage := make([]byte, 679)
	for i := range garbage {
		garbage[i] = 0xff
	}
	rpc.AddAccount(addr, &solana.AccountInfo{Owner: solana.TokenProgramID, Data: garbage})

	start := time.Now()
	nfts, err := NewFetcher(rpc).ResolveNfts(context.Background(), []string{foreign, good})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, nfts, 1)
	assert.Equal(t, good, nfts[0].Mint)
}
