package persist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/storage"
	"solana-nft-picker/internal/storage/memory"
)

var owner = base58.Encode(make([]byte, 32))

// staticStores always returns the same store or error.
type staticStores struct {
	store storage.SelectionStore
	err   error
}

func (s staticStores) Get(context.Context) (storage.SelectionStore, error) {
	return s.store, s.err
}

// failingStore fails every append.
type failingStore struct{}

func (failingStore) Append(context.Context, *domain.SavedSelection) error {
	return errors.New("permission denied")
}
func (failingStore) Close() error { return nil }

func do(t *testing.T, h http.Handler, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/persist", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validBody(n int) string {
	nfts := make([]string, n)
	for i := range nfts {
		nfts[i] = fmt.Sprintf(`{"mint":"m%d","name":"NFT %d","image":"https://img/%d.png","attributes":[]}`, i, i, i)
	}
	return fmt.Sprintf(`{"nfts":[%s],"owner":%q}`, strings.Join(nfts, ","), owner)
}

func TestHandler_Success(t *testing.T) {
	store := memory.NewSelectionStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHandler(staticStores{store: store}, WithClock(func() time.Time { return now }))

	rec := do(t, h, http.MethodPost, validBody(2))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ok", rec.Body.String())

	docs, err := store.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotEmpty(t, docs[0].ID)
	assert.Equal(t, now, docs[0].CreatedAt)
	require.Len(t, docs[0].Nfts, 2)
	assert.Equal(t, "NFT 0", docs[0].Nfts[0].Name)
}

func TestHandler_DuplicateRequestsAppendTwice(t *testing.T) {
	store := memory.NewSelectionStore()
	h := NewHandler(staticStores{store: store})

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, validBody(1)).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, validBody(1)).Code)
	assert.Equal(t, 2, store.Count())
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	store := memory.NewSelectionStore()
	h := NewHandler(staticStores{store: store})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := do(t, h, method, validBody(1))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "Method Not Allowed", rec.Body.String())
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	}
	assert.Equal(t, 0, store.Count())
}

func TestHandler_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"whitespace body", "  \n"},
		{"malformed json", `{"nfts":`},
		{"not an object", `[1,2]`},
		{"null", `null`},
		{"missing owner", `{"nfts":[{"name":"a","image":"b","attributes":[]}]}`},
		{"invalid owner", `{"nfts":[{"name":"a","image":"b","attributes":[]}],"owner":"0OIl"}`},
		{"short owner", `{"nfts":[{"name":"a","image":"b","attributes":[]}],"owner":"abc"}`},
		{"empty nfts", fmt.Sprintf(`{"nfts":[],"owner":%q}`, owner)},
		{"nfts not a list", fmt.Sprintf(`{"nfts":{"name":"a"},"owner":%q}`, owner)},
		{"nft without name", fmt.Sprintf(`{"nfts":[{"image":"b","attributes":[]}],"owner":%q}`, owner)},
		{"nft without image", fmt.Sprintf(`{"nfts":[{"name":"a","attributes":[]}],"owner":%q}`, owner)},
		{"too many nfts", validBody(101)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewSelectionStore()
			h := NewHandler(staticStores{store: store})

			rec := do(t, h, http.MethodPost, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Bad Request", rec.Body.String())
			assert.Equal(t, 0, store.Count())
		})
	}
}

func TestHandler_BodyTooLarge(t *testing.T) {
	store := memory.NewSelectionStore()
	h := NewHandler(staticStores{store: store}, WithMaxBodyBytes(64))

	rec := do(t, h, http.MethodPost, validBody(3))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, store.Count())
}

func TestHandler_MaxSelectionOption(t *testing.T) {
	store := memory.NewSelectionStore()
	h := NewHandler(staticStores{store: store}, WithMaxSelection(2))

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, validBody(2)).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, validBody(3)).Code)
}

func TestHandler_StoreFailure(t *testing.T) {
	h := NewHandler(staticStores{store: failingStore{}})

	rec := do(t, h, http.MethodPost, validBody(1))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error while persisting data", rec.Body.String())
}

func TestHandler_StoreInitFailureIsRetried(t *testing.T) {
	attempts := 0
	store := memory.NewSelectionStore()
	lazy := storage.NewLazy(func(context.Context) (storage.SelectionStore, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("credentials file not found")
		}
		return store, nil
	})
	h := NewHandler(lazy)

	rec := do(t, h, http.MethodPost, validBody(1))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error while persisting data", rec.Body.String())

	rec = do(t, h, http.MethodPost, validBody(1))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, 2, attempts)
}

func TestValidate(t *testing.T) {
	req := &domain.PersistRequest{
		Owner: owner,
		Nfts:  []domain.Nft{{Name: "a", Image: "b"}},
	}
	assert.NoError(t, Validate(req, 100))
	assert.NoError(t, Validate(req, 0))

	req.Nfts = append(req.Nfts, domain.Nft{Name: "c", Image: "d"})
	assert.ErrorIs(t, Validate(req, 1), ErrInvalidRequest)
}
