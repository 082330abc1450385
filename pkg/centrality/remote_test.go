package centrality

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicore/chrongraph/pkg/types"
)

type fakeRemoteClient struct {
	scores map[string]*Scores
	err    error
}

func (f *fakeRemoteClient) CalculateRemote(ctx context.Context, opts Options) (map[string]*Scores, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func TestCalculateWithDelegationUsesRemoteOnSuccess(t *testing.T) {
	remote := &fakeRemoteClient{scores: map[string]*Scores{
		"n1": {NodeUUID: "n1", Importance: 42},
	}}

	scores, err := CalculateWithDelegation(context.Background(), newFakeQueryDriver(), remote, Options{})
	require.NoError(t, err)
	assert.Equal(t, 42.0, scores["n1"].Importance)
}

func TestCalculateWithDelegationFallsBackOnRemoteError(t *testing.T) {
	d := newFakeQueryDriver()
	ctx := context.Background()
	require.NoError(t, d.UpsertNode(ctx, &types.Node{Uuid: "a", Name: "a", Type: types.EntityNodeType}))
	require.NoError(t, d.UpsertNode(ctx, &types.Node{Uuid: "b", Name: "b", Type: types.EntityNodeType}))
	require.NoError(t, d.addEdge(ctx, "e1", "a", "b", ""))

	remote := &fakeRemoteClient{err: errors.New("service unavailable")}

	scores, err := CalculateWithDelegation(ctx, d, remote, Options{})
	require.NoError(t, err)
	assert.Contains(t, scores, "a")
	assert.Contains(t, scores, "b")
}

func TestCalculateWithDelegationNilRemoteComputesInProcess(t *testing.T) {
	d := newFakeQueryDriver()
	ctx := context.Background()
	require.NoError(t, d.UpsertNode(ctx, &types.Node{Uuid: "a", Name: "a", Type: types.EntityNodeType}))
	require.NoError(t, d.UpsertNode(ctx, &types.Node{Uuid: "b", Name: "b", Type: types.EntityNodeType}))
	require.NoError(t, d.addEdge(ctx, "e1", "a", "b", ""))

	scores, err := CalculateWithDelegation(ctx, d, nil, Options{})
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestHTTPRemoteClientDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]*Scores{
			"n1": {NodeUUID: "n1", PageRank: 0.5},
		})
	}))
	defer server.Close()

	client := NewHTTPRemoteClient(server.URL)
	scores, err := client.CalculateRemote(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.5, scores["n1"].PageRank)
}

func TestHTTPRemoteClientReturnsErrorOnNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPRemoteClient(server.URL)
	_, err := client.CalculateRemote(context.Background(), Options{})
	assert.Error(t, err)
}
