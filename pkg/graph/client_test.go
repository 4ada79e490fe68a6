package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/microsoft/kiota-abstractions-go/authentication"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/approles/pkg/paging"
	"github.com/praetorian-inc/approles/pkg/types"
)

var readerRoleID = uuid.MustParse("1b4f816e-5eaf-48b9-8613-7923830595ad")

// fakeGraph serves a two page servicePrincipals listing, an assignment
// listing and a missing user, recording every query it receives.
type fakeGraph struct {
	mu      sync.Mutex
	queries []url.Values
	server  *httptest.Server
}

func newFakeGraph(t *testing.T) *fakeGraph {
	f := &fakeGraph{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/servicePrincipals", f.servicePrincipals)
	mux.HandleFunc("/v1.0/servicePrincipals/sp-crm/appRoleAssignedTo", f.assignments)
	mux.HandleFunc("/v1.0/users/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":{"code":"Request_ResourceNotFound","message":"Resource does not exist."}}`)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGraph) record(r *http.Request) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	query := r.URL.Query()
	f.queries = append(f.queries, query)
	return query
}

func (f *fakeGraph) servicePrincipals(w http.ResponseWriter, r *http.Request) {
	query := f.record(r)
	if query.Get("$skiptoken") == "page2" {
		writeJSON(w, http.StatusOK, `{"value":[{"id":"sp-hr","appId":"app-hr","displayName":"Contoso HR","accountEnabled":false}]}`)
		return
	}

	next := f.server.URL + "/v1.0/servicePrincipals?$skiptoken=page2"
	writeJSON(w, http.StatusOK, fmt.Sprintf(`{
		"@odata.nextLink": %q,
		"value": [{
			"id": "sp-crm",
			"appId": "app-crm",
			"displayName": "Contoso CRM",
			"accountEnabled": true,
			"appRoles": [{"id": %q, "displayName": "CRM Reader", "value": "CRM.Read", "isEnabled": true}]
		}]
	}`, next, readerRoleID))
}

func (f *fakeGraph) assignments(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	writeJSON(w, http.StatusOK, fmt.Sprintf(`{"value":[{
		"id": "assignment-1",
		"principalId": "87d349ed-44d7-43e1-9a83-5f2406dee5bd",
		"principalType": "User",
		"principalDisplayName": "Adele Vance",
		"appRoleId": %q,
		"resourceId": "0c8a7a3e-3c6b-4f5e-8d5e-3d1f6a6b2c11",
		"resourceDisplayName": "Contoso CRM",
		"createdDateTime": "2024-03-01T09:30:05Z"
	}]}`, readerRoleID))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func (f *fakeGraph) client(t *testing.T) *Client {
	adapter, err := msgraphsdk.NewGraphRequestAdapter(&authentication.AnonymousAuthenticationProvider{})
	require.NoError(t, err)
	adapter.SetBaseUrl(f.server.URL + "/v1.0")

	return NewClient(msgraphsdk.NewGraphServiceClient(adapter), Options{
		PageSize:          2,
		RequestsPerSecond: 1000,
	})
}

func TestClient_ServicePrincipalsFollowsNextLink(t *testing.T) {
	f := newFakeGraph(t)
	c := f.client(t)

	sps, err := paging.FetchAll(context.Background(), "service principals", c.ServicePrincipals(StartsWith("displayName", "Contoso")))
	require.NoError(t, err)
	require.Len(t, sps, 2)

	assert.Equal(t, "Contoso CRM", sps[0].DisplayName)
	assert.Equal(t, "app-crm", sps[0].AppID)
	require.Len(t, sps[0].AppRoles, 1)
	assert.Equal(t, readerRoleID, sps[0].AppRoles[0].ID)
	assert.Equal(t, "Contoso HR", sps[1].DisplayName)
	assert.False(t, sps[1].AccountEnabled)

	require.Len(t, f.queries, 2)
	first := f.queries[0]
	assert.Equal(t, "2", first.Get("$top"))
	assert.Equal(t, "startswith(displayName, 'Contoso')", first.Get("$filter"))
	assert.Contains(t, first.Get("$select"), "appRoles")
	assert.Equal(t, "page2", f.queries[1].Get("$skiptoken"))
	assert.Empty(t, f.queries[1].Get("$filter"))
}

func TestClient_AppRoleAssignedTo(t *testing.T) {
	f := newFakeGraph(t)
	c := f.client(t)

	assignments, err := paging.FetchAll(context.Background(), "assignments", c.AppRoleAssignedTo("sp-crm"))
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "87d349ed-44d7-43e1-9a83-5f2406dee5bd", assignments[0].PrincipalID)
	assert.Equal(t, readerRoleID, assignments[0].AppRoleID)
	assert.Equal(t, "2", f.queries[0].Get("$top"))
}

func TestClient_GetUserNotFound(t *testing.T) {
	f := newFakeGraph(t)
	c := f.client(t)

	_, err := c.GetUser(context.Background(), "5b2c3a6f-0000-4c1e-9c2e-2f0c4c1d0d9a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}
