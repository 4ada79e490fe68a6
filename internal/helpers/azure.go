package helpers

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/organization"
)

const GraphScope = "https://graph.microsoft.com/.default"

// TenantDetails identifies the directory the client is connected to
type TenantDetails struct {
	Name          string
	ID            string
	DefaultDomain string
}

// GetAzureCredentials returns Azure credentials using DefaultAzureCredential.
// An empty tenantID lets the credential chain pick the home tenant.
func GetAzureCredentials(tenantID string) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get Azure credentials: %w", err)
	}
	return cred, nil
}

// NewGraphClient builds a Graph client scoped to the default Graph permissions
func NewGraphClient(cred azcore.TokenCredential) (*msgraphsdk.GraphServiceClient, error) {
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{GraphScope})
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph client: %w", err)
	}
	return client, nil
}

// GetTenantDetails gets details about the Azure tenant
func GetTenantDetails(ctx context.Context, client *msgraphsdk.GraphServiceClient) (*TenantDetails, error) {
	org, err := client.Organization().Get(ctx, &organization.OrganizationRequestBuilderGetRequestConfiguration{
		QueryParameters: &organization.OrganizationRequestBuilderGetQueryParameters{
			Select: []string{"id", "displayName", "verifiedDomains"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get organization details: %w", err)
	}

	details := &TenantDetails{Name: "Unknown", ID: "Unknown"}
	if org == nil || len(org.GetValue()) == 0 {
		return details, nil
	}

	return tenantDetails(org.GetValue()[0]), nil
}

func tenantDetails(org models.Organizationable) *TenantDetails {
	details := &TenantDetails{Name: "Unknown", ID: "Unknown"}
	if displayName := org.GetDisplayName(); displayName != nil {
		details.Name = *displayName
	}
	if id := org.GetId(); id != nil {
		details.ID = *id
	}
	for _, domain := range org.GetVerifiedDomains() {
		if isDefault := domain.GetIsDefault(); isDefault != nil && *isDefault && domain.GetName() != nil {
			details.DefaultDomain = *domain.GetName()
		}
	}
	return details
}
