package types

import (
	"time"

	"github.com/google/uuid"
)

// DefaultAccessRoleName is reported for assignments made without a specific app role.
const DefaultAccessRoleName = "Default Access"

// PrincipalKind classifies the identity holding a role assignment
type PrincipalKind string

const (
	PrincipalUser    PrincipalKind = "User"
	PrincipalGroup   PrincipalKind = "Group"
	PrincipalUnknown PrincipalKind = "Unknown"
)

// AppRole is a role declared by an application or service principal
type AppRole struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	Value       string    `json:"value"`
	Enabled     bool      `json:"isEnabled"`
}

// ServicePrincipal is the tenant-local instance of an application
type ServicePrincipal struct {
	ID                     string    `json:"id"`
	AppID                  string    `json:"appId"`
	DisplayName            string    `json:"displayName"`
	AccountEnabled         bool      `json:"accountEnabled"`
	ServicePrincipalType   string    `json:"servicePrincipalType"`
	Tags                   []string  `json:"tags,omitempty"`
	Homepage               string    `json:"homepage,omitempty"`
	ReplyURLs              []string  `json:"replyUrls,omitempty"`
	AppOwnerOrganizationID string    `json:"appOwnerOrganizationId,omitempty"`
	AppRoles               []AppRole `json:"appRoles,omitempty"`
}

// Application is an application registration
type Application struct {
	ID              string    `json:"id"`
	AppID           string    `json:"appId"`
	DisplayName     string    `json:"displayName"`
	SignInAudience  string    `json:"signInAudience"`
	CreatedDateTime time.Time `json:"createdDateTime"`
	Tags            []string  `json:"tags,omitempty"`
	Homepage        string    `json:"homepage,omitempty"`
	RedirectURIs    []string  `json:"redirectUris,omitempty"`
	AppRoles        []AppRole `json:"appRoles,omitempty"`
}

// RoleAssignment links a principal to an app role on a resource service principal.
// PrincipalType and PrincipalDisplayName are hints copied from the directory and
// are not used for classification.
type RoleAssignment struct {
	ID                   string    `json:"id"`
	PrincipalID          string    `json:"principalId"`
	PrincipalType        string    `json:"principalType"`
	PrincipalDisplayName string    `json:"principalDisplayName"`
	AppRoleID            uuid.UUID `json:"appRoleId"`
	ResourceID           string    `json:"resourceId"`
	ResourceDisplayName  string    `json:"resourceDisplayName"`
	CreatedDateTime      time.Time `json:"createdDateTime"`
}

// IsDefaultAccess reports whether the assignment carries the all-zero role id
func (r RoleAssignment) IsDefaultAccess() bool {
	return r.AppRoleID == uuid.Nil
}

// Principal is a resolved identity
type Principal struct {
	ID          string        `json:"id"`
	Kind        PrincipalKind `json:"kind"`
	DisplayName string        `json:"displayName"`
	Email       string        `json:"email"`
}

// UnknownPrincipal returns the placeholder used when an id cannot be classified
func UnknownPrincipal(id string) Principal {
	return Principal{ID: id, Kind: PrincipalUnknown}
}
