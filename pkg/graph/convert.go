package graph

import (
	"time"

	"github.com/google/uuid"
	"github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/praetorian-inc/approles/pkg/types"
)

func ConvertServicePrincipal(sp models.ServicePrincipalable) types.ServicePrincipal {
	return types.ServicePrincipal{
		ID:                     stringValue(sp.GetId()),
		AppID:                  stringValue(sp.GetAppId()),
		DisplayName:            stringValue(sp.GetDisplayName()),
		AccountEnabled:         boolValue(sp.GetAccountEnabled()),
		ServicePrincipalType:   stringValue(sp.GetServicePrincipalType()),
		Tags:                   sp.GetTags(),
		Homepage:               stringValue(sp.GetHomepage()),
		ReplyURLs:              sp.GetReplyUrls(),
		AppOwnerOrganizationID: uuidString(sp.GetAppOwnerOrganizationId()),
		AppRoles:               convertAppRoles(sp.GetAppRoles()),
	}
}

func ConvertApplication(app models.Applicationable) types.Application {
	converted := types.Application{
		ID:              stringValue(app.GetId()),
		AppID:           stringValue(app.GetAppId()),
		DisplayName:     stringValue(app.GetDisplayName()),
		SignInAudience:  stringValue(app.GetSignInAudience()),
		CreatedDateTime: timeValue(app.GetCreatedDateTime()),
		Tags:            app.GetTags(),
		AppRoles:        convertAppRoles(app.GetAppRoles()),
	}
	if web := app.GetWeb(); web != nil {
		converted.Homepage = stringValue(web.GetHomePageUrl())
		converted.RedirectURIs = web.GetRedirectUris()
	}
	return converted
}

// ConvertRoleAssignment maps an assignment. A missing appRoleId becomes
// uuid.Nil, the same id Graph uses for default access.
func ConvertRoleAssignment(a models.AppRoleAssignmentable) types.RoleAssignment {
	assignment := types.RoleAssignment{
		ID:                   stringValue(a.GetId()),
		PrincipalID:          uuidString(a.GetPrincipalId()),
		PrincipalType:        stringValue(a.GetPrincipalType()),
		PrincipalDisplayName: stringValue(a.GetPrincipalDisplayName()),
		ResourceID:           uuidString(a.GetResourceId()),
		ResourceDisplayName:  stringValue(a.GetResourceDisplayName()),
		CreatedDateTime:      timeValue(a.GetCreatedDateTime()),
	}
	if roleID := a.GetAppRoleId(); roleID != nil {
		assignment.AppRoleID = *roleID
	}
	return assignment
}

// ConvertUser prefers the mail attribute and falls back to the UPN
func ConvertUser(user models.Userable) types.Principal {
	email := stringValue(user.GetMail())
	if email == "" {
		email = stringValue(user.GetUserPrincipalName())
	}
	return types.Principal{
		ID:          stringValue(user.GetId()),
		Kind:        types.PrincipalUser,
		DisplayName: stringValue(user.GetDisplayName()),
		Email:       email,
	}
}

func ConvertGroup(group models.Groupable) types.Principal {
	return types.Principal{
		ID:          stringValue(group.GetId()),
		Kind:        types.PrincipalGroup,
		DisplayName: stringValue(group.GetDisplayName()),
		Email:       stringValue(group.GetMail()),
	}
}

func convertAppRoles(roles []models.AppRoleable) []types.AppRole {
	if len(roles) == 0 {
		return nil
	}
	converted := make([]types.AppRole, 0, len(roles))
	for _, role := range roles {
		if role == nil || role.GetId() == nil {
			continue
		}
		converted = append(converted, types.AppRole{
			ID:          *role.GetId(),
			DisplayName: stringValue(role.GetDisplayName()),
			Value:       stringValue(role.GetValue()),
			Enabled:     boolValue(role.GetIsEnabled()),
		})
	}
	return converted
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
