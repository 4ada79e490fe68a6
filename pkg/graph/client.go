package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/applications"
	"github.com/microsoftgraph/msgraph-sdk-go/groups"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/serviceprincipals"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/praetorian-inc/approles/pkg/paging"
	"github.com/praetorian-inc/approles/pkg/types"
)

var servicePrincipalSelect = []string{
	"id",
	"appId",
	"displayName",
	"accountEnabled",
	"servicePrincipalType",
	"appOwnerOrganizationId",
	"appRoles",
	"homepage",
	"replyUrls",
	"tags",
}

var applicationSelect = []string{
	"id",
	"appId",
	"displayName",
	"signInAudience",
	"createdDateTime",
	"appRoles",
	"tags",
	"web",
}

var userSelect = []string{"id", "displayName", "mail", "userPrincipalName"}

var groupSelect = []string{"id", "displayName", "mail"}

// Options tune how the client talks to Graph
type Options struct {
	// Page size hint sent as $top; Graph may cap it
	PageSize int32
	// Per-request timeout
	Timeout time.Duration
	// Client-side request rate limit, requests per second
	RequestsPerSecond float64
	// Retries of transient failures (429, 5xx, per-request timeouts)
	Retries uint64
	// First backoff delay; doubles on each retry
	RetryBase time.Duration
	Logger    *slog.Logger
}

var DefaultOptions = Options{
	PageSize:          999,
	Timeout:           30 * time.Second,
	RequestsPerSecond: 10,
	Retries:           2,
	RetryBase:         500 * time.Millisecond,
}

// Client is the directory client the exporter and resolver consume. Every
// request is throttled, bounded by a timeout and retried when transient.
type Client struct {
	graph   *msgraphsdk.GraphServiceClient
	limiter *rate.Limiter
	options Options
	logger  *slog.Logger
}

func NewClient(graph *msgraphsdk.GraphServiceClient, options Options) *Client {
	if options.PageSize <= 0 {
		options.PageSize = DefaultOptions.PageSize
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultOptions.Timeout
	}
	if options.RequestsPerSecond <= 0 {
		options.RequestsPerSecond = DefaultOptions.RequestsPerSecond
	}
	if options.RetryBase <= 0 {
		options.RetryBase = DefaultOptions.RetryBase
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		graph:   graph,
		limiter: rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1),
		options: options,
		logger:  logger,
	}
}

// do runs one Graph request under the client's throttling, timeout and retry policy
func do[T any](ctx context.Context, c *Client, operation string, request func(ctx context.Context) (T, error)) (T, error) {
	var result T
	backoff := retry.WithMaxRetries(c.options.Retries, retry.NewExponential(c.options.RetryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.options.Timeout)
		defer cancel()

		value, err := request(reqCtx)
		if err != nil {
			if ctx.Err() == nil && isTransient(err) {
				c.logger.Debug("Retrying Graph request", "operation", operation, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		result = value
		return nil
	})

	return result, err
}

// ServicePrincipals lists service principals matching an OData filter; an
// empty filter lists all of them.
func (c *Client) ServicePrincipals(filter string) paging.PageFunc[types.ServicePrincipal] {
	return func(ctx context.Context, nextLink string) (paging.Page[types.ServicePrincipal], error) {
		resp, err := do(ctx, c, "list service principals", func(ctx context.Context) (models.ServicePrincipalCollectionResponseable, error) {
			if nextLink != "" {
				return c.graph.ServicePrincipals().WithUrl(nextLink).Get(ctx, nil)
			}

			top := c.options.PageSize
			query := &serviceprincipals.ServicePrincipalsRequestBuilderGetQueryParameters{
				Select: servicePrincipalSelect,
				Top:    &top,
			}
			if filter != "" {
				query.Filter = &filter
			}
			return c.graph.ServicePrincipals().Get(ctx, &serviceprincipals.ServicePrincipalsRequestBuilderGetRequestConfiguration{
				QueryParameters: query,
			})
		})
		if err != nil {
			return paging.Page[types.ServicePrincipal]{}, fmt.Errorf("failed to list service principals: %w", err)
		}
		return toPage[models.ServicePrincipalable](resp, ConvertServicePrincipal), nil
	}
}

// Applications lists application registrations matching an OData filter
func (c *Client) Applications(filter string) paging.PageFunc[types.Application] {
	return func(ctx context.Context, nextLink string) (paging.Page[types.Application], error) {
		resp, err := do(ctx, c, "list applications", func(ctx context.Context) (models.ApplicationCollectionResponseable, error) {
			if nextLink != "" {
				return c.graph.Applications().WithUrl(nextLink).Get(ctx, nil)
			}

			top := c.options.PageSize
			query := &applications.ApplicationsRequestBuilderGetQueryParameters{
				Select: applicationSelect,
				Top:    &top,
			}
			if filter != "" {
				query.Filter = &filter
			}
			return c.graph.Applications().Get(ctx, &applications.ApplicationsRequestBuilderGetRequestConfiguration{
				QueryParameters: query,
			})
		})
		if err != nil {
			return paging.Page[types.Application]{}, fmt.Errorf("failed to list applications: %w", err)
		}
		return toPage[models.Applicationable](resp, ConvertApplication), nil
	}
}

// AppRoleAssignedTo lists the app role assignments granted on a service principal
func (c *Client) AppRoleAssignedTo(servicePrincipalID string) paging.PageFunc[types.RoleAssignment] {
	return func(ctx context.Context, nextLink string) (paging.Page[types.RoleAssignment], error) {
		resp, err := do(ctx, c, "list app role assignments", func(ctx context.Context) (models.AppRoleAssignmentCollectionResponseable, error) {
			builder := c.graph.ServicePrincipals().ByServicePrincipalId(servicePrincipalID).AppRoleAssignedTo()
			if nextLink != "" {
				return builder.WithUrl(nextLink).Get(ctx, nil)
			}

			top := c.options.PageSize
			return builder.Get(ctx, &serviceprincipals.ItemAppRoleAssignedToRequestBuilderGetRequestConfiguration{
				QueryParameters: &serviceprincipals.ItemAppRoleAssignedToRequestBuilderGetQueryParameters{
					Top: &top,
				},
			})
		})
		if err != nil {
			return paging.Page[types.RoleAssignment]{}, fmt.Errorf("failed to list app role assignments for %s: %w", servicePrincipalID, err)
		}
		return toPage[models.AppRoleAssignmentable](resp, ConvertRoleAssignment), nil
	}
}

// GetUser fetches a user by object id. A missing user yields types.ErrNotFound.
func (c *Client) GetUser(ctx context.Context, id string) (types.Principal, error) {
	user, err := do(ctx, c, "get user", func(ctx context.Context) (models.Userable, error) {
		return c.graph.Users().ByUserId(id).Get(ctx, &users.UserItemRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.UserItemRequestBuilderGetQueryParameters{
				Select: userSelect,
			},
		})
	})
	if err != nil {
		return types.Principal{}, classify(err, "user", id)
	}
	if user == nil {
		return types.Principal{}, fmt.Errorf("user %s: %w", id, types.ErrNotFound)
	}
	return ConvertUser(user), nil
}

// GetGroup fetches a group by object id. A missing group yields types.ErrNotFound.
func (c *Client) GetGroup(ctx context.Context, id string) (types.Principal, error) {
	group, err := do(ctx, c, "get group", func(ctx context.Context) (models.Groupable, error) {
		return c.graph.Groups().ByGroupId(id).Get(ctx, &groups.GroupItemRequestBuilderGetRequestConfiguration{
			QueryParameters: &groups.GroupItemRequestBuilderGetQueryParameters{
				Select: groupSelect,
			},
		})
	})
	if err != nil {
		return types.Principal{}, classify(err, "group", id)
	}
	if group == nil {
		return types.Principal{}, fmt.Errorf("group %s: %w", id, types.ErrNotFound)
	}
	return ConvertGroup(group), nil
}

type collection[M any] interface {
	GetValue() []M
	GetOdataNextLink() *string
}

func toPage[M any, T any](resp collection[M], convert func(M) T) paging.Page[T] {
	page := paging.Page[T]{}
	if resp == nil {
		return page
	}
	for _, item := range resp.GetValue() {
		page.Items = append(page.Items, convert(item))
	}
	page.NextLink = stringValue(resp.GetOdataNextLink())
	return page
}
