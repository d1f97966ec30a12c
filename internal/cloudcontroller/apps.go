package cloudcontroller

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// App is a resolved application identity.
type App struct {
	GUID string
	Name string
}

// Info fetches the controller's advertised endpoints.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var info Info
	if err := c.getJSON(ctx, "/v2/info", nil, &info); err != nil {
		return Info{}, fmt.Errorf("get controller info: %w", err)
	}
	return info, nil
}

// ResolveSpace returns the GUID of space within org.
func (c *Client) ResolveSpace(ctx context.Context, org, space string) (string, error) {
	org = strings.TrimSpace(org)
	space = strings.TrimSpace(space)
	if org == "" || space == "" {
		return "", errors.New("organization and space are required")
	}

	orgGUID, err := c.findOne(ctx, "/v2/organizations", nameFilter(org))
	if err != nil {
		return "", fmt.Errorf("resolve organization %q: %w", org, err)
	}
	spaceGUID, err := c.findOne(ctx, "/v2/organizations/"+url.PathEscape(orgGUID)+"/spaces", nameFilter(space))
	if err != nil {
		return "", fmt.Errorf("resolve space %q in organization %q: %w", space, org, err)
	}
	return spaceGUID, nil
}

// ResolveApp returns the application named name within the space.
func (c *Client) ResolveApp(ctx context.Context, name, spaceGUID string) (App, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return App{}, errors.New("application name is required")
	}
	guid, err := c.findOne(ctx, "/v2/spaces/"+url.PathEscape(spaceGUID)+"/apps", nameFilter(name))
	if err != nil {
		return App{}, fmt.Errorf("resolve application %q: %w", name, err)
	}
	return App{GUID: guid, Name: name}, nil
}

// AppSummary fetches a fresh runtime summary for the application.
func (c *Client) AppSummary(ctx context.Context, appGUID string) (AppSummary, error) {
	var summary AppSummary
	if err := c.getJSON(ctx, "/v2/apps/"+url.PathEscape(appGUID)+"/summary", nil, &summary); err != nil {
		return AppSummary{}, fmt.Errorf("get app summary: %w", err)
	}
	return summary, nil
}

// UpdateAppState asks the controller to move the application to state. It
// returns once the request is accepted, not when instances have changed.
func (c *Client) UpdateAppState(ctx context.Context, appGUID string, state AppState) error {
	path := "/v2/apps/" + url.PathEscape(appGUID)
	if err := c.doJSON(ctx, "PUT", path, nil, updateAppRequest{State: state}, nil); err != nil {
		return fmt.Errorf("update app state to %s: %w", state, err)
	}
	return nil
}

func (c *Client) findOne(ctx context.Context, path string, query url.Values) (string, error) {
	var p page[namedEntity]
	if err := c.getJSON(ctx, path, query, &p); err != nil {
		return "", err
	}
	if len(p.Resources) == 0 {
		return "", ErrNotFound
	}
	return p.Resources[0].Metadata.GUID, nil
}

func nameFilter(name string) url.Values {
	return url.Values{"q": []string{"name:" + name}}
}
